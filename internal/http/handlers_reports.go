package http

import (
	"fmt"
	"io"
	"net/http"

	"feeledger/internal/core"
	"feeledger/internal/export"
)

func (s *Server) handleClassReport(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query(), FormatCSV)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	class, err := ParseClassParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if class == "" {
		s.writeError(w, r, fmt.Errorf("%w: class is required", core.ErrInvalidInput))
		return
	}

	report, err := s.fees.ClassReport(r.Context(), class)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if format == FormatCSV {
		resp := NewCSVResponse(attachmentName("class_report", string(class))+".csv", func(out io.Writer) error {
			return export.WriteClassReportCSV(out, report)
		})
		if err := resp.Write(w); err != nil {
			s.writeError(w, r, err)
		}
		return
	}
	if report.Rows == nil {
		report.Rows = []core.ClassReportRow{}
	}
	NewJSONResponse().Data(report).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := s.fees.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(overview).Write(w)
}

// handleReminders serves the current month's unpaid list. Before the 8th
// the report is inactive and both exports are empty.
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query(), FormatCSV, FormatMessages)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.now()
	report, err := s.fees.Reminders(r.Context(), now)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	stamp := now.Format(dateLayout)
	var resp *CSVResponse
	switch format {
	case FormatCSV:
		resp = NewCSVResponse(attachmentName("reminders", string(report.Month), stamp)+".csv", func(out io.Writer) error {
			return export.WriteReminderCSV(out, report)
		})
	case FormatMessages:
		resp = NewTextResponse(attachmentName("messages", string(report.Month), stamp)+".txt", func(out io.Writer) error {
			return export.RenderReminderMessages(out, report, s.schoolName)
		})
	default:
		if report.Rows == nil {
			report.Rows = []core.ReminderRow{}
		}
		NewJSONResponse().Data(report).Write(w)
		return
	}
	if err := resp.Write(w); err != nil {
		s.writeError(w, r, err)
	}
}
