package http

import (
	"io"
	"net/http"
	"strings"

	"feeledger/internal/core"
	"feeledger/internal/export"
	applog "feeledger/internal/log"
)

type recordInput struct {
	StudentID     string     `json:"student_id"`
	Month         string     `json:"month"`
	MonthlyFee    core.Money `json:"monthly_fee"`
	AnnualCharges core.Money `json:"annual_charges"`
	AdmissionFee  core.Money `json:"admission_fee"`
	Received      core.Money `json:"received"`
	Method        string     `json:"payment_method"`
	Reference     string     `json:"reference"`
	Remarks       string     `json:"remarks"`
	Date          string     `json:"date"`
}

func (in recordInput) toRecord() (core.PaymentRecord, error) {
	month, err := core.ParseMonth(in.Month)
	if err != nil {
		return core.PaymentRecord{}, err
	}
	method, err := core.ParsePaymentMethod(in.Method)
	if err != nil {
		return core.PaymentRecord{}, err
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return core.PaymentRecord{}, err
	}
	return core.PaymentRecord{
		StudentID:     strings.TrimSpace(in.StudentID),
		Month:         month,
		MonthlyFee:    in.MonthlyFee,
		AnnualCharges: in.AnnualCharges,
		AdmissionFee:  in.AdmissionFee,
		Received:      in.Received,
		Method:        method,
		Reference:     sanitizeInput(in.Reference),
		Remarks:       sanitizeInput(in.Remarks),
		Date:          date,
	}, nil
}

type recordList struct {
	Records []core.PaymentRecord `json:"records"`
	Count   int                  `json:"count"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	studentID := strings.TrimSpace(r.URL.Query().Get("student_id"))
	if studentID != "" {
		if _, err := s.fees.Student(r.Context(), studentID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	records, err := s.fees.Records(r.Context(), studentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []core.PaymentRecord{}
	}
	NewJSONResponse().Data(recordList{Records: records, Count: len(records)}).Write(w)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var in recordInput
	if err := DecodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := in.toRecord()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.fees.RecordPayment(r.Context(), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateLedger(saved.StudentID)
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogRecordAppended(r.Context(), saved)

	NewJSONResponse().Status(http.StatusCreated).Data(saved).Write(w)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query(), FormatCSV)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.ledger(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format == FormatCSV {
		resp := NewCSVResponse(attachmentName("ledger", summary.StudentID)+".csv", func(out io.Writer) error {
			return export.WriteLedgerCSV(out, summary)
		})
		if err := resp.Write(w); err != nil {
			s.writeError(w, r, err)
		}
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query(), FormatCSV)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	records, err := s.fees.History(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format == FormatCSV {
		resp := NewCSVResponse(attachmentName("history", id)+".csv", func(out io.Writer) error {
			return export.WriteHistoryCSV(out, records)
		})
		if err := resp.Write(w); err != nil {
			s.writeError(w, r, err)
		}
		return
	}
	if records == nil {
		records = []core.PaymentRecord{}
	}
	NewJSONResponse().Data(recordList{Records: records, Count: len(records)}).Write(w)
}

func (s *Server) handleGetDefaultSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := s.fees.DefaultSchedule(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(sched).Write(w)
}

func (s *Server) handlePutDefaultSchedule(w http.ResponseWriter, r *http.Request) {
	var sched core.FeeSchedule
	if err := DecodeJSON(w, r, &sched); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.fees.SetDefaultSchedule(r.Context(), sched); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateAllLedgers()
	NewJSONResponse().Data(sched).Write(w)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := s.fees.Schedule(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(sched).Write(w)
}

func (s *Server) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	var sched core.FeeSchedule
	if err := DecodeJSON(w, r, &sched); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if err := s.fees.SetSchedule(r.Context(), id, sched); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateLedger(id)
	NewJSONResponse().Data(sched).Write(w)
}

func (s *Server) handleImportSchedules(w http.ResponseWriter, r *http.Request) {
	body, err := ReadUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report := s.fees.ImportFees(r.Context(), body)
	s.invalidateAllLedgers()
	writeImportReport(w, r, report)
}
