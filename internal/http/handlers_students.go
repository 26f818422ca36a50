package http

import (
	"net/http"
	"strings"

	"feeledger/internal/core"
	applog "feeledger/internal/log"
	"feeledger/internal/services"
)

type studentInput struct {
	Name         string `json:"name"`
	GuardianName string `json:"guardian_name"`
	Class        string `json:"class"`
	Phone        string `json:"phone"`
	Age          int    `json:"age"`
	Address      string `json:"address"`
}

func (in studentInput) toStudent() (core.Student, error) {
	class, err := core.ParseClassCategory(in.Class)
	if err != nil {
		return core.Student{}, err
	}
	return core.Student{
		Name:         sanitizeInput(in.Name),
		GuardianName: sanitizeInput(in.GuardianName),
		Class:        class,
		Phone:        sanitizeInput(in.Phone),
		Age:          in.Age,
		Address:      sanitizeInput(in.Address),
	}, nil
}

type studentList struct {
	Students []core.Student `json:"students"`
	Count    int            `json:"count"`
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	class, err := ParseClassParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	students, err := s.fees.Students(r.Context(), class)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if students == nil {
		students = []core.Student{}
	}
	NewJSONResponse().Data(studentList{Students: students, Count: len(students)}).Write(w)
}

// handleRegisterStudent answers 201 for a new student and 200 when an
// existing one was updated.
func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var in studentInput
	if err := DecodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := in.toStudent()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, created, err := s.fees.RegisterStudent(r.Context(), st)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateLedger(saved.ID)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	NewJSONResponse().
		Status(status).
		Header("Location", "/api/students/"+saved.ID).
		Data(saved).
		Write(w)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := s.fees.Student(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(st).Write(w)
}

func (s *Server) handleImportStudents(w http.ResponseWriter, r *http.Request) {
	body, err := ReadUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report := s.fees.ImportStudents(r.Context(), body)
	s.invalidateAllLedgers()
	writeImportReport(w, r, report)
}

// writeImportReport answers 200 when anything was stored, 422 when every
// row failed.
func writeImportReport(w http.ResponseWriter, r *http.Request, report core.ImportReport) {
	if report.Errors == nil {
		report.Errors = []core.RowError{}
	}
	status := http.StatusOK
	if report.Imported+report.Updated == 0 && report.Failed() > 0 {
		status = http.StatusUnprocessableEntity
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Import processed",
		applog.FieldOperation, strings.TrimPrefix(r.URL.Path, "/api/"),
		"imported", report.Imported,
		"updated", report.Updated,
		"failed", report.Failed())
	NewJSONResponse().Status(status).Data(report).Write(w)
}

func (s *Server) handlePaymentOptions(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"student_id":  summary.StudentID,
		"balance_due": summary.BalanceDue,
		"options":     services.PaymentOptions(summary),
	}).Write(w)
}
