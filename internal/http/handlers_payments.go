package http

import (
	"fmt"
	"net/http"
	"strings"

	"feeledger/internal/core"
	"feeledger/internal/services"
)

type decisionInput struct {
	Notes string `json:"notes"`
}

type requestList struct {
	Requests []core.PaymentRequest `json:"requests"`
	Count    int                   `json:"count"`
}

// handleListPaymentRequests lists one student's requests with
// ?student_id=, otherwise the pending queue.
func (s *Server) handleListPaymentRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	studentID := strings.TrimSpace(q.Get("student_id"))
	status := core.RequestStatus(strings.ToLower(strings.TrimSpace(q.Get("status"))))
	if studentID == "" && status != "" && status != core.StatusPending {
		s.writeError(w, r, fmt.Errorf("%w: status filter %q needs a student_id", core.ErrInvalidInput, status))
		return
	}

	reqs, err := s.payments.Requests(r.Context(), studentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if status != "" {
		filtered := reqs[:0]
		for _, req := range reqs {
			if req.Status == status {
				filtered = append(filtered, req)
			}
		}
		reqs = filtered
	}
	if reqs == nil {
		reqs = []core.PaymentRequest{}
	}
	NewJSONResponse().Data(requestList{Requests: reqs, Count: len(reqs)}).Write(w)
}

func (s *Server) handleSubmitPaymentRequest(w http.ResponseWriter, r *http.Request) {
	var in services.PaymentRequestInput
	if err := DecodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Notes = sanitizeInput(in.Notes)

	req, err := s.payments.Submit(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(req).Write(w)
}

type verifyResponse struct {
	Request core.PaymentRequest `json:"request"`
	Record  core.PaymentRecord  `json:"record"`
}

func (s *Server) handleVerifyPaymentRequest(w http.ResponseWriter, r *http.Request) {
	notes, err := decodeDecision(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, rec, err := s.payments.Verify(r.Context(), r.PathValue("id"), notes)
	if rec.StudentID != "" {
		s.invalidateLedger(rec.StudentID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(verifyResponse{Request: req, Record: rec}).Write(w)
}

func (s *Server) handleRejectPaymentRequest(w http.ResponseWriter, r *http.Request) {
	notes, err := decodeDecision(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := s.payments.Reject(r.Context(), r.PathValue("id"), notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(req).Write(w)
}

// decodeDecision reads the optional {"notes": ...} body of a decision.
func decodeDecision(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.ContentLength == 0 {
		return "", nil
	}
	var in decisionInput
	if err := DecodeJSON(w, r, &in); err != nil {
		return "", err
	}
	return sanitizeInput(in.Notes), nil
}
