package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"feeledger/internal/core"
)

// PaymentRequestInput is what a parent submits.
type PaymentRequestInput struct {
	StudentID   string     `json:"student_id"`
	ParentEmail string     `json:"parent_email"`
	PaymentType string     `json:"payment_type"`
	Method      string     `json:"payment_method"`
	Amount      core.Money `json:"amount"`
	Notes       string     `json:"notes"`
}

// PaymentRequestService handles parent payment claims and their review.
type PaymentRequestService struct {
	fees *FeeService
	// mu serializes decisions so a request is settled at most once.
	mu sync.Mutex
}

func NewPaymentRequestService(fees *FeeService) *PaymentRequestService {
	return &PaymentRequestService{fees: fees}
}

// Options prices every payment type for a student.
func (p *PaymentRequestService) Options(ctx context.Context, studentID string) ([]PaymentOption, error) {
	summary, err := p.fees.Ledger(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return PaymentOptions(summary), nil
}

// Submit records a pending request. The amount comes from the payment
// type's resolver; only Custom uses in.Amount.
func (p *PaymentRequestService) Submit(ctx context.Context, in PaymentRequestInput) (core.PaymentRequest, error) {
	ptype, err := core.ParsePaymentType(in.PaymentType)
	if err != nil {
		return core.PaymentRequest{}, err
	}
	method, err := core.ParsePaymentMethod(in.Method)
	if err != nil {
		return core.PaymentRequest{}, err
	}
	resolver, err := GetAmountResolver(ptype)
	if err != nil {
		return core.PaymentRequest{}, err
	}
	summary, err := p.fees.Ledger(ctx, in.StudentID)
	if err != nil {
		return core.PaymentRequest{}, err
	}
	amount, err := resolver.Amount(summary, in.Amount)
	if err != nil {
		return core.PaymentRequest{}, err
	}

	now := p.fees.now()
	req := core.PaymentRequest{
		RequestID:   core.NewRequestID(now),
		StudentID:   in.StudentID,
		ParentEmail: strings.TrimSpace(in.ParentEmail),
		Amount:      amount,
		PaymentType: ptype,
		Method:      method,
		Status:      core.StatusPending,
		RequestedAt: now,
		Notes:       strings.TrimSpace(in.Notes),
	}
	if err := p.fees.store.SaveRequest(ctx, req); err != nil {
		return core.PaymentRequest{}, fmt.Errorf("save payment request: %w", err)
	}
	slog.InfoContext(ctx, "Payment request submitted",
		"request_id", req.RequestID,
		"student_id", req.StudentID,
		"payment_type", req.PaymentType,
		"amount", req.Amount.Int64())
	return req, nil
}

// Verify accepts a pending request and appends its settlement record to
// the ledger. It returns the updated request and the new record.
func (p *PaymentRequestService) Verify(ctx context.Context, requestID, notes string) (core.PaymentRequest, core.PaymentRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, err := p.fees.store.GetRequest(ctx, requestID)
	if err != nil {
		return core.PaymentRequest{}, core.PaymentRecord{}, err
	}
	st, err := p.fees.store.GetStudent(ctx, req.StudentID)
	if err != nil {
		return core.PaymentRequest{}, core.PaymentRecord{}, err
	}
	pending := req
	now := p.fees.now()
	if err := req.Decide(core.StatusVerified, notes, now); err != nil {
		return core.PaymentRequest{}, core.PaymentRecord{}, err
	}
	settlement := req.SettlementRecord(st, now)
	if err := req.Validate(); err != nil {
		return core.PaymentRequest{}, core.PaymentRecord{}, err
	}
	if err := settlement.Validate(); err != nil {
		return core.PaymentRequest{}, core.PaymentRecord{}, err
	}

	// Close the request before the money lands; a failed append reopens it
	// so it can never be settled twice.
	if err := p.fees.store.SaveRequest(ctx, req); err != nil {
		return core.PaymentRequest{}, core.PaymentRecord{}, fmt.Errorf("save payment request: %w", err)
	}
	rec, err := p.fees.appendRecord(ctx, settlement)
	if err != nil {
		if rerr := p.fees.store.SaveRequest(ctx, pending); rerr != nil {
			slog.ErrorContext(ctx, "Request verified without settlement and could not be reopened",
				"request_id", req.RequestID,
				"error", rerr)
		}
		return core.PaymentRequest{}, core.PaymentRecord{}, err
	}
	slog.InfoContext(ctx, "Payment request verified",
		"request_id", req.RequestID,
		"record_id", rec.ID,
		"amount", req.Amount.Int64())
	return req, rec, nil
}

// Reject closes a pending request without touching the ledger.
func (p *PaymentRequestService) Reject(ctx context.Context, requestID, notes string) (core.PaymentRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, err := p.fees.store.GetRequest(ctx, requestID)
	if err != nil {
		return core.PaymentRequest{}, err
	}
	if err := req.Decide(core.StatusRejected, notes, p.fees.now()); err != nil {
		return core.PaymentRequest{}, err
	}
	if err := p.fees.store.SaveRequest(ctx, req); err != nil {
		return core.PaymentRequest{}, fmt.Errorf("save payment request: %w", err)
	}
	slog.InfoContext(ctx, "Payment request rejected", "request_id", req.RequestID)
	return req, nil
}

// Requests lists one student's requests, or all pending ones when
// studentID is empty.
func (p *PaymentRequestService) Requests(ctx context.Context, studentID string) ([]core.PaymentRequest, error) {
	if studentID == "" {
		return p.fees.store.ListPending(ctx)
	}
	return p.fees.store.ListRequests(ctx, studentID)
}
