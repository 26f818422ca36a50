// Package services provides business logic and orchestration services.
//
// This file implements the strategy registry that turns a parent's chosen
// payment type into the amount they are asked to pay.

package services

import (
	"fmt"

	"feeledger/internal/core"
)

// AmountResolver is the strategy interface for pricing a payment type.
type AmountResolver interface {
	// Amount returns what a parent pays for this option given the
	// student's ledger. custom is the caller-supplied amount, if any.
	Amount(summary core.LedgerSummary, custom core.Money) (core.Money, error)
}

// BalanceDueResolver asks for the whole outstanding balance.
type BalanceDueResolver struct{}

func (BalanceDueResolver) Amount(summary core.LedgerSummary, _ core.Money) (core.Money, error) {
	if summary.BalanceDue <= 0 {
		return 0, fmt.Errorf("%w: nothing is due for %s", core.ErrInvalidInput, summary.StudentID)
	}
	return summary.BalanceDue, nil
}

// MonthlyFeeResolver asks for one month of the effective schedule.
type MonthlyFeeResolver struct{}

func (MonthlyFeeResolver) Amount(summary core.LedgerSummary, _ core.Money) (core.Money, error) {
	if summary.Schedule.Monthly <= 0 {
		return 0, fmt.Errorf("%w: no monthly fee set for %s", core.ErrInvalidInput, summary.StudentID)
	}
	return summary.Schedule.Monthly, nil
}

// CustomResolver takes the amount the parent typed in.
type CustomResolver struct{}

func (CustomResolver) Amount(_ core.LedgerSummary, custom core.Money) (core.Money, error) {
	if custom <= 0 {
		return 0, fmt.Errorf("%w: custom amount must be greater than zero", core.ErrInvalidInput)
	}
	return custom, nil
}

var amountResolvers = map[core.PaymentType]AmountResolver{
	core.PayBalanceDue: BalanceDueResolver{},
	core.PayMonthlyFee: MonthlyFeeResolver{},
	core.PayCustom:     CustomResolver{},
}

// GetAmountResolver returns the resolver for a payment type.
func GetAmountResolver(t core.PaymentType) (AmountResolver, error) {
	r, ok := amountResolvers[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment type %q", core.ErrInvalidInput, t)
	}
	return r, nil
}

// PaymentOption is one choice offered to a parent.
type PaymentOption struct {
	Type   core.PaymentType `json:"payment_type"`
	Amount core.Money       `json:"amount"`
}

// PaymentOptions lists the fixed-amount options available for a ledger.
// Custom is always offered, with a zero amount for the parent to fill in.
func PaymentOptions(summary core.LedgerSummary) []PaymentOption {
	out := make([]PaymentOption, 0, len(core.PaymentTypes))
	for _, t := range core.PaymentTypes {
		if t == core.PayCustom {
			out = append(out, PaymentOption{Type: t})
			continue
		}
		amt, err := amountResolvers[t].Amount(summary, 0)
		if err != nil {
			continue
		}
		out = append(out, PaymentOption{Type: t, Amount: amt})
	}
	return out
}
