package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Omvpatil/RealEstate/internal/config"
	"github.com/Omvpatil/RealEstate/internal/model"
)

// LedgerResult is the booking state after applying one payment.
type LedgerResult struct {
	Paid    decimal.Decimal
	Pending decimal.Decimal
	Status  model.BookingStatus
	// Excess is the part of the payment above the pending amount.  It is
	// only non-zero under the clamp policy.
	Excess decimal.Decimal
}

// Warning describes a clamped overpayment, or is empty.
func (r LedgerResult) Warning() string {
	if !r.Excess.IsPositive() {
		return ""
	}
	return fmt.Sprintf("payment exceeds the pending amount by %s; pending amount clamped to 0", r.Excess.StringFixed(2))
}

// centScale is the number of decimal places every money column stores.
const centScale = 2

// isMoney reports whether d is positive and fits the stored scale without
// rounding.
func isMoney(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(centScale))
}

// ApplyPayment computes the booking aggregates and status after a payment
// of amount.  Paid always grows by the full amount so it keeps matching the
// sum of the ledger rows; Pending never goes below zero.
//
// Status rules:
//
//	pending == 0                      -> completed
//	0 < paid < total, pre-active prior -> active
//	otherwise                          -> unchanged
func ApplyPayment(b model.Booking, amount decimal.Decimal, policy string) (LedgerResult, error) {
	if !isMoney(amount) {
		return LedgerResult{}, ErrInvalidAmount
	}
	switch b.Status {
	case model.BookingCancelled:
		return LedgerResult{}, ErrBookingCancelled
	case model.BookingCompleted:
		return LedgerResult{}, ErrBookingTerminal
	}

	res := LedgerResult{Paid: b.PaidAmount.Add(amount), Status: b.Status, Excess: decimal.Zero}
	remaining := b.TotalAmount.Sub(res.Paid)
	if remaining.IsNegative() {
		if policy != config.OverpaymentClamp {
			return LedgerResult{}, ErrOverpaymentRejected
		}
		res.Excess = remaining.Neg()
		remaining = decimal.Zero
	}
	res.Pending = remaining

	switch {
	case res.Pending.IsZero():
		res.Status = model.BookingCompleted
	case res.Paid.IsPositive() && b.Status.PreActive():
		res.Status = model.BookingActive
	}
	return res, nil
}
