package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingInquiry            BookingStatus = "inquiry"
	BookingSiteVisitScheduled BookingStatus = "site_visit_scheduled"
	BookingTokenPaid          BookingStatus = "token_paid"
	BookingConfirmed          BookingStatus = "booking_confirmed"
	BookingPending            BookingStatus = "pending"
	BookingActive             BookingStatus = "active"
	BookingCompleted          BookingStatus = "completed"
	BookingCancelled          BookingStatus = "cancelled"
)

// PreActive reports whether the booking has not yet received a payment
// that moved it to active.
func (s BookingStatus) PreActive() bool {
	switch s {
	case BookingInquiry, BookingSiteVisitScheduled, BookingTokenPaid, BookingConfirmed, BookingPending:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

type PaymentPlan string

const (
	PlanFullPayment  PaymentPlan = "full_payment"
	PlanInstallments PaymentPlan = "installments"
	PlanLoan         PaymentPlan = "loan"
)

func (p PaymentPlan) Valid() bool {
	return p == PlanFullPayment || p == PlanInstallments || p == PlanLoan
}

// Booking is a reservation of one unit by one customer.  PaidAmount is a
// cache of the sum of the booking's payment rows; PendingAmount is
// TotalAmount minus PaidAmount and never negative.
//
// Fields:
//
//	CustomerID  – customers.id of the buyer.
//	UnitID      – units.id being reserved.
//	Version     – optimistic lock for amount/status updates.
//	CancelledAt – set once when the booking is cancelled.
type Booking struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID    uint64          `gorm:"not null;index" json:"customer_id"`
	UnitID        uint64          `gorm:"not null;index" json:"unit_id"`
	Status        BookingStatus   `gorm:"type:varchar(32);not null;index" json:"status"`
	PaymentPlan   PaymentPlan     `gorm:"type:varchar(16);not null" json:"payment_plan"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"paid_amount"`
	PendingAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"pending_amount"`
	Version       uint32          `gorm:"not null;default:0" json:"version"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type PaymentType string

const (
	PaymentToken       PaymentType = "token"
	PaymentInstallment PaymentType = "installment"
	PaymentFinal       PaymentType = "final"
	PaymentMaintenance PaymentType = "maintenance"
	PaymentPenalty     PaymentType = "penalty"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentToken, PaymentInstallment, PaymentFinal, PaymentMaintenance, PaymentPenalty:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCheque       PaymentMethod = "cheque"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOnline       PaymentMethod = "online"
	MethodLoan         PaymentMethod = "loan"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCheque, MethodBankTransfer, MethodOnline, MethodLoan:
		return true
	}
	return false
}

// Payment is an append-only ledger entry for a booking.
type Payment struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingID     uint64          `gorm:"not null;index" json:"booking_id"`
	Type          PaymentType     `gorm:"type:varchar(16);not null;index" json:"type"`
	Method        PaymentMethod   `gorm:"type:varchar(16);not null" json:"method"`
	Status        PaymentStatus   `gorm:"type:varchar(16);not null;index" json:"status"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	TransactionID string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"transaction_id"`
	Notes         string          `gorm:"type:text" json:"notes"`
	PaidAt        time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
}
