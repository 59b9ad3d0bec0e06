package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Omvpatil/RealEstate/internal/model"
)

// PaymentRepo appends to and reads the payments ledger.  Rows are never
// updated or deleted outside a project cascade.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentCols = "id, booking_id, type, method, status, amount, transaction_id, notes, paid_at, created_at"

// CreateTx inserts a ledger entry within the caller's transaction.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	p.CreatedAt = time.Now().UTC()
	if p.PaidAt.IsZero() {
		p.PaidAt = p.CreatedAt
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (booking_id, type, method, status, amount, transaction_id, notes, paid_at, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.BookingID, p.Type, p.Method, p.Status, p.Amount, p.TransactionID, p.Notes, p.PaidAt, p.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByBooking returns a booking's payments in the order they were made.
func (r *PaymentRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+paymentCols+" FROM payments WHERE booking_id = ? ORDER BY paid_at, id", bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		var notes sql.NullString
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Type, &p.Method, &p.Status, &p.Amount,
			&p.TransactionID, &notes, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Notes = notes.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// SumCompleted returns the total of a booking's completed payments.  This
// is the value bookings.paid_amount caches.
func (r *PaymentRepo) SumCompleted(ctx context.Context, bookingID uint64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE booking_id = ? AND status = ?",
		bookingID, model.PaymentCompleted).Scan(&sum)
	return sum, err
}
