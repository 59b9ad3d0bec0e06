package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Omvpatil/RealEstate/internal/model"
)

// BookingRepo provides access to the bookings table.  Updates are
// optimistic: every write names the version it read and bumps it, so a
// concurrent writer that read the same row fails instead of overwriting.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingCols = "id, customer_id, unit_id, status, payment_plan, total_amount, paid_amount, pending_amount, version, cancelled_at, created_at, updated_at"

func scanBooking(s rowScanner) (model.Booking, error) {
	var b model.Booking
	var cancelled sql.NullTime
	err := s.Scan(&b.ID, &b.CustomerID, &b.UnitID, &b.Status, &b.PaymentPlan,
		&b.TotalAmount, &b.PaidAmount, &b.PendingAmount, &b.Version, &cancelled,
		&b.CreatedAt, &b.UpdatedAt)
	if cancelled.Valid {
		t := cancelled.Time
		b.CancelledAt = &t
	}
	return b, err
}

// CreateTx inserts a booking within the caller's transaction and fills in
// its ID.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	b.Version = 0
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (customer_id, unit_id, status, payment_plan, total_amount, paid_amount, pending_amount, version, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.CustomerID, b.UnitID, b.Status, b.PaymentPlan, b.TotalAmount, b.PaidAmount, b.PendingAmount, b.Version, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns a booking or sql.ErrNoRows.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingCols+" FROM bookings WHERE id = ?", id))
}

// GetByIDTx is GetByID inside a transaction.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	return scanBooking(tx.QueryRowContext(ctx, "SELECT "+bookingCols+" FROM bookings WHERE id = ?", id))
}

// UpdateTx writes status, amounts and cancelled_at if the row still has
// b.Version.  On success b.Version is advanced; false means another writer
// got there first.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) (bool, error) {
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, paid_amount = ?, pending_amount = ?, cancelled_at = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		b.Status, b.PaidAmount, b.PendingAmount, b.CancelledAt, now, b.ID, b.Version)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n != 1 {
		return false, err
	}
	b.Version++
	b.UpdatedAt = now
	return true, nil
}

// CountActiveForUnitTx counts non-cancelled bookings on a unit other than
// exclude.
func (r *BookingRepo) CountActiveForUnitTx(ctx context.Context, tx *sql.Tx, unitID, exclude uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE unit_id = ? AND id <> ? AND status <> ?",
		unitID, exclude, model.BookingCancelled).Scan(&n)
	return n, err
}

// BookingView is a booking joined with the unit and project it refers to.
type BookingView struct {
	model.Booking
	UnitNumber  string
	ProjectID   uint64
	ProjectName string
	BuilderID   uint64
}

// Progress is paid/total as a percentage rounded to two places.
func (v BookingView) Progress() decimal.Decimal {
	return PaymentProgress(v.TotalAmount, v.PaidAmount)
}

// PaymentProgress returns paid/total*100 rounded to two decimals, or zero
// when total is not positive.
func PaymentProgress(total, paid decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return paid.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}

// Payment status filters used by the builder booking listing.
const (
	PaidFull    = "paid"
	PaidPartial = "partial"
	PaidNone    = "unpaid"
)

// BookingFilter narrows booking listings.  Empty fields are ignored.
type BookingFilter struct {
	CustomerID    uint64
	BuilderID     uint64
	ProjectID     uint64
	Status        model.BookingStatus
	PaymentStatus string
	Limit         int
	Offset        int
}

const bookingViewSelect = `SELECT b.id, b.customer_id, b.unit_id, b.status, b.payment_plan, b.total_amount, b.paid_amount,
       b.pending_amount, b.version, b.cancelled_at, b.created_at, b.updated_at,
       u.unit_number, p.id, p.name, p.builder_id
FROM bookings b
JOIN units u ON u.id = b.unit_id
JOIN projects p ON p.id = u.project_id`

func (f BookingFilter) where() (string, []any) {
	clause := " WHERE 1=1"
	var args []any
	if f.CustomerID != 0 {
		clause += " AND b.customer_id = ?"
		args = append(args, f.CustomerID)
	}
	if f.BuilderID != 0 {
		clause += " AND p.builder_id = ?"
		args = append(args, f.BuilderID)
	}
	if f.ProjectID != 0 {
		clause += " AND p.id = ?"
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clause += " AND b.status = ?"
		args = append(args, f.Status)
	}
	switch f.PaymentStatus {
	case PaidFull:
		clause += " AND b.pending_amount = 0"
	case PaidPartial:
		clause += " AND b.paid_amount > 0 AND b.pending_amount > 0"
	case PaidNone:
		clause += " AND b.paid_amount = 0"
	}
	return clause, args
}

// List returns bookings matching f, newest first.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]BookingView, error) {
	where, args := f.where()
	q := bookingViewSelect + where + " ORDER BY b.id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BookingView
	for rows.Next() {
		var v BookingView
		var cancelled sql.NullTime
		if err := rows.Scan(&v.ID, &v.CustomerID, &v.UnitID, &v.Status, &v.PaymentPlan,
			&v.TotalAmount, &v.PaidAmount, &v.PendingAmount, &v.Version, &cancelled,
			&v.CreatedAt, &v.UpdatedAt, &v.UnitNumber, &v.ProjectID, &v.ProjectName, &v.BuilderID); err != nil {
			return nil, err
		}
		if cancelled.Valid {
			t := cancelled.Time
			v.CancelledAt = &t
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// BookingStats aggregates a builder's bookings.  Cancelled bookings count
// towards Total only.
type BookingStats struct {
	Total          int             `json:"total_bookings"`
	Active         int             `json:"active_bookings"`
	Completed      int             `json:"completed_bookings"`
	Cancelled      int             `json:"cancelled_bookings"`
	Revenue        decimal.Decimal `json:"total_revenue"`
	PendingRevenue decimal.Decimal `json:"pending_revenue"`
}

// StatsForBuilder computes BookingStats over every project of a builder.
func (r *BookingRepo) StatsForBuilder(ctx context.Context, builderID uint64) (BookingStats, error) {
	var s BookingStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN b.status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN b.status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN b.status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN b.status <> ? THEN b.paid_amount ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN b.status <> ? THEN b.pending_amount ELSE 0 END), 0)
		 FROM bookings b
		 JOIN units u ON u.id = b.unit_id
		 JOIN projects p ON p.id = u.project_id
		 WHERE p.builder_id = ?`,
		model.BookingActive, model.BookingCompleted, model.BookingCancelled,
		model.BookingCancelled, model.BookingCancelled, builderID).
		Scan(&s.Total, &s.Active, &s.Completed, &s.Cancelled, &s.Revenue, &s.PendingRevenue)
	return s, err
}
