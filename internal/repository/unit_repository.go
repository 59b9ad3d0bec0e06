package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Omvpatil/RealEstate/internal/model"
)

// UnitRepo provides access to the units table.  Status transitions are
// compare-and-swap updates keyed on the current status, so two writers
// racing for the same unit cannot both succeed.
type UnitRepo struct{ db *sql.DB }

func NewUnitRepo(db *sql.DB) *UnitRepo { return &UnitRepo{db: db} }

const unitCols = "id, project_id, unit_number, unit_type, floor, area_sqft, price, status, version, created_at, updated_at"

func scanUnit(s rowScanner) (model.Unit, error) {
	var u model.Unit
	err := s.Scan(&u.ID, &u.ProjectID, &u.UnitNumber, &u.UnitType, &u.Floor, &u.AreaSqft,
		&u.Price, &u.Status, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateTx inserts a unit with status available.
func (r *UnitRepo) CreateTx(ctx context.Context, tx *sql.Tx, u *model.Unit) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Status = model.UnitAvailable
	u.Version = 0
	res, err := tx.ExecContext(ctx,
		`INSERT INTO units (project_id, unit_number, unit_type, floor, area_sqft, price, status, version, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.ProjectID, u.UnitNumber, u.UnitType, u.Floor, u.AreaSqft, u.Price, u.Status, u.Version, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByID returns a unit or sql.ErrNoRows.
func (r *UnitRepo) GetByID(ctx context.Context, id uint64) (model.Unit, error) {
	return scanUnit(r.db.QueryRowContext(ctx, "SELECT "+unitCols+" FROM units WHERE id = ?", id))
}

// GetByIDTx is GetByID inside a transaction.
func (r *UnitRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Unit, error) {
	return scanUnit(tx.QueryRowContext(ctx, "SELECT "+unitCols+" FROM units WHERE id = ?", id))
}

// CountByProjectTx returns how many units exist in a project.
func (r *UnitRepo) CountByProjectTx(ctx context.Context, tx *sql.Tx, projectID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM units WHERE project_id = ?", projectID).Scan(&n)
	return n, err
}

// transitionTx moves a unit from one status to another.  It reports false
// when the unit was not in the expected status.
func (r *UnitRepo) transitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.UnitStatus) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE units SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReserveTx marks an available unit booked.  False means another booking
// already holds it.
func (r *UnitRepo) ReserveTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	return r.transitionTx(ctx, tx, id, model.UnitAvailable, model.UnitBooked)
}

// ReleaseTx returns a booked unit to available.
func (r *UnitRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	return r.transitionTx(ctx, tx, id, model.UnitBooked, model.UnitAvailable)
}

// MarkSoldTx marks a booked unit sold once its booking is fully paid.
func (r *UnitRepo) MarkSoldTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	return r.transitionTx(ctx, tx, id, model.UnitBooked, model.UnitSold)
}

// UpdateDetailsTx writes number, price and area, guarded on the version the
// caller read and on the unit still being available.
func (r *UnitRepo) UpdateDetailsTx(ctx context.Context, tx *sql.Tx, u *model.Unit) (bool, error) {
	u.UpdatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE units SET unit_number = ?, price = ?, area_sqft = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND status = ?`,
		u.UnitNumber, u.Price, u.AreaSqft, u.UpdatedAt, u.ID, u.Version, model.UnitAvailable)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n != 1 {
		return false, err
	}
	u.Version++
	return true, nil
}

// ListByProject returns units of a project ordered by floor and number.
// When onlyAvailable is set, booked and sold units are skipped.
func (r *UnitRepo) ListByProject(ctx context.Context, projectID uint64, onlyAvailable bool) ([]model.Unit, error) {
	q := "SELECT " + unitCols + " FROM units WHERE project_id = ?"
	args := []any{projectID}
	if onlyAvailable {
		q += " AND status = ?"
		args = append(args, model.UnitAvailable)
	}
	q += " ORDER BY floor, unit_number"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
