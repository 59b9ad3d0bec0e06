package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Omvpatil/RealEstate/internal/model"
)

// ProjectRepo provides access to the projects table.  Counter updates on
// available_units are guarded in SQL so concurrent bookings can never
// drive the value outside [0, total_units].
type ProjectRepo struct{ db *sql.DB }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{db: db} }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const projectCols = "id, builder_id, name, description, type, status, city, total_units, available_units, COALESCE(amenities, '[]'), created_at, updated_at"

func scanProject(s rowScanner) (model.Project, error) {
	var p model.Project
	var desc sql.NullString
	err := s.Scan(&p.ID, &p.BuilderID, &p.Name, &desc, &p.Type, &p.Status, &p.City,
		&p.TotalUnits, &p.AvailableUnits, &p.Amenities, &p.CreatedAt, &p.UpdatedAt)
	p.Description = desc.String
	return p, err
}

// Create inserts a project.  AvailableUnits starts equal to TotalUnits.
func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p.AvailableUnits = p.TotalUnits
	if len(p.Amenities) == 0 {
		p.Amenities = []byte("[]")
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (builder_id, name, description, type, status, city, total_units, available_units, amenities, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.BuilderID, p.Name, p.Description, p.Type, p.Status, p.City, p.TotalUnits, p.AvailableUnits, p.Amenities, p.CreatedAt, p.UpdatedAt)
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

// GetByID returns a project or sql.ErrNoRows.
func (r *ProjectRepo) GetByID(ctx context.Context, id uint64) (model.Project, error) {
	return scanProject(r.db.QueryRowContext(ctx, "SELECT "+projectCols+" FROM projects WHERE id = ?", id))
}

// GetByIDTx is GetByID inside a transaction.
func (r *ProjectRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Project, error) {
	return scanProject(tx.QueryRowContext(ctx, "SELECT "+projectCols+" FROM projects WHERE id = ?", id))
}

// UpdateTx writes name, description and status.  Unit counts are changed
// only through ResizeTx and the counter methods.
func (r *ProjectRepo) UpdateTx(ctx context.Context, tx *sql.Tx, p *model.Project) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, status = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.Status, p.UpdatedAt, p.ID)
	return err
}

// ResizeTx sets total_units and moves available_units by the same delta,
// so the booked count is preserved.  It returns false when the new total
// would be below the number of booked units.
func (r *ProjectRepo) ResizeTx(ctx context.Context, tx *sql.Tx, id uint64, total int) (bool, error) {
	// available_units is assigned first: MySQL evaluates single-table
	// assignments left to right, SQLite against the old row.
	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET available_units = available_units + (? - total_units), total_units = ?, updated_at = ?
		 WHERE id = ? AND total_units - available_units <= ?`,
		total, total, time.Now().UTC(), id, total)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// LockTx takes the row lock on a project for the rest of tx.  It returns
// sql.ErrNoRows when the project does not exist.
func (r *ProjectRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DecrementAvailableTx takes one unit out of the available counter.  It
// returns false when the counter is already zero.
func (r *ProjectRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET available_units = available_units - 1, updated_at = ? WHERE id = ? AND available_units > 0`,
		time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// IncrementAvailableTx returns one unit to the available counter.  It
// returns false when the counter is already at total_units.
func (r *ProjectRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET available_units = available_units + 1, updated_at = ? WHERE id = ? AND available_units < total_units`,
		time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CascadeResult reports how many rows each step of a project deletion
// removed.
type CascadeResult struct {
	Payments       int64 `json:"payments"`
	ChangeRequests int64 `json:"change_requests"`
	Bookings       int64 `json:"bookings"`
	Units          int64 `json:"units"`
	Appointments   int64 `json:"appointments"`
	// Notifications and Messages count rows kept as history whose
	// booking or project reference was cleared.
	Notifications int64 `json:"notifications_detached"`
	Messages      int64 `json:"messages_detached"`
}

// DeleteCascadeTx removes a project and everything beneath it in child to
// parent order.  Notifications and messages survive with their project and
// booking references set to NULL.  The project row itself is deleted last;
// sql.ErrNoRows is returned when it did not exist.
func (r *ProjectRepo) DeleteCascadeTx(ctx context.Context, tx *sql.Tx, id uint64) (CascadeResult, error) {
	const bookingsOfProject = `SELECT b.id FROM bookings b JOIN units u ON u.id = b.unit_id WHERE u.project_id = ?`
	var out CascadeResult
	steps := []struct {
		q   string
		dst *int64
	}{
		{"UPDATE notifications SET booking_id = NULL WHERE booking_id IN (" + bookingsOfProject + ")", &out.Notifications},
		{"UPDATE messages SET booking_id = NULL, project_id = NULL WHERE project_id = ? OR booking_id IN (" + bookingsOfProject + ")", &out.Messages},
		{"DELETE FROM payments WHERE booking_id IN (" + bookingsOfProject + ")", &out.Payments},
		{"DELETE FROM change_requests WHERE booking_id IN (" + bookingsOfProject + ")", &out.ChangeRequests},
		{"DELETE FROM bookings WHERE unit_id IN (SELECT id FROM units WHERE project_id = ?)", &out.Bookings},
		{"DELETE FROM units WHERE project_id = ?", &out.Units},
		{"DELETE FROM appointments WHERE project_id = ?", &out.Appointments},
	}
	for _, s := range steps {
		args := make([]any, strings.Count(s.q, "?"))
		for i := range args {
			args[i] = id
		}
		res, err := tx.ExecContext(ctx, s.q, args...)
		if err != nil {
			return out, err
		}
		if *s.dst, err = res.RowsAffected(); err != nil {
			return out, err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return out, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return out, err
	}
	if n == 0 {
		return out, sql.ErrNoRows
	}
	return out, nil
}

// ProjectFilter narrows project listings.  Empty fields are ignored.
type ProjectFilter struct {
	BuilderID uint64
	City      string
	Status    model.ProjectStatus
	Limit     int
	Offset    int
}

// List returns projects matching f ordered by newest first.
func (r *ProjectRepo) List(ctx context.Context, f ProjectFilter) ([]model.Project, error) {
	var (
		where []string
		args  []any
	)
	if f.BuilderID != 0 {
		where = append(where, "builder_id = ?")
		args = append(args, f.BuilderID)
	}
	if c := strings.TrimSpace(f.City); c != "" {
		where = append(where, "LOWER(city) = ?")
		args = append(args, strings.ToLower(c))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	q := "SELECT " + projectCols + " FROM projects"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// clampLimit bounds list sizes to 1..100 with a default of 20.
func clampLimit(n int) int {
	switch {
	case n <= 0:
		return 20
	case n > 100:
		return 100
	}
	return n
}
