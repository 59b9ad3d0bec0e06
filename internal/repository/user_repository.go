package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Omvpatil/RealEstate/internal/database"
	"github.com/Omvpatil/RealEstate/internal/model"
	"github.com/Omvpatil/RealEstate/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,email,password_hash,role,is_active,created_at,updated_at"

// NewBuilder carries the profile fields collected at builder registration.
type NewBuilder struct {
	CompanyName   string
	LicenseNumber string
	Phone         string
}

// NewCustomer carries the profile fields collected at customer registration.
type NewCustomer struct {
	FirstName string
	LastName  string
	Phone     string
}

// CreateBuilder inserts the user row and its builder profile in one
// transaction.  A duplicate email or license number yields ErrEmailExists.
func (r *UserRepo) CreateBuilder(ctx context.Context, email, password string, cost int, p NewBuilder) (model.User, model.Builder, error) {
	var b model.Builder
	u, err := r.createUser(ctx, email, password, model.RoleBuilder, cost, func(tx *sql.Tx, u model.User) error {
		b = model.Builder{
			UserID:        u.ID,
			CompanyName:   strings.TrimSpace(p.CompanyName),
			LicenseNumber: strings.TrimSpace(p.LicenseNumber),
			Phone:         strings.TrimSpace(p.Phone),
			CreatedAt:     u.CreatedAt,
			UpdatedAt:     u.CreatedAt,
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO builders (user_id, company_name, license_number, phone, created_at, updated_at) VALUES (?,?,?,?,?,?)",
			b.UserID, b.CompanyName, b.LicenseNumber, b.Phone, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = uint64(id)
		return nil
	})
	return u, b, err
}

// CreateCustomer inserts the user row and its customer profile in one
// transaction.
func (r *UserRepo) CreateCustomer(ctx context.Context, email, password string, cost int, p NewCustomer) (model.User, model.Customer, error) {
	var c model.Customer
	u, err := r.createUser(ctx, email, password, model.RoleCustomer, cost, func(tx *sql.Tx, u model.User) error {
		c = model.Customer{
			UserID:    u.ID,
			FirstName: strings.TrimSpace(p.FirstName),
			LastName:  strings.TrimSpace(p.LastName),
			Phone:     strings.TrimSpace(p.Phone),
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.CreatedAt,
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO customers (user_id, first_name, last_name, phone, created_at, updated_at) VALUES (?,?,?,?,?,?)",
			c.UserID, c.FirstName, c.LastName, c.Phone, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = uint64(id)
		return nil
	})
	return u, c, err
}

func (r *UserRepo) createUser(ctx context.Context, email, password string, role model.Role, cost int, profile func(*sql.Tx, model.User) error) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	now := time.Now().UTC()
	u := model.User{Email: email, PasswordHash: hash, Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if database.IsDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	u.ID = uint64(id)

	if err := profile(tx, u); err != nil {
		if database.IsDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	committed = true
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// BuilderByUser returns the builder profile of a user, or sql.ErrNoRows.
func (r *UserRepo) BuilderByUser(ctx context.Context, userID uint64) (model.Builder, error) {
	var b model.Builder
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,company_name,license_number,phone,created_at,updated_at FROM builders WHERE user_id=? LIMIT 1",
		userID).Scan(&b.ID, &b.UserID, &b.CompanyName, &b.LicenseNumber, &b.Phone, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CustomerByUser returns the customer profile of a user, or sql.ErrNoRows.
func (r *UserRepo) CustomerByUser(ctx context.Context, userID uint64) (model.Customer, error) {
	var c model.Customer
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,first_name,last_name,phone,created_at,updated_at FROM customers WHERE user_id=? LIMIT 1",
		userID).Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CustomerUserID maps a customer profile back to its user ID, for
// notifications.
func (r *UserRepo) CustomerUserID(ctx context.Context, customerID uint64) (uint64, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx, "SELECT user_id FROM customers WHERE id=?", customerID).Scan(&id)
	return id, err
}

// BuilderUserID maps a builder profile back to its user ID.
func (r *UserRepo) BuilderUserID(ctx context.Context, builderID uint64) (uint64, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx, "SELECT user_id FROM builders WHERE id=?", builderID).Scan(&id)
	return id, err
}
