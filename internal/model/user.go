package model

import "time"

// Role is the account type carried in access tokens.
type Role string

const (
	RoleBuilder  Role = "builder"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleBuilder || r == RoleCustomer }

// User represents an application account as stored in the `users` table.
// Builders and customers each have a profile row keyed by user_id; all
// ownership checks compare against the profile ID, not the user ID.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role      `gorm:"type:varchar(16);not null;index" json:"role"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

// Builder is the seller-side profile.  Projects reference builders.id.
type Builder struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint64    `gorm:"not null;uniqueIndex" json:"user_id"`
	CompanyName   string    `gorm:"type:varchar(255);not null" json:"company_name"`
	LicenseNumber string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"license_number"`
	Phone         string    `gorm:"type:varchar(20);not null" json:"phone"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

// Customer is the buyer-side profile.  Bookings reference customers.id.
type Customer struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex" json:"user_id"`
	FirstName string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Phone     string    `gorm:"type:varchar(20);not null" json:"phone"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
