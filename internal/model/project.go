package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ProjectStatus string

const (
	ProjectPlanning     ProjectStatus = "planning"
	ProjectConstruction ProjectStatus = "construction"
	ProjectCompleted    ProjectStatus = "completed"
	ProjectDelivered    ProjectStatus = "delivered"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectConstruction, ProjectCompleted, ProjectDelivered:
		return true
	}
	return false
}

type ProjectType string

const (
	ProjectResidential ProjectType = "residential"
	ProjectCommercial  ProjectType = "commercial"
	ProjectMixed       ProjectType = "mixed"
)

// Project is a development owned by a builder.  AvailableUnits is a counter
// maintained by the booking flow and always stays within [0, TotalUnits].
//
// Fields:
//
//	BuilderID      – builders.id of the owner.
//	TotalUnits     – sellable units in the project.
//	AvailableUnits – units not held by an active booking.
//	Amenities      – free-form JSON list shown on public pages.
type Project struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	BuilderID      uint64         `gorm:"not null;index" json:"builder_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	Type           ProjectType    `gorm:"type:varchar(16);not null" json:"type"`
	Status         ProjectStatus  `gorm:"type:varchar(16);not null;index" json:"status"`
	City           string         `gorm:"type:varchar(100);not null;index" json:"city"`
	TotalUnits     int            `gorm:"not null" json:"total_units"`
	AvailableUnits int            `gorm:"not null" json:"available_units"`
	Amenities      datatypes.JSON `gorm:"type:json" json:"amenities"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

// BookedUnits is the number of units currently held by active bookings.
func (p Project) BookedUnits() int { return p.TotalUnits - p.AvailableUnits }

type UnitStatus string

const (
	UnitAvailable UnitStatus = "available"
	UnitBooked    UnitStatus = "booked"
	UnitSold      UnitStatus = "sold"
	UnitReserved  UnitStatus = "reserved"
)

// Unit is a sellable item inside a project.  Version is bumped by every
// status change so concurrent writers can detect each other.
type Unit struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID  uint64          `gorm:"not null;index" json:"project_id"`
	UnitNumber string          `gorm:"type:varchar(50);not null" json:"unit_number"`
	UnitType   string          `gorm:"type:varchar(16);not null" json:"unit_type"`
	Floor      int             `gorm:"not null" json:"floor"`
	AreaSqft   decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"area_sqft"`
	Price      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Status     UnitStatus      `gorm:"type:varchar(16);not null;index" json:"status"`
	Version    uint32          `gorm:"not null;default:0" json:"version"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}
