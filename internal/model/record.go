package model

import (
	"time"

	"gorm.io/datatypes"
)

type AppointmentStatus string

const (
	AppointmentScheduled   AppointmentStatus = "scheduled"
	AppointmentConfirmed   AppointmentStatus = "confirmed"
	AppointmentCompleted   AppointmentStatus = "completed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
)

// Appointment is a site visit or meeting between a customer and the
// builder of a project.
type Appointment struct {
	ID              uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID      uint64            `gorm:"not null;index" json:"customer_id"`
	ProjectID       uint64            `gorm:"not null;index" json:"project_id"`
	ScheduledAt     time.Time         `gorm:"not null;index" json:"scheduled_at"`
	DurationMinutes int               `gorm:"not null;default:60" json:"duration_minutes"`
	Location        string            `gorm:"type:varchar(16);not null;default:'site'" json:"location"`
	Status          AppointmentStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Attendees       datatypes.JSON    `gorm:"type:json" json:"attendees,omitempty"`
	Agenda          string            `gorm:"type:text" json:"agenda,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Message is a direct message between two users, optionally about a
// project or booking.
type Message struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID    uint64     `gorm:"not null;index" json:"sender_id"`
	RecipientID uint64     `gorm:"not null;index" json:"recipient_id"`
	ProjectID   *uint64    `gorm:"index" json:"project_id,omitempty"`
	BookingID   *uint64    `gorm:"index" json:"booking_id,omitempty"`
	Subject     string     `gorm:"type:varchar(255);not null" json:"subject"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ChangeRequestStatus string

const (
	ChangeSubmitted   ChangeRequestStatus = "submitted"
	ChangeUnderReview ChangeRequestStatus = "under_review"
	ChangeApproved    ChangeRequestStatus = "approved"
	ChangeRejected    ChangeRequestStatus = "rejected"
	ChangeCompleted   ChangeRequestStatus = "completed"
)

// ChangeRequest asks the builder to modify a booked unit.
type ChangeRequest struct {
	ID          uint64              `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingID   uint64              `gorm:"not null;index" json:"booking_id"`
	Type        string              `gorm:"type:varchar(16);not null" json:"type"`
	Description string              `gorm:"type:text;not null" json:"description"`
	Status      ChangeRequestStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	BuilderNote string              `gorm:"type:text" json:"builder_note,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type NotificationType string

const (
	NotifyBookingUpdate NotificationType = "booking_update"
	NotifyPayment       NotificationType = "payment_recorded"
	NotifyChangeRequest NotificationType = "change_request_update"
	NotifyMessage       NotificationType = "message_received"
)

// Notification is an in-app notice for a user.  Rows are never written
// inside a booking or payment transaction.
type Notification struct {
	ID        uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64           `gorm:"not null;index" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Body      string           `gorm:"type:text" json:"body"`
	BookingID *uint64          `gorm:"index" json:"booking_id,omitempty"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// SystemSetting is a key/value pair with a JSON value.
type SystemSetting struct {
	Key       string         `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     datatypes.JSON `gorm:"type:json;not null" json:"value"`
	UpdatedBy uint64         `gorm:"not null" json:"updated_by"`
	UpdatedAt time.Time      `json:"updated_at"`
}
