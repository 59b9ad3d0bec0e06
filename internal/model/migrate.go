package model

import "gorm.io/gorm"

// AutoMigrate creates or updates every table.  No foreign keys are
// declared: ownership cascades are executed explicitly by the project
// deletion routine.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Builder{},
		&Customer{},
		&Project{},
		&Unit{},
		&Booking{},
		&Payment{},
		&Appointment{},
		&Message{},
		&ChangeRequest{},
		&Notification{},
		&SystemSetting{},
	)
}
