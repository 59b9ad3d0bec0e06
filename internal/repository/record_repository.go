package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Omvpatil/RealEstate/internal/model"
)

// RecordStore covers the simple record types that carry no cross-entity
// numeric invariants: appointments, messages, change requests,
// notifications and system settings.
type RecordStore interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id uint64) (*model.Appointment, error)
	ListAppointmentsForCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.Appointment, error)
	ListAppointmentsForBuilder(ctx context.Context, builderID uint64, limit, offset int) ([]model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uint64, status model.AppointmentStatus, scheduledAt *time.Time) error

	CreateMessage(ctx context.Context, m *model.Message) error
	ListInbox(ctx context.Context, userID uint64, limit, offset int) ([]model.Message, error)
	ListOutbox(ctx context.Context, userID uint64, limit, offset int) ([]model.Message, error)
	MarkMessageRead(ctx context.Context, id, recipientID uint64) error

	CreateChangeRequest(ctx context.Context, cr *model.ChangeRequest) error
	GetChangeRequest(ctx context.Context, id uint64) (*model.ChangeRequest, error)
	ListChangeRequests(ctx context.Context, bookingID uint64) ([]model.ChangeRequest, error)
	UpdateChangeRequestStatus(ctx context.Context, id uint64, status model.ChangeRequestStatus, note string) error

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID uint64, unreadOnly bool, limit, offset int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uint64) error

	GetSetting(ctx context.Context, key string) (*model.SystemSetting, error)
	ListSettings(ctx context.Context) ([]model.SystemSetting, error)
	PutSetting(ctx context.Context, s *model.SystemSetting) error
}

// GormRecordRepository implements RecordStore on gorm.
type GormRecordRepository struct {
	db *gorm.DB
}

func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// notFound maps gorm's missing-row error onto the shared taxonomy.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound.Wrap(err)
	}
	return err
}

// affected turns a zero-row update into ErrNotFound.
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func page(q *gorm.DB, limit, offset int) *gorm.DB {
	return q.Limit(clampLimit(limit)).Offset(max(offset, 0))
}

func (r *GormRecordRepository) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *GormRecordRepository) GetAppointment(ctx context.Context, id uint64) (*model.Appointment, error) {
	var a model.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *GormRecordRepository) ListAppointmentsForCustomer(ctx context.Context, customerID uint64, limit, offset int) ([]model.Appointment, error) {
	var out []model.Appointment
	err := page(r.db.WithContext(ctx).Where("customer_id = ?", customerID), limit, offset).
		Order("scheduled_at DESC").Find(&out).Error
	return out, err
}

// ListAppointmentsForBuilder returns appointments on any project owned by
// the builder.
func (r *GormRecordRepository) ListAppointmentsForBuilder(ctx context.Context, builderID uint64, limit, offset int) ([]model.Appointment, error) {
	var out []model.Appointment
	q := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Joins("JOIN projects ON projects.id = appointments.project_id").
		Where("projects.builder_id = ?", builderID)
	err := page(q, limit, offset).Order("appointments.scheduled_at DESC").Find(&out).Error
	return out, err
}

func (r *GormRecordRepository) UpdateAppointmentStatus(ctx context.Context, id uint64, status model.AppointmentStatus, scheduledAt *time.Time) error {
	update := map[string]any{"status": status}
	if scheduledAt != nil {
		update["scheduled_at"] = scheduledAt.UTC()
	}
	return affected(r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ?", id).
		Updates(update))
}

func (r *GormRecordRepository) CreateMessage(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *GormRecordRepository) ListInbox(ctx context.Context, userID uint64, limit, offset int) ([]model.Message, error) {
	var out []model.Message
	err := page(r.db.WithContext(ctx).Where("recipient_id = ?", userID), limit, offset).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *GormRecordRepository) ListOutbox(ctx context.Context, userID uint64, limit, offset int) ([]model.Message, error) {
	var out []model.Message
	err := page(r.db.WithContext(ctx).Where("sender_id = ?", userID), limit, offset).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

// MarkMessageRead sets read_at once; only the recipient may mark a message.
func (r *GormRecordRepository) MarkMessageRead(ctx context.Context, id, recipientID uint64) error {
	var m model.Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return notFound(err)
	}
	if m.RecipientID != recipientID {
		return ErrForbidden
	}
	if m.ReadAt != nil {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", time.Now().UTC()).Error
}

func (r *GormRecordRepository) CreateChangeRequest(ctx context.Context, cr *model.ChangeRequest) error {
	return r.db.WithContext(ctx).Create(cr).Error
}

func (r *GormRecordRepository) GetChangeRequest(ctx context.Context, id uint64) (*model.ChangeRequest, error) {
	var cr model.ChangeRequest
	if err := r.db.WithContext(ctx).First(&cr, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &cr, nil
}

func (r *GormRecordRepository) ListChangeRequests(ctx context.Context, bookingID uint64) ([]model.ChangeRequest, error) {
	var out []model.ChangeRequest
	err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("created_at").Find(&out).Error
	return out, err
}

func (r *GormRecordRepository) UpdateChangeRequestStatus(ctx context.Context, id uint64, status model.ChangeRequestStatus, note string) error {
	update := map[string]any{"status": status}
	if note != "" {
		update["builder_note"] = note
	}
	return affected(r.db.WithContext(ctx).
		Model(&model.ChangeRequest{}).
		Where("id = ?", id).
		Updates(update))
}

func (r *GormRecordRepository) CreateNotification(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *GormRecordRepository) ListNotifications(ctx context.Context, userID uint64, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	var out []model.Notification
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	err := page(q, limit, offset).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *GormRecordRepository) MarkNotificationRead(ctx context.Context, id, userID uint64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", time.Now().UTC())
	return affected(res)
}

func (r *GormRecordRepository) GetSetting(ctx context.Context, key string) (*model.SystemSetting, error) {
	var s model.SystemSetting
	if err := r.db.WithContext(ctx).First(&s, "`key` = ?", key).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *GormRecordRepository) ListSettings(ctx context.Context) ([]model.SystemSetting, error) {
	var out []model.SystemSetting
	err := r.db.WithContext(ctx).Order("`key`").Find(&out).Error
	return out, err
}

// PutSetting inserts or replaces a setting.
func (r *GormRecordRepository) PutSetting(ctx context.Context, s *model.SystemSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(s).Error
}
