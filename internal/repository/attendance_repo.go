package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/chulseok-go-api/internal/models"
)

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	ClassID uint
	Date    *time.Time
	Status  models.AttendanceStatus
}

// AttendanceRepository owns attendance events and their per-student rows.
type AttendanceRepository interface {
	// CreateWithDetails persists the event and all detail rows in one
	// transaction. A duplicate (class, date, period) triple surfaces as
	// gorm.ErrDuplicatedKey from the unique index.
	CreateWithDetails(ctx context.Context, attendance *models.Attendance, details []models.AttendanceDetail) error
	GetByID(ctx context.Context, id uint) (models.Attendance, error)
	ListDetails(ctx context.Context, attendanceID uint) ([]models.AttendanceDetail, error)
	// TransitionFromPending performs an atomic compare-and-set of the
	// status, only succeeding while the record is still PENDING. The flag
	// reports whether a row was updated.
	TransitionFromPending(ctx context.Context, id uint, status models.AttendanceStatus, teacherID uint) (bool, error)
	List(ctx context.Context, filter AttendanceFilter) ([]models.Attendance, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository constructs an attendance repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) CreateWithDetails(ctx context.Context, attendance *models.Attendance, details []models.AttendanceDetail) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attendance).Error; err != nil {
			return err
		}

		for i := range details {
			details[i].AttendanceID = attendance.ID
		}

		if len(details) > 0 {
			if err := tx.Create(&details).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *attendanceRepository) GetByID(ctx context.Context, id uint) (models.Attendance, error) {
	var attendance models.Attendance
	if err := r.db.WithContext(ctx).First(&attendance, id).Error; err != nil {
		return models.Attendance{}, err
	}

	return attendance, nil
}

func (r *attendanceRepository) ListDetails(ctx context.Context, attendanceID uint) ([]models.AttendanceDetail, error) {
	var details []models.AttendanceDetail
	err := r.db.WithContext(ctx).
		Where("attendance_id = ?", attendanceID).
		Order("student_id ASC").
		Find(&details).Error
	if err != nil {
		return nil, err
	}

	return details, nil
}

func (r *attendanceRepository) TransitionFromPending(ctx context.Context, id uint, status models.AttendanceStatus, teacherID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Where("id = ? AND status = ?", id, models.AttendanceStatusPending).
		Updates(map[string]interface{}{
			"status":         status,
			"approved_by_id": teacherID,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *attendanceRepository) List(ctx context.Context, filter AttendanceFilter) ([]models.Attendance, error) {
	query := r.db.WithContext(ctx).Model(&models.Attendance{})

	if filter.ClassID != 0 {
		query = query.Where("class_id = ?", filter.ClassID)
	}
	if filter.Date != nil {
		query = query.Where("date = ?", *filter.Date)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var attendances []models.Attendance
	if err := query.Order("date DESC, period ASC").Find(&attendances).Error; err != nil {
		return nil, err
	}

	return attendances, nil
}
