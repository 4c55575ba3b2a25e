package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/chulseok-go-api/internal/models"
)

// StudentRepository provides access to student profiles.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByUserID(ctx context.Context, userID uint) (models.Student, error)
	GetByExternalID(ctx context.Context, externalID string) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	ListByClass(ctx context.Context, grade, classNumber string) ([]models.Student, error)
	CountByClass(ctx context.Context, grade, classNumber string) (int64, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByUserID(ctx context.Context, userID uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByExternalID(ctx context.Context, externalID string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) Update(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *studentRepository) ListByClass(ctx context.Context, grade, classNumber string) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("grade = ? AND class_number = ?", grade, classNumber).
		Order("roll_number ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) CountByClass(ctx context.Context, grade, classNumber string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("grade = ? AND class_number = ?", grade, classNumber).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}
