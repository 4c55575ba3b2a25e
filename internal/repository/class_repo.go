package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/chulseok-go-api/internal/models"
)

// ClassRepository provides access to homeroom sections.
type ClassRepository interface {
	GetByID(ctx context.Context, id uint) (models.Class, error)
	GetByGradeClass(ctx context.Context, grade, classNumber string) (models.Class, error)
	// GetOrCreate resolves the class for a grade/section pair, creating it
	// with a zero student counter when absent.
	GetOrCreate(ctx context.Context, grade, classNumber string) (models.Class, bool, error)
	// AdjustTotalStudents moves the denormalized student counter by delta.
	AdjustTotalStudents(ctx context.Context, id uint, delta int) error
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository constructs a class repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) GetByID(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.Class{}, err
	}

	return class, nil
}

func (r *classRepository) GetByGradeClass(ctx context.Context, grade, classNumber string) (models.Class, error) {
	var class models.Class
	err := r.db.WithContext(ctx).
		Where("grade = ? AND class_number = ?", grade, classNumber).
		First(&class).Error
	if err != nil {
		return models.Class{}, err
	}

	return class, nil
}

func (r *classRepository) GetOrCreate(ctx context.Context, grade, classNumber string) (models.Class, bool, error) {
	existing, err := r.GetByGradeClass(ctx, grade, classNumber)
	if err == nil {
		return existing, false, nil
	}

	class := models.Class{
		Name:        models.ClassName(grade, classNumber),
		Grade:       grade,
		ClassNumber: classNumber,
	}

	created, err := insertIfAbsent(ctx, r.db, &class, func(ctx context.Context) error {
		existing, err = r.GetByGradeClass(ctx, grade, classNumber)
		return err
	})
	if err != nil {
		return models.Class{}, false, err
	}
	if !created {
		return existing, false, nil
	}

	return class, true, nil
}

func (r *classRepository) AdjustTotalStudents(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Class{}).
		Where("id = ?", id).
		UpdateColumn("total_students", gorm.Expr("total_students + ?", delta)).
		Error
}
