package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/chulseok-go-api/internal/models"
)

// UserRepository provides access to login accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (models.User, error)
	// GetOrCreate inserts the user unless the external id is already taken.
	// The returned flag reports whether a new row was created; on a lost
	// insert race the existing row is returned instead.
	GetOrCreate(ctx context.Context, user models.User) (models.User, bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) GetOrCreate(ctx context.Context, user models.User) (models.User, bool, error) {
	existing, err := r.GetByExternalID(ctx, user.ExternalID)
	if err == nil {
		return existing, false, nil
	}

	created, err := insertIfAbsent(ctx, r.db, &user, func(ctx context.Context) error {
		existing, err = r.GetByExternalID(ctx, user.ExternalID)
		return err
	})
	if err != nil {
		return models.User{}, false, err
	}
	if !created {
		return existing, false, nil
	}

	return user, true, nil
}
