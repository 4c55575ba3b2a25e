package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// insertIfAbsent attempts to insert the record, relying on the storage
// layer's unique constraints to serialize concurrent writers. When another
// writer won the race the refetch callback loads the surviving row and the
// returned flag is false. This is the single get-or-create primitive shared
// by the roster importer repositories.
func insertIfAbsent(ctx context.Context, db *gorm.DB, record interface{}, refetch func(context.Context) error) (bool, error) {
	err := db.WithContext(ctx).Create(record).Error
	if err == nil {
		return true, nil
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, refetch(ctx)
	}

	return false, err
}
