package repository

import (
	"context"

	"gorm.io/gorm"
)

// QueryOption mutates a query before it is executed.
type QueryOption func(*gorm.DB) *gorm.DB

// OrderBy sorts results by the given clause.
func OrderBy(clause string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(clause)
	}
}

// Limit caps the number of returned rows.
func Limit(n int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(n)
	}
}

// Repository is a generic gorm-backed store for simple reference tables.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
