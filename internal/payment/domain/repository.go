package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	// FindByID returns nil, nil when the payment does not exist.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	MarkSucceeded(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeDate time.Time) error
	ApplyRefund(ctx context.Context, db *gorm.DB, id snowflake.ID, refundedAmount int64, status Status, refundedAt time.Time) error

	// SumResolvedSince totals resolved payments charged at or after since.
	SumResolvedSince(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) (int64, error)
	SumResolvedLifetime(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)

	CountResolvedBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) (int64, error)
	CountResolvedByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (int64, error)
}
