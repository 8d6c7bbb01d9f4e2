package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertDiscount(ctx context.Context, db *gorm.DB, discount *Discount) error
	FindDiscountByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Discount, error)

	InsertRedemption(ctx context.Context, db *gorm.DB, redemption *DiscountRedemption) error
	// FindActiveRedemptionBySubscription returns the newest redemption that is not fully redeemed.
	FindActiveRedemptionBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) (*DiscountRedemption, error)
	FindActiveRedemptionByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*DiscountRedemption, error)
	MarkFullyRedeemed(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
