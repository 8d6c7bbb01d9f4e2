package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/discount/domain"
	"gorm.io/gorm"
)

const redemptionColumns = `id, org_id, discount_id, subscription_id, purchase_id, discount_code,
	discount_amount_type, discount_amount, duration, number_of_payments, fully_redeemed,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertDiscount(ctx context.Context, db *gorm.DB, discount *domain.Discount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO discounts (id, org_id, code, amount_type, amount, duration, number_of_payments, livemode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		discount.ID,
		discount.OrgID,
		discount.Code,
		discount.AmountType,
		discount.Amount,
		discount.Duration,
		discount.NumberOfPayments,
		discount.Livemode,
		discount.CreatedAt,
	).Error
}

func (r *repo) FindDiscountByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Discount, error) {
	var item domain.Discount
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, code, amount_type, amount, duration, number_of_payments, livemode, created_at
		 FROM discounts
		 WHERE org_id = ? AND id = ?
		 LIMIT 1`,
		orgID,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertRedemption(ctx context.Context, db *gorm.DB, redemption *domain.DiscountRedemption) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO discount_redemptions (`+redemptionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		redemption.ID,
		redemption.OrgID,
		redemption.DiscountID,
		redemption.SubscriptionID,
		redemption.PurchaseID,
		redemption.DiscountCode,
		redemption.DiscountAmountType,
		redemption.DiscountAmount,
		redemption.Duration,
		redemption.NumberOfPayments,
		redemption.FullyRedeemed,
		redemption.CreatedAt,
		redemption.UpdatedAt,
	).Error
}

func (r *repo) FindActiveRedemptionBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) (*domain.DiscountRedemption, error) {
	return r.findActiveRedemption(ctx, db, "subscription_id", subscriptionID)
}

func (r *repo) FindActiveRedemptionByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (*domain.DiscountRedemption, error) {
	return r.findActiveRedemption(ctx, db, "purchase_id", purchaseID)
}

func (r *repo) findActiveRedemption(ctx context.Context, db *gorm.DB, column string, ownerID snowflake.ID) (*domain.DiscountRedemption, error) {
	var item domain.DiscountRedemption
	err := db.WithContext(ctx).Raw(
		`SELECT `+redemptionColumns+`
		 FROM discount_redemptions
		 WHERE `+column+` = ? AND fully_redeemed = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		ownerID,
		false,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkFullyRedeemed(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE discount_redemptions
		 SET fully_redeemed = ?, updated_at = ?
		 WHERE id = ?`,
		true,
		time.Now().UTC(),
		id,
	).Error
}
