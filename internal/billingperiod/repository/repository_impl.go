package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/billingperiod/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, period *domain.BillingPeriod) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_periods (id, org_id, subscription_id, period_start, period_end, status, livemode, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		period.ID,
		period.OrgID,
		period.SubscriptionID,
		period.PeriodStart.UTC(),
		period.PeriodEnd.UTC(),
		period.Status,
		period.Livemode,
		period.CreatedAt,
		period.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.BillingPeriodItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) InsertUsageOverages(ctx context.Context, db *gorm.DB, overages []domain.UsageOverage) error {
	if len(overages) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&overages).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.BillingPeriod, error) {
	var item domain.BillingPeriod
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, subscription_id, period_start, period_end, status, livemode, created_at, updated_at
		 FROM billing_periods
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

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) ([]domain.BillingPeriodItem, error) {
	var items []domain.BillingPeriodItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, billing_period_id, name, unit_price, quantity, created_at
		 FROM billing_period_items
		 WHERE billing_period_id = ?
		 ORDER BY id ASC`,
		billingPeriodID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) ListUsageOverages(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) ([]domain.UsageOverage, error) {
	var overages []domain.UsageOverage
	err := db.WithContext(ctx).Raw(
		`SELECT id, billing_period_id, usage_meter_id, balance, usage_events_per_unit, unit_price, created_at
		 FROM billing_period_usage_overages
		 WHERE billing_period_id = ?
		 ORDER BY id ASC`,
		billingPeriodID,
	).Scan(&overages).Error
	return overages, err
}
