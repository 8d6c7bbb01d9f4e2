package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/payment/domain"
	"gorm.io/gorm"
)

const paymentColumns = `id, org_id, checkout_session_id, billing_period_id, subscription_id, purchase_id,
	invoice_id, amount, refunded_amount, currency, status, charge_date, refunded_at, livemode,
	created_at, updated_at`

var resolvedStatuses = []domain.Status{domain.StatusSucceeded, domain.StatusRefunded}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.OrgID,
		payment.CheckoutSessionID,
		payment.BillingPeriodID,
		payment.SubscriptionID,
		payment.PurchaseID,
		payment.InvoiceID,
		payment.Amount,
		payment.RefundedAmount,
		payment.Currency,
		payment.Status,
		payment.ChargeDate.UTC(),
		payment.RefundedAt,
		payment.Livemode,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE id = ?
		 LIMIT 1`,
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

func (r *repo) MarkSucceeded(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeDate time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, charge_date = ?, updated_at = ?
		 WHERE id = ?`,
		domain.StatusSucceeded,
		chargeDate.UTC(),
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) ApplyRefund(ctx context.Context, db *gorm.DB, id snowflake.ID, refundedAmount int64, status domain.Status, refundedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET refunded_amount = ?, status = ?, refunded_at = ?, updated_at = ?
		 WHERE id = ?`,
		refundedAmount,
		status,
		refundedAt.UTC(),
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) SumResolvedSince(ctx context.Context, db *gorm.DB, orgID snowflake.ID, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM payments
		 WHERE org_id = ? AND status IN ? AND charge_date >= ?`,
		orgID,
		resolvedStatuses,
		since.UTC(),
	).Scan(&total).Error
	return total, err
}

func (r *repo) SumResolvedLifetime(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM payments
		 WHERE org_id = ? AND status IN ?`,
		orgID,
		resolvedStatuses,
	).Scan(&total).Error
	return total, err
}

func (r *repo) CountResolvedBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM payments WHERE subscription_id = ? AND status IN ?`,
		subscriptionID,
		resolvedStatuses,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountResolvedByPurchase(ctx context.Context, db *gorm.DB, purchaseID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM payments WHERE purchase_id = ? AND status IN ?`,
		purchaseID,
		resolvedStatuses,
	).Scan(&count).Error
	return count, err
}
