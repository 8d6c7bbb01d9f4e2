package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/feecalculation/domain"
	"gorm.io/gorm"
)

const feeCalculationColumns = `id, org_id, type, status, checkout_session_id, billing_period_id, invoice_id,
	price_id, purchase_id, discount_id, base_amount, discount_amount_fixed, pretax_total, tax_amount_fixed,
	flowglad_fee_percentage, mor_surcharge_percentage, international_fee_percentage, payment_method_fee_fixed,
	currency, payment_method_type, billing_address, stripe_tax_calculation_id, stripe_tax_transaction_id,
	internal_notes, livemode, finalized_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, calc *domain.FeeCalculation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fee_calculations (`+feeCalculationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		calc.ID,
		calc.OrgID,
		calc.Type,
		calc.Status,
		calc.CheckoutSessionID,
		calc.BillingPeriodID,
		calc.InvoiceID,
		calc.PriceID,
		calc.PurchaseID,
		calc.DiscountID,
		calc.BaseAmount,
		calc.DiscountAmountFixed,
		calc.PretaxTotal,
		calc.TaxAmountFixed,
		calc.FlowgladFeePercentage,
		calc.MorSurchargePercentage,
		calc.InternationalFeePercentage,
		calc.PaymentMethodFeeFixed,
		calc.Currency,
		calc.PaymentMethodType,
		calc.BillingAddress,
		calc.StripeTaxCalculationID,
		calc.StripeTaxTransactionID,
		calc.InternalNotes,
		calc.Livemode,
		calc.FinalizedAt,
		calc.CreatedAt,
		calc.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeeCalculation, error) {
	return r.findOne(ctx, db, `WHERE id = ?`, id)
}

func (r *repo) UpdateFinalization(ctx context.Context, db *gorm.DB, id snowflake.ID, flowgladFeePercentage, internalNotes string, finalizedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fee_calculations
		 SET flowglad_fee_percentage = ?, internal_notes = ?, status = ?,
		     finalized_at = COALESCE(finalized_at, ?), updated_at = ?
		 WHERE id = ?`,
		flowgladFeePercentage,
		internalNotes,
		domain.StatusFinalized,
		finalizedAt.UTC(),
		finalizedAt.UTC(),
		id,
	).Error
}

func (r *repo) SetTaxTransaction(ctx context.Context, db *gorm.DB, id snowflake.ID, transactionID string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fee_calculations
		 SET stripe_tax_transaction_id = ?, updated_at = ?
		 WHERE id = ?`,
		transactionID,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) SelectLatestByCheckoutSession(ctx context.Context, db *gorm.DB, checkoutSessionID snowflake.ID) (*domain.FeeCalculation, error) {
	return r.findOne(ctx, db, `WHERE checkout_session_id = ? ORDER BY created_at DESC, id DESC`, checkoutSessionID)
}

func (r *repo) SelectLatestByBillingPeriod(ctx context.Context, db *gorm.DB, billingPeriodID snowflake.ID) (*domain.FeeCalculation, error) {
	return r.findOne(ctx, db, `WHERE billing_period_id = ? ORDER BY created_at DESC, id DESC`, billingPeriodID)
}

func (r *repo) ListByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID, beforeID *snowflake.ID, limit int) ([]domain.FeeCalculation, error) {
	query := `SELECT ` + feeCalculationColumns + ` FROM fee_calculations WHERE org_id = ?`
	args := []any{orgID}
	if beforeID != nil {
		query += ` AND id < ?`
		args = append(args, *beforeID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var items []domain.FeeCalculation
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, args ...any) (*domain.FeeCalculation, error) {
	var item domain.FeeCalculation
	err := db.WithContext(ctx).Raw(
		`SELECT `+feeCalculationColumns+` FROM fee_calculations `+where+` LIMIT 1`,
		args...,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
