package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/price/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPrice(ctx context.Context, db *gorm.DB, price *domain.Price) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO prices (id, org_id, product_id, type, unit_price, currency, tax_code, livemode, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		price.ID,
		price.OrgID,
		price.ProductID,
		price.Type,
		price.UnitPrice,
		price.Currency,
		price.TaxCode,
		price.Livemode,
		price.CreatedAt,
		price.UpdatedAt,
	).Error
}

func (r *repo) FindPriceByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Price, error) {
	var item domain.Price
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, product_id, type, unit_price, currency, tax_code, livemode, created_at, updated_at
		 FROM prices
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

func (r *repo) InsertPurchase(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO purchases (id, org_id, price_id, price_type, first_invoice_value, price_per_billing_cycle, quantity, livemode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		purchase.ID,
		purchase.OrgID,
		purchase.PriceID,
		purchase.PriceType,
		purchase.FirstInvoiceValue,
		purchase.PricePerBillingCycle,
		purchase.Quantity,
		purchase.Livemode,
		purchase.CreatedAt,
	).Error
}

func (r *repo) FindPurchaseByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Purchase, error) {
	var item domain.Purchase
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, price_id, price_type, first_invoice_value, price_per_billing_cycle, quantity, livemode, created_at
		 FROM purchases
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
