package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, lineItems []domain.InvoiceLineItem) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO invoices (id, org_id, customer_id, status, currency, livemode, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.OrgID,
		invoice.CustomerID,
		invoice.Status,
		invoice.Currency,
		invoice.Livemode,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
	if err != nil {
		return err
	}
	if len(lineItems) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lineItems).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	var item domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, customer_id, status, currency, livemode, created_at, updated_at
		 FROM invoices
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

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceLineItem, error) {
	var items []domain.InvoiceLineItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, description, price, quantity, created_at
		 FROM invoice_line_items
		 WHERE invoice_id = ?
		 ORDER BY id ASC`,
		invoiceID,
	).Scan(&items).Error
	return items, err
}
