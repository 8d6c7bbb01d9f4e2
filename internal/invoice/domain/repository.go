package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice, lineItems []InvoiceLineItem) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)
	ListLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceLineItem, error)
}
