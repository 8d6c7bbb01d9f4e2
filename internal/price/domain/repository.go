package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPrice(ctx context.Context, db *gorm.DB, price *Price) error
	FindPriceByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Price, error)
	InsertPurchase(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	FindPurchaseByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Purchase, error)
}
