package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	// GetByID returns nil, nil when the organization does not exist.
	GetByID(ctx context.Context, id snowflake.ID) (*Organization, error)
}
