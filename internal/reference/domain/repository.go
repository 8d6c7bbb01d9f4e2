package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	GetCountryByID(ctx context.Context, id snowflake.ID) (*Country, error)
	GetCountryByCode(ctx context.Context, code string) (*Country, error)
	ListCountries(ctx context.Context) ([]Country, error)
	InsertCountry(ctx context.Context, country Country) error
}
