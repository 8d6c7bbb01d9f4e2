package reference

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/cache"
	"github.com/flowglad/flowglad-sub009/internal/reference/domain"
)

const countryCacheTTL = time.Hour

// CountryResolver maps country ids to ISO codes. Countries are static reference
// data, so lookups are cached.
type CountryResolver struct {
	repo  domain.Repository
	codes cache.Cache[snowflake.ID, string]
}

func NewCountryResolver(repo domain.Repository) *CountryResolver {
	return &CountryResolver{
		repo:  repo,
		codes: cache.NewTTLCache[snowflake.ID, string](),
	}
}

// CountryCode returns the ISO code for id, or domain.ErrNotFound.
func (r *CountryResolver) CountryCode(ctx context.Context, id snowflake.ID) (string, error) {
	if code, ok := r.codes.Get(id); ok {
		return code, nil
	}

	country, err := r.repo.GetCountryByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load country %s: %w", id, err)
	}
	if country == nil {
		return "", domain.ErrNotFound
	}

	r.codes.Set(id, country.Code, countryCacheTTL)
	return country.Code, nil
}
