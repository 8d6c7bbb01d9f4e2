package seed

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	referencedomain "github.com/flowglad/flowglad-sub009/internal/reference/domain"
	"github.com/flowglad/flowglad-sub009/pkg/repository"
	"gorm.io/gorm"
)

// EnsureCountries inserts every ISO 3166-1 alpha-2 country that is missing.
// Organizations reference a country row, so this runs on every startup.
func EnsureCountries(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := repository.ProvideStore[referencedomain.Country](tx)

		existing, err := store.Find(ctx, &referencedomain.Country{}, repository.OrderBy("code"))
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(existing))
		for _, country := range existing {
			seen[country.Code] = struct{}{}
		}

		codes := make([]string, 0, len(referencedomain.CountryCodes))
		for code := range referencedomain.CountryCodes {
			if _, ok := seen[code]; !ok {
				codes = append(codes, code)
			}
		}
		sort.Strings(codes)

		now := time.Now().UTC()
		rows := make([]*referencedomain.Country, 0, len(codes))
		for _, code := range codes {
			rows = append(rows, &referencedomain.Country{
				ID:        node.Generate(),
				Code:      code,
				Name:      referencedomain.CountryCodes[code],
				CreatedAt: now,
			})
		}
		return store.BatchCreate(ctx, rows)
	})
}
