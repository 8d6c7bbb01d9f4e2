package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/dbtest"
	referencedomain "github.com/flowglad/flowglad-sub009/internal/reference/domain"
	"github.com/flowglad/flowglad-sub009/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	store := repository.ProvideStore[referencedomain.Country](db)

	now := time.Now().UTC()
	require.NoError(t, store.BatchCreate(ctx, nil))
	require.NoError(t, store.BatchCreate(ctx, []*referencedomain.Country{
		{ID: snowflake.ID(3), Code: "NL", Name: "Netherlands", CreatedAt: now},
		{ID: snowflake.ID(1), Code: "DE", Name: "Germany", CreatedAt: now},
		{ID: snowflake.ID(2), Code: "FR", Name: "France", CreatedAt: now},
	}))

	count, err := store.Count(ctx, &referencedomain.Country{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	rows, err := store.Find(ctx, &referencedomain.Country{}, repository.OrderBy("code"), repository.Limit(2))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "DE", rows[0].Code)
	assert.Equal(t, "FR", rows[1].Code)

	found, err := store.FindOne(ctx, &referencedomain.Country{Code: "NL"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Netherlands", found.Name)

	missing, err := store.FindOne(ctx, &referencedomain.Country{Code: "US"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Update(ctx, "2", map[string]any{"name": "French Republic"}))
	renamed, err := store.WithTrx(db).FindOne(ctx, &referencedomain.Country{Code: "FR"})
	require.NoError(t, err)
	assert.Equal(t, "French Republic", renamed.Name)
}
