package seed_test

import (
	"testing"

	"github.com/flowglad/flowglad-sub009/internal/dbtest"
	referencedomain "github.com/flowglad/flowglad-sub009/internal/reference/domain"
	"github.com/flowglad/flowglad-sub009/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCountriesIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	fixtures := dbtest.NewFixtures(t, db)
	existing := fixtures.Country("US")

	require.NoError(t, seed.EnsureCountries(db))
	require.NoError(t, seed.EnsureCountries(db))

	var count int64
	require.NoError(t, db.Model(&referencedomain.Country{}).Count(&count).Error)
	assert.Equal(t, int64(len(referencedomain.CountryCodes)), count)

	var us referencedomain.Country
	require.NoError(t, db.Where("code = ?", "US").First(&us).Error)
	assert.Equal(t, existing.ID, us.ID)

	var de referencedomain.Country
	require.NoError(t, db.Where("code = ?", "DE").First(&de).Error)
	assert.Equal(t, "Germany", de.Name)
}
