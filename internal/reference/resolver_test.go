package reference_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/reference"
	"github.com/flowglad/flowglad-sub009/internal/reference/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetCountryByID(ctx context.Context, id snowflake.ID) (*domain.Country, error) {
	args := m.Called(ctx, id)
	country, _ := args.Get(0).(*domain.Country)
	return country, args.Error(1)
}

func (m *mockRepository) GetCountryByCode(ctx context.Context, code string) (*domain.Country, error) {
	args := m.Called(ctx, code)
	country, _ := args.Get(0).(*domain.Country)
	return country, args.Error(1)
}

func (m *mockRepository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	args := m.Called(ctx)
	countries, _ := args.Get(0).([]domain.Country)
	return countries, args.Error(1)
}

func (m *mockRepository) InsertCountry(ctx context.Context, country domain.Country) error {
	return m.Called(ctx, country).Error(0)
}

func TestCountryResolverCachesLookups(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	repo.On("GetCountryByID", ctx, snowflake.ID(42)).Return(&domain.Country{ID: 42, Code: "DE"}, nil).Once()

	resolver := reference.NewCountryResolver(repo)
	for i := 0; i < 3; i++ {
		code, err := resolver.CountryCode(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "DE", code)
	}
	repo.AssertExpectations(t)
}

func TestCountryResolverMissingCountry(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	repo.On("GetCountryByID", ctx, snowflake.ID(7)).Return(nil, nil)

	_, err := reference.NewCountryResolver(repo).CountryCode(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNormalizeCountryCode(t *testing.T) {
	code, err := domain.NormalizeCountryCode(" gb ")
	require.NoError(t, err)
	assert.Equal(t, "GB", code)

	for _, bad := range []string{"", "XX", "USA", "u"} {
		_, err := domain.NormalizeCountryCode(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidCountryCode, bad)
	}
	assert.True(t, domain.IsValidCountryCode("fr"))
}
