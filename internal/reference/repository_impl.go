package reference

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/reference/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) GetCountryByID(ctx context.Context, id snowflake.ID) (*domain.Country, error) {
	var country domain.Country
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, code, name, created_at FROM countries WHERE id = ? LIMIT 1`, id).
		Scan(&country).Error
	if err != nil {
		return nil, err
	}
	if country.ID == 0 {
		return nil, nil
	}
	return &country, nil
}

func (r *repository) GetCountryByCode(ctx context.Context, code string) (*domain.Country, error) {
	var country domain.Country
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, code, name, created_at FROM countries WHERE code = ? LIMIT 1`, code).
		Scan(&country).Error
	if err != nil {
		return nil, err
	}
	if country.ID == 0 {
		return nil, nil
	}
	return &country, nil
}

func (r *repository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	var countries []domain.Country
	err := r.db.WithContext(ctx).
		Raw(`SELECT id, code, name, created_at FROM countries ORDER BY name`).
		Scan(&countries).Error
	if err != nil {
		return nil, err
	}
	return countries, nil
}

func (r *repository) InsertCountry(ctx context.Context, country domain.Country) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO countries (id, code, name, created_at) VALUES (?, ?, ?, ?)`,
		country.ID,
		country.Code,
		country.Name,
		country.CreatedAt,
	).Error
}
