package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound           = errors.New("country_not_found")
	ErrInvalidCountryCode = errors.New("invalid_country_code")
)

type Country struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Code      string       `json:"code" gorm:"type:char(2);not null;uniqueIndex:ux_countries_code"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Country) TableName() string { return "countries" }

// NormalizeCountryCode upper-cases code and checks it against CountryCodes.
func NormalizeCountryCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := CountryCodes[normalized]; !ok {
		return "", ErrInvalidCountryCode
	}
	return normalized, nil
}

// IsValidCountryCode reports whether code is a known ISO 3166-1 alpha-2 code.
func IsValidCountryCode(code string) bool {
	_, err := NormalizeCountryCode(code)
	return err == nil
}
