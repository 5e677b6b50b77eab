package srs

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Settings tunes interval growth. It is always passed explicitly; the
// package keeps no default instance of its own.
type Settings struct {
	EasyMultiplier     float64 `json:"easy_multiplier" koanf:"easy_multiplier" validate:"gt=0"`
	GoodMultiplier     float64 `json:"good_multiplier" koanf:"good_multiplier" validate:"gt=0"`
	HardMultiplier     float64 `json:"hard_multiplier" koanf:"hard_multiplier" validate:"gt=0"`
	MaxIntervalDays    int     `json:"max_interval_days" koanf:"max_interval_days" validate:"gte=1"`
	GraduatingInterval int     `json:"graduating_interval" koanf:"graduating_interval" validate:"gte=1,ltefield=MaxIntervalDays"`
	EasyInterval       int     `json:"easy_interval" koanf:"easy_interval" validate:"gte=1,ltefield=MaxIntervalDays"`
}

// DefaultSettings returns the stock tuning.
func DefaultSettings() Settings {
	return Settings{
		EasyMultiplier:     2.5,
		GoodMultiplier:     1.0,
		HardMultiplier:     0.5,
		MaxIntervalDays:    365,
		GraduatingInterval: 1,
		EasyInterval:       4,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks every field against its documented range.
func (s Settings) Validate() error {
	if err := structValidator().Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}
