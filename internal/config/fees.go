package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FeeSchedule holds the processing rates applied by the fee calculators.
// Percentages are decimal strings ("2.9" is 2.9%), fixed amounts are minor units.
type FeeSchedule struct {
	MorSurchargePercentage           string `mapstructure:"morSurchargePercentage"`
	InternationalSurchargePercentage string `mapstructure:"internationalSurchargePercentage"`
	CardPercentage                   string `mapstructure:"cardPercentage"`
	CardFixedFee                     int64  `mapstructure:"cardFixedFee"`
	USBankAccountPercentage          string `mapstructure:"usBankAccountPercentage"`
	USBankAccountMaxFee              int64  `mapstructure:"usBankAccountMaxFee"`
	SEPADebitPercentage              string `mapstructure:"sepaDebitPercentage"`
	SEPADebitMaxFee                  int64  `mapstructure:"sepaDebitMaxFee"`
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		MorSurchargePercentage:           "1.1",
		InternationalSurchargePercentage: "1.5",
		CardPercentage:                   "2.9",
		CardFixedFee:                     30,
		USBankAccountPercentage:          "0.8",
		USBankAccountMaxFee:              500,
		SEPADebitPercentage:              "0.8",
		SEPADebitMaxFee:                  600,
	}
}

// Decimal returns a parsed rate. Rates are validated on load, so a parse
// failure here means the schedule was built by hand with a bad value.
func (f FeeSchedule) Decimal(rate string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return decimal.Zero
	}
	return d
}

type FeeScheduleHolder struct {
	current atomic.Value // holds FeeSchedule
}

// NewStaticFeeScheduleHolder wraps a fixed schedule, used by tests and tools.
func NewStaticFeeScheduleHolder(schedule FeeSchedule) *FeeScheduleHolder {
	holder := &FeeScheduleHolder{}
	holder.current.Store(schedule)
	return holder
}

func NewFeeScheduleHolder(cfg Config, log *zap.Logger) (*FeeScheduleHolder, error) {
	v := viper.New()

	if cfg.FeeScheduleFile != "" {
		v.SetConfigFile(cfg.FeeScheduleFile)
	} else {
		v.SetConfigName("fees")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/feeengine")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FEES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFeeSchedule()
	v.SetDefault("fees.morSurchargePercentage", defaults.MorSurchargePercentage)
	v.SetDefault("fees.internationalSurchargePercentage", defaults.InternationalSurchargePercentage)
	v.SetDefault("fees.cardPercentage", defaults.CardPercentage)
	v.SetDefault("fees.cardFixedFee", defaults.CardFixedFee)
	v.SetDefault("fees.usBankAccountPercentage", defaults.USBankAccountPercentage)
	v.SetDefault("fees.usBankAccountMaxFee", defaults.USBankAccountMaxFee)
	v.SetDefault("fees.sepaDebitPercentage", defaults.SEPADebitPercentage)
	v.SetDefault("fees.sepaDebitMaxFee", defaults.SEPADebitMaxFee)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	schedule, err := unmarshalFeeSchedule(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticFeeScheduleHolder(schedule)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalFeeSchedule(v)
		if err != nil {
			log.Warn("fee schedule reload ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("fee schedule reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// unmarshalFeeSchedule goes through the whole settings tree so file values are
// merged with per-key defaults.
func unmarshalFeeSchedule(v *viper.Viper) (FeeSchedule, error) {
	var wrapper struct {
		Fees FeeSchedule `mapstructure:"fees"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return FeeSchedule{}, err
	}
	if err := ValidateFeeSchedule(wrapper.Fees); err != nil {
		return FeeSchedule{}, err
	}
	return wrapper.Fees, nil
}

func (h *FeeScheduleHolder) Get() FeeSchedule {
	return h.current.Load().(FeeSchedule)
}

func ValidateFeeSchedule(schedule FeeSchedule) error {
	rates := map[string]string{
		"fees.morSurchargePercentage":           schedule.MorSurchargePercentage,
		"fees.internationalSurchargePercentage": schedule.InternationalSurchargePercentage,
		"fees.cardPercentage":                   schedule.CardPercentage,
		"fees.usBankAccountPercentage":          schedule.USBankAccountPercentage,
		"fees.sepaDebitPercentage":              schedule.SEPADebitPercentage,
	}
	for key, rate := range rates {
		d, err := decimal.NewFromString(strings.TrimSpace(rate))
		if err != nil {
			return errors.New(key + " must be a decimal percentage")
		}
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			return errors.New(key + " must be between 0 and 100")
		}
	}
	if schedule.CardFixedFee < 0 || schedule.USBankAccountMaxFee < 0 || schedule.SEPADebitMaxFee < 0 {
		return errors.New("fixed fees cannot be negative")
	}
	return nil
}
