package service

import (
	"fmt"

	"github.com/flowglad/flowglad-sub009/internal/config"
	"github.com/flowglad/flowglad-sub009/internal/feecalculation/domain"
	"github.com/flowglad/flowglad-sub009/internal/money"
	orgdomain "github.com/flowglad/flowglad-sub009/internal/organization/domain"
	referencedomain "github.com/flowglad/flowglad-sub009/internal/reference/domain"
	"github.com/shopspring/decimal"
)

// Components computes the individual fee lines from a fee schedule snapshot.
type Components struct {
	schedule config.FeeSchedule
}

func NewComponents(schedule config.FeeSchedule) Components {
	return Components{schedule: schedule}
}

// FlowgladFeePercentage is the organization's nominal platform rate.
func FlowgladFeePercentage(org *orgdomain.Organization) (decimal.Decimal, error) {
	pct, err := money.ParsePercentage(org.FeePercentage)
	if err != nil {
		return decimal.Zero, fmt.Errorf("organization %s fee percentage %q: %w", org.ID, org.FeePercentage, err)
	}
	return pct, nil
}

func (c Components) MorSurchargePercentage(org *orgdomain.Organization) decimal.Decimal {
	if org.IsMerchantOfRecord() {
		return c.schedule.Decimal(c.schedule.MorSurchargePercentage)
	}
	return decimal.Zero
}

// InternationalFeePercentage returns the cross-border surcharge for a payment
// method issued in methodCountry to an organization based in orgCountry.
func (c Components) InternationalFeePercentage(method domain.PaymentMethodType, methodCountry string, org *orgdomain.Organization, orgCountry string) (decimal.Decimal, error) {
	code, err := referencedomain.NormalizeCountryCode(methodCountry)
	if err != nil {
		return decimal.Zero, fmt.Errorf("payment method country %q: %w", methodCountry, err)
	}
	if org.IsMerchantOfRecord() && code == "US" {
		return decimal.Zero, nil
	}
	if code == orgCountry {
		return decimal.Zero, nil
	}

	switch method {
	case domain.PaymentMethodCard, domain.PaymentMethodSEPADebit:
		return c.schedule.Decimal(c.schedule.InternationalSurchargePercentage), nil
	default:
		return decimal.Zero, nil
	}
}

// PaymentMethodFeeAmount is the processor fee in minor units. Unknown methods
// are charged like cards.
func (c Components) PaymentMethodFeeAmount(amount int64, method domain.PaymentMethodType) int64 {
	if amount <= 0 {
		return 0
	}

	switch method {
	case domain.PaymentMethodUSBankAccount:
		fee := money.CalculatePercentageFee(amount, c.schedule.Decimal(c.schedule.USBankAccountPercentage))
		return money.MinInt64(fee, c.schedule.USBankAccountMaxFee)
	case domain.PaymentMethodSEPADebit:
		fee := money.CalculatePercentageFee(amount, c.schedule.Decimal(c.schedule.SEPADebitPercentage))
		return money.MinInt64(fee, c.schedule.SEPADebitMaxFee)
	default:
		fee := money.CalculatePercentageFee(amount, c.schedule.Decimal(c.schedule.CardPercentage))
		return fee + c.schedule.CardFixedFee
	}
}
