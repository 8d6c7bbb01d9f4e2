package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// NoTaxOverridePrefix marks calculation ids synthesized for zero-amount
// transactions. They are never sent to the tax engine.
const NoTaxOverridePrefix = "notaxoverride_"

func IsNoTaxOverride(calculationID string) bool {
	return strings.HasPrefix(calculationID, NoTaxOverridePrefix)
}

// BillingAddress is the customer address tax is computed against.
type BillingAddress struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// TaxParams describes one priced transaction. PurchaseID switches the engine
// call to the purchase-scoped variant.
type TaxParams struct {
	MerchantOfRecord        bool
	Currency                string
	DiscountInclusiveAmount int64
	Quantity                int64
	BillingAddress          BillingAddress
	PriceID                 snowflake.ID
	ProductID               snowflake.ID
	PurchaseID              *snowflake.ID
	TaxCode                 *string
}

type TaxResult struct {
	TaxAmountFixed         int64
	StripeTaxCalculationID *string
}

type ReversalMode string

const (
	ReversalModeFull    ReversalMode = "full"
	ReversalModePartial ReversalMode = "partial"
)

// ReversalParams reverses a committed tax transaction. FlatAmount is the
// positive amount to reverse and is only used in partial mode.
type ReversalParams struct {
	StripeTaxTransactionID string
	Mode                   ReversalMode
	FlatAmount             int64
	Reference              string
}
