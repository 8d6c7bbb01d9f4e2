package domain

import "errors"

var (
	ErrEngineNotConfigured = errors.New("tax_engine_not_configured")
	ErrInvalidReversal     = errors.New("invalid_tax_reversal")
	ErrMissingAddress      = errors.New("missing_billing_address")
)
