package adapters

import (
	"context"

	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
)

// UnconfiguredEngine fails every call. It stands in when no Stripe key is set
// so platform organizations keep working.
type UnconfiguredEngine struct{}

func (UnconfiguredEngine) CreateCalculation(context.Context, taxdomain.CalculationRequest) (*taxdomain.Calculation, error) {
	return nil, taxdomain.ErrEngineNotConfigured
}

func (UnconfiguredEngine) CreateTransaction(context.Context, string, string) (*taxdomain.Transaction, error) {
	return nil, taxdomain.ErrEngineNotConfigured
}

func (UnconfiguredEngine) CreateReversal(context.Context, taxdomain.ReversalRequest) (*taxdomain.Transaction, error) {
	return nil, taxdomain.ErrEngineNotConfigured
}
