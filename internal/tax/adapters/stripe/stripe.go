package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	stripego "github.com/stripe/stripe-go/v82"
)

// Engine calculates and commits tax through Stripe Tax.
type Engine struct {
	client *stripego.Client
}

func NewEngine(secretKey string) *Engine {
	return &Engine{client: stripego.NewClient(secretKey, nil)}
}

func (e *Engine) CreateCalculation(ctx context.Context, req taxdomain.CalculationRequest) (*taxdomain.Calculation, error) {
	calc, err := e.client.V1TaxCalculations.Create(ctx, calculationParams(req))
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return &taxdomain.Calculation{
		ID:                 calc.ID,
		TaxAmountExclusive: calc.TaxAmountExclusive,
	}, nil
}

func (e *Engine) CreateTransaction(ctx context.Context, calculationID, reference string) (*taxdomain.Transaction, error) {
	txn, err := e.client.V1TaxTransactions.CreateFromCalculation(ctx, &stripego.TaxTransactionCreateFromCalculationParams{
		Calculation: stripego.String(calculationID),
		Reference:   stripego.String(reference),
	})
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return &taxdomain.Transaction{ID: txn.ID}, nil
}

func (e *Engine) CreateReversal(ctx context.Context, req taxdomain.ReversalRequest) (*taxdomain.Transaction, error) {
	txn, err := e.client.V1TaxTransactions.CreateReversal(ctx, reversalParams(req))
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return &taxdomain.Transaction{ID: txn.ID}, nil
}

func calculationParams(req taxdomain.CalculationRequest) *stripego.TaxCalculationCreateParams {
	address := &stripego.AddressParams{
		Country: stripego.String(strings.ToUpper(req.Address.Country)),
	}
	setIfPresent(&address.Line1, req.Address.Line1)
	setIfPresent(&address.Line2, req.Address.Line2)
	setIfPresent(&address.City, req.Address.City)
	setIfPresent(&address.State, req.Address.State)
	setIfPresent(&address.PostalCode, req.Address.PostalCode)

	return &stripego.TaxCalculationCreateParams{
		Currency: stripego.String(strings.ToLower(req.Currency)),
		CustomerDetails: &stripego.TaxCalculationCreateCustomerDetailsParams{
			Address:       address,
			AddressSource: stripego.String("billing"),
		},
		LineItems: []*stripego.TaxCalculationCreateLineItemParams{
			{
				Amount:    stripego.Int64(req.Amount),
				Quantity:  stripego.Int64(req.Quantity),
				Reference: stripego.String(req.Reference),
				TaxCode:   stripego.String(req.TaxCode),
			},
		},
	}
}

// Stripe expects the partial flat amount as a negative number.
func reversalParams(req taxdomain.ReversalRequest) *stripego.TaxTransactionCreateReversalParams {
	params := &stripego.TaxTransactionCreateReversalParams{
		Mode:                stripego.String(string(req.Mode)),
		OriginalTransaction: stripego.String(req.OriginalTransactionID),
		Reference:           stripego.String(req.Reference),
	}
	if req.Mode == taxdomain.ReversalModePartial {
		params.FlatAmount = stripego.Int64(-req.FlatAmount)
	}
	return params
}

func setIfPresent(dst **string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = stripego.String(value)
	}
}

func wrapStripeError(err error) error {
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("stripe tax %s (%s): %s", stripeErr.Type, stripeErr.Code, stripeErr.Msg)
	}
	return fmt.Errorf("stripe tax: %w", err)
}
