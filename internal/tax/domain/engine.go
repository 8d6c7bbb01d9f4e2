package domain

import "context"

type CalculationRequest struct {
	Currency  string
	Amount    int64
	Quantity  int64
	Reference string
	TaxCode   string
	Address   BillingAddress
}

type Calculation struct {
	ID                 string
	TaxAmountExclusive int64
}

type Transaction struct {
	ID string
}

type ReversalRequest struct {
	OriginalTransactionID string
	Mode                  ReversalMode
	FlatAmount            int64
	Reference             string
}

// Engine is the external tax service.
type Engine interface {
	CreateCalculation(ctx context.Context, req CalculationRequest) (*Calculation, error)
	CreateTransaction(ctx context.Context, calculationID, reference string) (*Transaction, error)
	CreateReversal(ctx context.Context, req ReversalRequest) (*Transaction, error)
}
