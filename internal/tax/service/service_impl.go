package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowglad/flowglad-sub009/internal/observability/metrics"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTaxCode = "txcd_10000000" // general electronically supplied services

type Params struct {
	fx.In

	Engine  taxdomain.Engine
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	engine  taxdomain.Engine
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		engine:  p.Engine,
		log:     p.Log.Named("tax.service"),
		metrics: p.Metrics,
	}
}

// CalculateTaxes computes exclusive tax for merchant-of-record organizations.
// Platform organizations never owe tax through this path. Zero-amount
// transactions get a synthetic calculation id without an engine call.
func (s *Service) CalculateTaxes(ctx context.Context, params taxdomain.TaxParams) (taxdomain.TaxResult, error) {
	if !params.MerchantOfRecord {
		return taxdomain.TaxResult{}, nil
	}

	if params.DiscountInclusiveAmount == 0 {
		id := taxdomain.NoTaxOverridePrefix + uuid.NewString()
		s.metrics.RecordTaxEngineCall(ctx, "calculation", "skipped")
		return taxdomain.TaxResult{TaxAmountFixed: 0, StripeTaxCalculationID: &id}, nil
	}

	if strings.TrimSpace(params.BillingAddress.Country) == "" {
		return taxdomain.TaxResult{}, taxdomain.ErrMissingAddress
	}

	req := taxdomain.CalculationRequest{
		Currency: strings.ToLower(params.Currency),
		Amount:   params.DiscountInclusiveAmount,
		Quantity: params.Quantity,
		TaxCode:  defaultTaxCode,
		Address:  params.BillingAddress,
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if params.TaxCode != nil && strings.TrimSpace(*params.TaxCode) != "" {
		req.TaxCode = strings.TrimSpace(*params.TaxCode)
	}
	if params.PurchaseID != nil {
		req.Reference = "purchase_" + params.PurchaseID.String()
	} else {
		req.Reference = "price_" + params.PriceID.String()
	}

	calc, err := s.engine.CreateCalculation(ctx, req)
	if err != nil {
		s.metrics.RecordTaxEngineCall(ctx, "calculation", "error")
		return taxdomain.TaxResult{}, fmt.Errorf("calculate tax: %w", err)
	}
	s.metrics.RecordTaxEngineCall(ctx, "calculation", "ok")

	id := calc.ID
	return taxdomain.TaxResult{
		TaxAmountFixed:         calc.TaxAmountExclusive,
		StripeTaxCalculationID: &id,
	}, nil
}

// CreateTaxTransaction commits a calculation once the payment settles. It
// returns nil when there is nothing to commit.
func (s *Service) CreateTaxTransaction(ctx context.Context, calculationID *string, reference string) (*string, error) {
	if calculationID == nil || *calculationID == "" || taxdomain.IsNoTaxOverride(*calculationID) {
		return nil, nil
	}

	txn, err := s.engine.CreateTransaction(ctx, *calculationID, reference)
	if err != nil {
		s.metrics.RecordTaxEngineCall(ctx, "transaction", "error")
		return nil, fmt.Errorf("create tax transaction: %w", err)
	}
	s.metrics.RecordTaxEngineCall(ctx, "transaction", "ok")

	s.log.Info("tax transaction created",
		zap.String("calculation_id", *calculationID),
		zap.String("transaction_id", txn.ID),
	)
	id := txn.ID
	return &id, nil
}

// ReverseTaxTransaction reverses a committed transaction in full or by a flat amount.
func (s *Service) ReverseTaxTransaction(ctx context.Context, params taxdomain.ReversalParams) (*string, error) {
	if params.StripeTaxTransactionID == "" {
		return nil, taxdomain.ErrInvalidReversal
	}
	switch params.Mode {
	case taxdomain.ReversalModeFull:
	case taxdomain.ReversalModePartial:
		if params.FlatAmount <= 0 {
			return nil, taxdomain.ErrInvalidReversal
		}
	default:
		return nil, taxdomain.ErrInvalidReversal
	}

	reference := params.Reference
	if reference == "" {
		reference = "reversal_" + uuid.NewString()
	}

	txn, err := s.engine.CreateReversal(ctx, taxdomain.ReversalRequest{
		OriginalTransactionID: params.StripeTaxTransactionID,
		Mode:                  params.Mode,
		FlatAmount:            params.FlatAmount,
		Reference:             reference,
	})
	if err != nil {
		s.metrics.RecordTaxEngineCall(ctx, "reversal", "error")
		return nil, fmt.Errorf("reverse tax transaction: %w", err)
	}
	s.metrics.RecordTaxEngineCall(ctx, "reversal", "ok")

	id := txn.ID
	return &id, nil
}
