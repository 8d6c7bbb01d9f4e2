package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	"github.com/flowglad/flowglad-sub009/internal/tax/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) CreateCalculation(ctx context.Context, req taxdomain.CalculationRequest) (*taxdomain.Calculation, error) {
	args := m.Called(ctx, req)
	calc, _ := args.Get(0).(*taxdomain.Calculation)
	return calc, args.Error(1)
}

func (m *mockEngine) CreateTransaction(ctx context.Context, calculationID, reference string) (*taxdomain.Transaction, error) {
	args := m.Called(ctx, calculationID, reference)
	txn, _ := args.Get(0).(*taxdomain.Transaction)
	return txn, args.Error(1)
}

func (m *mockEngine) CreateReversal(ctx context.Context, req taxdomain.ReversalRequest) (*taxdomain.Transaction, error) {
	args := m.Called(ctx, req)
	txn, _ := args.Get(0).(*taxdomain.Transaction)
	return txn, args.Error(1)
}

func newService(engine taxdomain.Engine) *service.Service {
	return service.NewService(service.Params{Engine: engine, Log: zap.NewNop()})
}

func TestCalculateTaxesPlatformSkipsEngine(t *testing.T) {
	engine := &mockEngine{}
	svc := newService(engine)

	result, err := svc.CalculateTaxes(context.Background(), taxdomain.TaxParams{
		MerchantOfRecord:        false,
		DiscountInclusiveAmount: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TaxAmountFixed)
	assert.Nil(t, result.StripeTaxCalculationID)
	engine.AssertNotCalled(t, "CreateCalculation", mock.Anything, mock.Anything)
}

func TestCalculateTaxesZeroAmountUsesNoTaxMarker(t *testing.T) {
	engine := &mockEngine{}
	svc := newService(engine)

	result, err := svc.CalculateTaxes(context.Background(), taxdomain.TaxParams{
		MerchantOfRecord:        true,
		DiscountInclusiveAmount: 0,
	})
	require.NoError(t, err)
	require.NotNil(t, result.StripeTaxCalculationID)
	assert.True(t, strings.HasPrefix(*result.StripeTaxCalculationID, "notaxoverride_"))
	assert.Equal(t, int64(0), result.TaxAmountFixed)
	engine.AssertNotCalled(t, "CreateCalculation", mock.Anything, mock.Anything)
}

func TestCalculateTaxesPriceAndPurchaseScopes(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	priceID := node.Generate()
	purchaseID := node.Generate()
	address := taxdomain.BillingAddress{Country: "US", PostalCode: "10001"}

	engine := &mockEngine{}
	engine.On("CreateCalculation", mock.Anything, mock.MatchedBy(func(req taxdomain.CalculationRequest) bool {
		return req.Reference == "price_"+priceID.String() && req.Amount == 1000 && req.Quantity == 1
	})).Return(&taxdomain.Calculation{ID: "taxcalc_price", TaxAmountExclusive: 80}, nil).Once()
	engine.On("CreateCalculation", mock.Anything, mock.MatchedBy(func(req taxdomain.CalculationRequest) bool {
		return req.Reference == "purchase_"+purchaseID.String()
	})).Return(&taxdomain.Calculation{ID: "taxcalc_purchase", TaxAmountExclusive: 90}, nil).Once()

	svc := newService(engine)

	byPrice, err := svc.CalculateTaxes(context.Background(), taxdomain.TaxParams{
		MerchantOfRecord:        true,
		Currency:                "USD",
		DiscountInclusiveAmount: 1000,
		BillingAddress:          address,
		PriceID:                 priceID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(80), byPrice.TaxAmountFixed)
	assert.Equal(t, "taxcalc_price", *byPrice.StripeTaxCalculationID)

	byPurchase, err := svc.CalculateTaxes(context.Background(), taxdomain.TaxParams{
		MerchantOfRecord:        true,
		Currency:                "USD",
		DiscountInclusiveAmount: 1200,
		BillingAddress:          address,
		PriceID:                 priceID,
		PurchaseID:              &purchaseID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(90), byPurchase.TaxAmountFixed)
	engine.AssertExpectations(t)
}

func TestCalculateTaxesPropagatesEngineError(t *testing.T) {
	engine := &mockEngine{}
	engine.On("CreateCalculation", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := newService(engine).CalculateTaxes(context.Background(), taxdomain.TaxParams{
		MerchantOfRecord:        true,
		DiscountInclusiveAmount: 100,
		BillingAddress:          taxdomain.BillingAddress{Country: "DE"},
	})
	assert.Error(t, err)
}

func TestCalculateTaxesRequiresAddress(t *testing.T) {
	_, err := newService(&mockEngine{}).CalculateTaxes(context.Background(), taxdomain.TaxParams{
		MerchantOfRecord:        true,
		DiscountInclusiveAmount: 100,
	})
	assert.ErrorIs(t, err, taxdomain.ErrMissingAddress)
}

func TestCreateTaxTransactionSkipsMarkers(t *testing.T) {
	engine := &mockEngine{}
	svc := newService(engine)

	marker := "notaxoverride_abc"
	id, err := svc.CreateTaxTransaction(context.Background(), &marker, "payment_1")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = svc.CreateTaxTransaction(context.Background(), nil, "payment_1")
	require.NoError(t, err)
	assert.Nil(t, id)

	engine.On("CreateTransaction", mock.Anything, "taxcalc_1", "payment_1").
		Return(&taxdomain.Transaction{ID: "tax_1"}, nil).Once()
	calc := "taxcalc_1"
	id, err = svc.CreateTaxTransaction(context.Background(), &calc, "payment_1")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "tax_1", *id)
	engine.AssertExpectations(t)
}

func TestReverseTaxTransaction(t *testing.T) {
	engine := &mockEngine{}
	engine.On("CreateReversal", mock.Anything, mock.MatchedBy(func(req taxdomain.ReversalRequest) bool {
		return req.Mode == taxdomain.ReversalModePartial && req.FlatAmount == 250 && req.OriginalTransactionID == "tax_1"
	})).Return(&taxdomain.Transaction{ID: "tax_rev_1"}, nil).Once()

	svc := newService(engine)

	id, err := svc.ReverseTaxTransaction(context.Background(), taxdomain.ReversalParams{
		StripeTaxTransactionID: "tax_1",
		Mode:                   taxdomain.ReversalModePartial,
		FlatAmount:             250,
	})
	require.NoError(t, err)
	assert.Equal(t, "tax_rev_1", *id)

	_, err = svc.ReverseTaxTransaction(context.Background(), taxdomain.ReversalParams{
		StripeTaxTransactionID: "tax_1",
		Mode:                   taxdomain.ReversalModePartial,
	})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidReversal)

	_, err = svc.ReverseTaxTransaction(context.Background(), taxdomain.ReversalParams{Mode: taxdomain.ReversalModeFull})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidReversal)
	engine.AssertExpectations(t)
}
