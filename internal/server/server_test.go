package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingperiodrepo "github.com/flowglad/flowglad-sub009/internal/billingperiod/repository"
	"github.com/flowglad/flowglad-sub009/internal/clock"
	"github.com/flowglad/flowglad-sub009/internal/config"
	"github.com/flowglad/flowglad-sub009/internal/dbtest"
	discountrepo "github.com/flowglad/flowglad-sub009/internal/discount/repository"
	discountservice "github.com/flowglad/flowglad-sub009/internal/discount/service"
	"github.com/flowglad/flowglad-sub009/internal/events"
	feecalculationdomain "github.com/flowglad/flowglad-sub009/internal/feecalculation/domain"
	feecalculationrepo "github.com/flowglad/flowglad-sub009/internal/feecalculation/repository"
	feecalculationservice "github.com/flowglad/flowglad-sub009/internal/feecalculation/service"
	invoicerepo "github.com/flowglad/flowglad-sub009/internal/invoice/repository"
	"github.com/flowglad/flowglad-sub009/internal/lock"
	"github.com/flowglad/flowglad-sub009/internal/money"
	orgdomain "github.com/flowglad/flowglad-sub009/internal/organization/domain"
	orgrepo "github.com/flowglad/flowglad-sub009/internal/organization/repository"
	orgservice "github.com/flowglad/flowglad-sub009/internal/organization/service"
	paymentdomain "github.com/flowglad/flowglad-sub009/internal/payment/domain"
	paymentrepo "github.com/flowglad/flowglad-sub009/internal/payment/repository"
	paymentservice "github.com/flowglad/flowglad-sub009/internal/payment/service"
	pricerepo "github.com/flowglad/flowglad-sub009/internal/price/repository"
	"github.com/flowglad/flowglad-sub009/internal/reference"
	subscriptionrepo "github.com/flowglad/flowglad-sub009/internal/subscription/repository"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	taxservice "github.com/flowglad/flowglad-sub009/internal/tax/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type stubTaxEngine struct{}

func (stubTaxEngine) CreateCalculation(_ context.Context, req taxdomain.CalculationRequest) (*taxdomain.Calculation, error) {
	return &taxdomain.Calculation{ID: "taxcalc_http", TaxAmountExclusive: req.Amount / 10}, nil
}

func (stubTaxEngine) CreateTransaction(_ context.Context, calculationID, _ string) (*taxdomain.Transaction, error) {
	return &taxdomain.Transaction{ID: "tx_" + calculationID}, nil
}

func (stubTaxEngine) CreateReversal(_ context.Context, req taxdomain.ReversalRequest) (*taxdomain.Transaction, error) {
	return &taxdomain.Transaction{ID: "rev_" + req.OriginalTransactionID}, nil
}

type testServer struct {
	db     *gorm.DB
	fx     *dbtest.Fixtures
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(testNow)
	tax := taxservice.NewService(taxservice.Params{Engine: stubTaxEngine{}, Log: log})
	payments := paymentrepo.Provide()
	refs := reference.NewRepository(db)

	fees := feecalculationservice.NewService(feecalculationservice.Params{
		DB:             db,
		Log:            log,
		GenID:          node,
		Clock:          fakeClock,
		Config:         config.Config{FinalizeLockTTLS: 5},
		Fees:           config.NewStaticFeeScheduleHolder(config.DefaultFeeSchedule()),
		Repo:           feecalculationrepo.Provide(),
		Orgs:           orgrepo.NewRepository(db),
		Countries:      reference.NewCountryResolver(refs),
		Prices:         pricerepo.Provide(),
		Invoices:       invoicerepo.Provide(),
		BillingPeriods: billingperiodrepo.Provide(),
		Subscriptions:  subscriptionrepo.Provide(),
		Discounts:      discountrepo.Provide(),
		Payments:       payments,
		Tax:            tax,
		Locker:         lock.NewLocalLocker(),
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:     db,
		Log:    log,
		Clock:  fakeClock,
		Repo:   payments,
		FeeSvc: fees,
		TaxSvc: tax,
		DiscountSvc: discountservice.NewService(discountservice.Params{
			Log:      log,
			GenID:    node,
			Repo:     discountrepo.Provide(),
			Payments: payments,
		}),
		Outbox: events.NewOutbox(node),
	})
	orgs := orgservice.NewService(orgservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  orgrepo.NewRepository(db),
		Ref:   refs,
	})

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:             router,
		DB:              db,
		Log:             log,
		OrganizationSvc: orgs,
		FeeSvc:          fees,
		PaymentSvc:      paymentSvc,
	})

	return &testServer{db: db, fx: dbtest.NewFixtures(t, db), router: router}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body), resp.Body.String())
	return body.Error
}

func (s *testServer) invoiceCalculation(t *testing.T, org orgdomain.Organization, sessionID snowflake.ID, lines ...[2]int64) feecalculationdomain.FeeCalculation {
	t.Helper()
	invoice := s.fx.Invoice(org.ID, lines...)
	resp := s.do(t, http.MethodPost, "/v1/fee-calculations/checkout-sessions/invoice", gin.H{
		"organization_id":     org.ID.String(),
		"checkout_session_id": sessionID.String(),
		"invoice_id":          invoice.ID.String(),
		"payment_method_type": "card",
		"billing_address":     gin.H{"country": "US", "postal_code": "10001"},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeData[feecalculationdomain.FeeCalculation](t, resp)
}

func TestCreateOrganization(t *testing.T) {
	s := newTestServer(t)
	s.fx.Country("US")

	resp := s.do(t, http.MethodPost, "/v1/organizations", gin.H{
		"name":                             "Acme Inc",
		"country_code":                     "us",
		"fee_percentage":                   "2.50",
		"stripe_connect_contract_type":     "merchant_of_record",
		"monthly_billing_volume_free_tier": 100000,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	created := decodeData[orgdomain.OrganizationResponse](t, resp)
	assert.Equal(t, "acme-inc", created.Slug)
	assert.Equal(t, "US", created.CountryCode)
	assert.Equal(t, "2.5", created.FeePercentage)
	assert.Equal(t, orgdomain.ContractTypeMerchantOfRecord, created.StripeConnectContractType)

	resp = s.do(t, http.MethodGet, "/v1/organizations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, created.ID, decodeData[orgdomain.OrganizationResponse](t, resp).ID)
}

func TestCreateOrganizationRejectsInvalidFeePercentage(t *testing.T) {
	s := newTestServer(t)
	s.fx.Country("US")

	resp := s.do(t, http.MethodPost, "/v1/organizations", gin.H{
		"name":           "Acme",
		"country_code":   "US",
		"fee_percentage": "lots",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_fee_percentage", payload.Errors[0].Code)
	assert.Equal(t, "fee_percentage", payload.Errors[0].Field)
}

func TestCheckoutSessionInvoiceFeeCalculationRoundTrip(t *testing.T) {
	s := newTestServer(t)
	org := s.fx.Organization(orgdomain.Organization{MonthlyBillingVolumeFreeTier: 100000})
	sessionID := s.fx.Node.Generate()

	calc := s.invoiceCalculation(t, org, sessionID, [2]int64{1000, 2}, [2]int64{500, 1})
	assert.Equal(t, int64(2500), calc.BaseAmount)
	assert.Equal(t, int64(2500), calc.PretaxTotal)
	assert.Equal(t, "0.65", calc.FlowgladFeePercentage)
	assert.Equal(t, int64(103), calc.PaymentMethodFeeFixed)
	assert.Equal(t, feecalculationdomain.StatusDraft, calc.Status)

	resp := s.do(t, http.MethodGet, "/v1/fee-calculations/"+calc.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	stored := decodeData[feecalculationdomain.FeeCalculation](t, resp)
	assert.Equal(t, calc.ID, stored.ID)
	assert.Equal(t, "10001", stored.BillingAddress.Data().PostalCode)

	resp = s.do(t, http.MethodPost, "/v1/fee-calculations/"+calc.ID.String()+"/finalize", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	finalized := decodeData[feecalculationdomain.FeeCalculation](t, resp)
	assert.Equal(t, feecalculationdomain.StatusFinalized, finalized.Status)
	assert.Equal(t, "0", finalized.FlowgladFeePercentage)
	require.NotNil(t, finalized.InternalNotes)
}

func TestCreateFeeCalculationValidation(t *testing.T) {
	s := newTestServer(t)
	org := s.fx.Organization(orgdomain.Organization{})

	resp := s.do(t, http.MethodPost, "/v1/fee-calculations/checkout-sessions/invoice", gin.H{
		"organization_id":     "not-an-id",
		"checkout_session_id": "1",
		"invoice_id":          "1",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_organization_id", decodeError(t, resp).Errors[0].Code)

	resp = s.do(t, http.MethodPost, "/v1/fee-calculations/checkout-sessions/price", gin.H{
		"organization_id":     org.ID.String(),
		"checkout_session_id": "12",
		"price_id":            "34",
		"quantity":            -1,
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_quantity", decodeError(t, resp).Errors[0].Code)

	resp = s.do(t, http.MethodPost, "/v1/fee-calculations/billing-periods", gin.H{
		"organization_id":     org.ID.String(),
		"billing_period_id":   s.fx.Node.Generate().String(),
		"payment_method_type": "card",
		"billing_address":     gin.H{"country": "US"},
	})
	require.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())
}

func TestGetFeeCalculationNotFound(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/v1/fee-calculations/"+s.fx.Node.Generate().String(), nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not_found", decodeError(t, resp).Type)

	resp = s.do(t, http.MethodGet, "/v1/fee-calculations/abc", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = s.do(t, http.MethodGet, "/v1/nowhere", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSettleAndRefundPayment(t *testing.T) {
	s := newTestServer(t)
	org := s.fx.Organization(orgdomain.Organization{})
	sessionID := s.fx.Node.Generate()
	calc := s.invoiceCalculation(t, org, sessionID, [2]int64{4000, 1})

	payment := s.fx.Payment(paymentdomain.Payment{
		OrgID:             org.ID,
		CheckoutSessionID: &sessionID,
		Amount:            calc.PretaxTotal,
		Status:            paymentdomain.StatusProcessing,
		ChargeDate:        testNow,
	})
	base := "/v1/payments/" + payment.ID.String()

	resp := s.do(t, http.MethodPost, base+"/refund", gin.H{"amount": 100})
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = s.do(t, http.MethodPost, base+"/settle", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, paymentdomain.StatusSucceeded, decodeData[paymentdomain.Payment](t, resp).Status)

	resp = s.do(t, http.MethodGet, "/v1/fee-calculations/"+calc.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, feecalculationdomain.StatusFinalized, decodeData[feecalculationdomain.FeeCalculation](t, resp).Status)

	resp = s.do(t, http.MethodPost, base+"/refund", gin.H{"amount": 5000})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_refund_amount", decodeError(t, resp).Errors[0].Code)

	resp = s.do(t, http.MethodPost, base+"/refund", gin.H{"amount": 4000})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	refunded := decodeData[paymentdomain.Payment](t, resp)
	assert.Equal(t, paymentdomain.StatusRefunded, refunded.Status)
	assert.Equal(t, int64(4000), refunded.RefundedAmount)
}

func TestFinalizeAfterSettleKeepsPercentage(t *testing.T) {
	s := newTestServer(t)
	org := s.fx.Organization(orgdomain.Organization{FeePercentage: "5", MonthlyBillingVolumeFreeTier: 100000})
	s.fx.Payment(paymentdomain.Payment{OrgID: org.ID, Amount: 90000, Status: paymentdomain.StatusSucceeded, ChargeDate: testNow.Add(-time.Hour)})
	sessionID := s.fx.Node.Generate()
	calc := s.invoiceCalculation(t, org, sessionID, [2]int64{20000, 1})
	require.Equal(t, int64(20000), calc.PretaxTotal)

	payment := s.fx.Payment(paymentdomain.Payment{
		OrgID:             org.ID,
		CheckoutSessionID: &sessionID,
		Amount:            calc.PretaxTotal,
		Status:            paymentdomain.StatusProcessing,
		ChargeDate:        testNow,
	})
	resp := s.do(t, http.MethodPost, "/v1/payments/"+payment.ID.String()+"/settle", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = s.do(t, http.MethodGet, "/v1/fee-calculations/"+calc.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	settled := decodeData[feecalculationdomain.FeeCalculation](t, resp)
	assert.Equal(t, "2.5", settled.FlowgladFeePercentage)

	resp = s.do(t, http.MethodPost, "/v1/fee-calculations/"+calc.ID.String()+"/finalize", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	again := decodeData[feecalculationdomain.FeeCalculation](t, resp)
	assert.Equal(t, "2.5", again.FlowgladFeePercentage)
	assert.Equal(t, settled.InternalNotes, again.InternalNotes)
}

func TestSettlePaymentWithChargeDate(t *testing.T) {
	s := newTestServer(t)
	org := s.fx.Organization(orgdomain.Organization{})
	sessionID := s.fx.Node.Generate()
	calc := s.invoiceCalculation(t, org, sessionID, [2]int64{1500, 1})
	payment := s.fx.Payment(paymentdomain.Payment{
		OrgID:             org.ID,
		CheckoutSessionID: &sessionID,
		Amount:            calc.PretaxTotal,
		Status:            paymentdomain.StatusProcessing,
		ChargeDate:        testNow,
	})

	resp := s.do(t, http.MethodPost, "/v1/payments/"+payment.ID.String()+"/settle", gin.H{"charge_date": "yesterday"})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, http.MethodPost, "/v1/payments/"+payment.ID.String()+"/settle", gin.H{"charge_date": "2025-03-13T08:00:00Z"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	settled := decodeData[paymentdomain.Payment](t, resp)
	assert.True(t, settled.ChargeDate.Equal(time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC)))
}

func TestListFeeCalculationsPaginates(t *testing.T) {
	s := newTestServer(t)
	org := s.fx.Organization(orgdomain.Organization{})
	for i := 0; i < 3; i++ {
		s.invoiceCalculation(t, org, s.fx.Node.Generate(), [2]int64{int64(1000 * (i + 1)), 1})
	}

	path := fmt.Sprintf("/v1/organizations/%s/fee-calculations?page_size=2", org.ID)
	resp := s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var page struct {
		Data     []feecalculationdomain.FeeCalculation `json:"data"`
		PageInfo struct {
			NextPageToken string `json:"next_page_token"`
			HasMore       bool   `json:"has_more"`
		} `json:"page_info"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	require.Len(t, page.Data, 2)
	require.True(t, page.PageInfo.HasMore)

	resp = s.do(t, http.MethodGet, path+"&page_token="+page.PageInfo.NextPageToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.False(t, page.PageInfo.HasMore)

	resp = s.do(t, http.MethodGet, path+"&page_token=zzz", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"wrapped percentage", fmt.Errorf("parse: %w", money.ErrInvalidPercentage), http.StatusBadRequest, "validation_error"},
		{"owner", feecalculationdomain.ErrInvalidOwner, http.StatusBadRequest, "validation_error"},
		{"fee calculation missing", feecalculationdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"gorm missing", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"lock busy", lock.ErrLockNotAcquired, http.StatusServiceUnavailable, "service_unavailable"},
		{"payment state", paymentdomain.ErrInvalidStatus, http.StatusConflict, "conflict"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
		})
	}

	kind, code := classifyErrorForLog(money.ErrInvalidPercentage)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_percentage", code)
}
