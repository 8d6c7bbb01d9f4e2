package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingperiodrepo "github.com/flowglad/flowglad-sub009/internal/billingperiod/repository"
	"github.com/flowglad/flowglad-sub009/internal/clock"
	"github.com/flowglad/flowglad-sub009/internal/config"
	"github.com/flowglad/flowglad-sub009/internal/dbtest"
	discountdomain "github.com/flowglad/flowglad-sub009/internal/discount/domain"
	discountrepo "github.com/flowglad/flowglad-sub009/internal/discount/repository"
	discountservice "github.com/flowglad/flowglad-sub009/internal/discount/service"
	"github.com/flowglad/flowglad-sub009/internal/events"
	eventsdomain "github.com/flowglad/flowglad-sub009/internal/events/domain"
	feecalculationdomain "github.com/flowglad/flowglad-sub009/internal/feecalculation/domain"
	feecalculationrepo "github.com/flowglad/flowglad-sub009/internal/feecalculation/repository"
	feecalculationservice "github.com/flowglad/flowglad-sub009/internal/feecalculation/service"
	invoicerepo "github.com/flowglad/flowglad-sub009/internal/invoice/repository"
	"github.com/flowglad/flowglad-sub009/internal/lock"
	orgdomain "github.com/flowglad/flowglad-sub009/internal/organization/domain"
	orgrepo "github.com/flowglad/flowglad-sub009/internal/organization/repository"
	paymentdomain "github.com/flowglad/flowglad-sub009/internal/payment/domain"
	paymentrepo "github.com/flowglad/flowglad-sub009/internal/payment/repository"
	"github.com/flowglad/flowglad-sub009/internal/payment/service"
	pricedomain "github.com/flowglad/flowglad-sub009/internal/price/domain"
	pricerepo "github.com/flowglad/flowglad-sub009/internal/price/repository"
	"github.com/flowglad/flowglad-sub009/internal/reference"
	subscriptionrepo "github.com/flowglad/flowglad-sub009/internal/subscription/repository"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	taxservice "github.com/flowglad/flowglad-sub009/internal/tax/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingEngine struct {
	transactions     []string
	reversals        []taxdomain.ReversalRequest
	failTransactions int
}

func (e *recordingEngine) CreateCalculation(_ context.Context, req taxdomain.CalculationRequest) (*taxdomain.Calculation, error) {
	return &taxdomain.Calculation{ID: "taxcalc_" + req.Reference, TaxAmountExclusive: 100}, nil
}

func (e *recordingEngine) CreateTransaction(_ context.Context, calculationID, _ string) (*taxdomain.Transaction, error) {
	if e.failTransactions > 0 {
		e.failTransactions--
		return nil, errors.New("stripe unavailable")
	}
	e.transactions = append(e.transactions, calculationID)
	return &taxdomain.Transaction{ID: "taxtxn_1"}, nil
}

func (e *recordingEngine) CreateReversal(_ context.Context, req taxdomain.ReversalRequest) (*taxdomain.Transaction, error) {
	e.reversals = append(e.reversals, req)
	return &taxdomain.Transaction{ID: "taxrev_1"}, nil
}

var now = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type harness struct {
	db     *gorm.DB
	fx     *dbtest.Fixtures
	engine *recordingEngine
	fees   *feecalculationservice.Service
	svc    *service.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(now)
	engine := &recordingEngine{}
	tax := taxservice.NewService(taxservice.Params{Engine: engine, Log: log})
	payments := paymentrepo.Provide()

	fees := feecalculationservice.NewService(feecalculationservice.Params{
		DB:             db,
		Log:            log,
		GenID:          node,
		Clock:          fakeClock,
		Config:         config.Config{FinalizeLockTTLS: 5},
		Fees:           config.NewStaticFeeScheduleHolder(config.DefaultFeeSchedule()),
		Repo:           feecalculationrepo.Provide(),
		Orgs:           orgrepo.NewRepository(db),
		Countries:      reference.NewCountryResolver(reference.NewRepository(db)),
		Prices:         pricerepo.Provide(),
		Invoices:       invoicerepo.Provide(),
		BillingPeriods: billingperiodrepo.Provide(),
		Subscriptions:  subscriptionrepo.Provide(),
		Discounts:      discountrepo.Provide(),
		Payments:       payments,
		Tax:            tax,
		Locker:         lock.NewLocalLocker(),
	})
	discounts := discountservice.NewService(discountservice.Params{
		Log:      log,
		GenID:    node,
		Repo:     discountrepo.Provide(),
		Payments: payments,
	})
	svc := service.NewService(service.Params{
		DB:          db,
		Log:         log,
		Clock:       fakeClock,
		Repo:        payments,
		FeeSvc:      fees,
		TaxSvc:      tax,
		DiscountSvc: discounts,
		Outbox:      events.NewOutbox(node),
	})
	return &harness{db: db, fx: dbtest.NewFixtures(t, db), engine: engine, fees: fees, svc: svc}
}

// checkoutPayment prices a checkout session for a single-payment price and
// records the processing payment for it.
func (h *harness) checkoutPayment(t *testing.T, org orgdomain.Organization, unitPrice int64, purchaseID *snowflake.ID, priceID *snowflake.ID) (paymentdomain.Payment, *feecalculationdomain.FeeCalculation) {
	t.Helper()
	if priceID == nil {
		price := h.fx.Price(org.ID, pricedomain.PriceTypeSinglePayment, unitPrice)
		priceID = &price.ID
	}
	sessionID := h.fx.Node.Generate()
	calc, err := h.fees.CreateCheckoutSessionPriceFeeCalculation(context.Background(), h.db, feecalculationservice.CheckoutSessionPriceInput{
		OrgID:             org.ID,
		CheckoutSessionID: sessionID,
		PriceID:           *priceID,
		PurchaseID:        purchaseID,
		PaymentMethodType: feecalculationdomain.PaymentMethodCard,
		BillingAddress:    taxdomain.BillingAddress{Country: "US", PostalCode: "10001"},
	})
	require.NoError(t, err)

	payment := h.fx.Payment(paymentdomain.Payment{
		OrgID:             org.ID,
		CheckoutSessionID: &sessionID,
		PurchaseID:        purchaseID,
		Amount:            calc.PretaxTotal,
		Status:            paymentdomain.StatusProcessing,
		ChargeDate:        now,
	})
	return payment, calc
}

func (h *harness) outboxTopics(t *testing.T) []string {
	t.Helper()
	var rows []eventsdomain.OutboxEvent
	require.NoError(t, h.db.Order("id asc").Find(&rows).Error)
	topics := make([]string, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, row.Topic)
	}
	return topics
}

func TestSettleFinalizesAndMarksSucceeded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{FeePercentage: "5", MonthlyBillingVolumeFreeTier: 100000})
	h.fx.Payment(paymentdomain.Payment{OrgID: org.ID, Amount: 90000, Status: paymentdomain.StatusSucceeded, ChargeDate: now.Add(-time.Hour)})
	payment, calc := h.checkoutPayment(t, org, 20000, nil, nil)

	settled, err := h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusSucceeded, settled.Status)

	finalized, err := h.fees.GetByID(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, feecalculationdomain.StatusFinalized, finalized.Status)
	assert.Equal(t, "2.5", finalized.FlowgladFeePercentage)
	assert.Empty(t, h.engine.transactions)
	assert.Equal(t, []string{eventsdomain.TopicFeeCalculationFinalized}, h.outboxTopics(t))

	// A second settle is a no-op and does not refinalize with the payment counted.
	_, err = h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)
	again, err := h.fees.GetByID(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.5", again.FlowgladFeePercentage)
	assert.Len(t, h.outboxTopics(t), 1)
}

func TestSettleCommitsTaxTransactionForMerchantOfRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{StripeConnectContractType: orgdomain.ContractTypeMerchantOfRecord})
	payment, calc := h.checkoutPayment(t, org, 5000, nil, nil)
	require.NotNil(t, calc.StripeTaxCalculationID)

	_, err := h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)

	assert.Equal(t, []string{*calc.StripeTaxCalculationID}, h.engine.transactions)
	stored, err := h.fees.GetByID(ctx, calc.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StripeTaxTransactionID)
	assert.Equal(t, "taxtxn_1", *stored.StripeTaxTransactionID)
}

func TestSettleRetriesTaxTransactionAfterEngineFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{StripeConnectContractType: orgdomain.ContractTypeMerchantOfRecord})
	payment, calc := h.checkoutPayment(t, org, 5000, nil, nil)
	h.engine.failTransactions = 1

	_, err := h.svc.Settle(ctx, payment.ID, now)
	require.Error(t, err)

	stored, err := h.svc.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusSucceeded, stored.Status)
	pending, err := h.fees.GetByID(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, feecalculationdomain.StatusFinalized, pending.Status)
	assert.Nil(t, pending.StripeTaxTransactionID)

	_, err = h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)
	committed, err := h.fees.GetByID(ctx, calc.ID)
	require.NoError(t, err)
	require.NotNil(t, committed.StripeTaxTransactionID)
	assert.Equal(t, "taxtxn_1", *committed.StripeTaxTransactionID)

	_, err = h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)
	assert.Equal(t, []string{*calc.StripeTaxCalculationID}, h.engine.transactions)
	assert.Len(t, h.outboxTopics(t), 1)
}

func TestSettleRollbackLeavesTaxEngineUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{StripeConnectContractType: orgdomain.ContractTypeMerchantOfRecord})
	payment, calc := h.checkoutPayment(t, org, 5000, nil, nil)

	require.NoError(t, h.db.Migrator().DropTable(&eventsdomain.OutboxEvent{}))
	_, err := h.svc.Settle(ctx, payment.ID, now)
	require.Error(t, err)

	assert.Empty(t, h.engine.transactions)
	stored, err := h.svc.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusProcessing, stored.Status)
	draft, err := h.fees.GetByID(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, feecalculationdomain.StatusDraft, draft.Status)

	require.NoError(t, h.db.AutoMigrate(&eventsdomain.OutboxEvent{}))
	_, err = h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)
	assert.Equal(t, []string{*calc.StripeTaxCalculationID}, h.engine.transactions)
}

func TestFinalizeAfterSettleKeepsPercentage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{FeePercentage: "5", MonthlyBillingVolumeFreeTier: 100000})
	h.fx.Payment(paymentdomain.Payment{OrgID: org.ID, Amount: 90000, Status: paymentdomain.StatusSucceeded, ChargeDate: now.Add(-time.Hour)})
	payment, calc := h.checkoutPayment(t, org, 20000, nil, nil)

	_, err := h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)

	refinalized, err := h.fees.FinalizeByID(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.5", refinalized.FlowgladFeePercentage)
	assert.Contains(t, *refinalized.InternalNotes, "partially exceeded")
}

func TestSettleRedeemsOnceDiscount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{})
	price := h.fx.Price(org.ID, pricedomain.PriceTypeSinglePayment, 3000)
	purchase := h.fx.Purchase(pricedomain.Purchase{OrgID: org.ID, PriceID: price.ID, PriceType: pricedomain.PriceTypeSinglePayment})
	discount := h.fx.Discount(discountdomain.Discount{
		OrgID: org.ID, AmountType: discountdomain.AmountTypeFixed, Amount: 100, Duration: discountdomain.DurationOnce,
	})
	redemption := h.fx.Redemption(discount, nil, &purchase.ID)
	payment, _ := h.checkoutPayment(t, org, 0, &purchase.ID, &price.ID)

	_, err := h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)

	var stored discountdomain.DiscountRedemption
	require.NoError(t, h.db.First(&stored, "id = ?", redemption.ID).Error)
	assert.True(t, stored.FullyRedeemed)
}

func TestSettleRequiresFeeContext(t *testing.T) {
	h := newHarness(t)
	org := h.fx.Organization(orgdomain.Organization{})
	payment := h.fx.Payment(paymentdomain.Payment{OrgID: org.ID, Amount: 100, Status: paymentdomain.StatusProcessing})

	_, err := h.svc.Settle(context.Background(), payment.ID, now)
	assert.ErrorIs(t, err, paymentdomain.ErrMissingFeeContext)

	_, err = h.svc.Settle(context.Background(), 99, now)
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)
}

func TestRefundValidatesAmount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{})
	payment, _ := h.checkoutPayment(t, org, 1000, nil, nil)

	_, err := h.svc.Refund(ctx, payment.ID, 100)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidStatus)

	_, err = h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)

	_, err = h.svc.Refund(ctx, payment.ID, 0)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidRefundAmount)
	_, err = h.svc.Refund(ctx, payment.ID, 1001)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidRefundAmount)
}

func TestRefundPartialThenFullReversesTax(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{StripeConnectContractType: orgdomain.ContractTypeMerchantOfRecord})
	payment, _ := h.checkoutPayment(t, org, 1000, nil, nil)
	_, err := h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)

	partial, err := h.svc.Refund(ctx, payment.ID, 400)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusSucceeded, partial.Status)
	assert.Equal(t, int64(400), partial.RefundedAmount)

	full, err := h.svc.Refund(ctx, payment.ID, 600)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusRefunded, full.Status)
	assert.Equal(t, int64(1000), full.RefundedAmount)

	require.Len(t, h.engine.reversals, 2)
	assert.Equal(t, taxdomain.ReversalModePartial, h.engine.reversals[0].Mode)
	assert.Equal(t, int64(400), h.engine.reversals[0].FlatAmount)
	assert.Equal(t, "taxtxn_1", h.engine.reversals[0].OriginalTransactionID)
	assert.Equal(t, taxdomain.ReversalModePartial, h.engine.reversals[1].Mode)
	assert.Equal(t, int64(600), h.engine.reversals[1].FlatAmount)

	_, err = h.svc.Refund(ctx, payment.ID, 1)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidRefundAmount)

	assert.Equal(t, []string{
		eventsdomain.TopicFeeCalculationFinalized,
		eventsdomain.TopicPaymentRefunded,
		eventsdomain.TopicPaymentRefunded,
	}, h.outboxTopics(t))
}

func TestRefundInFullUsesFullReversal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{StripeConnectContractType: orgdomain.ContractTypeMerchantOfRecord})
	payment, _ := h.checkoutPayment(t, org, 1000, nil, nil)
	_, err := h.svc.Settle(ctx, payment.ID, now)
	require.NoError(t, err)

	refunded, err := h.svc.Refund(ctx, payment.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusRefunded, refunded.Status)
	require.Len(t, h.engine.reversals, 1)
	assert.Equal(t, taxdomain.ReversalModeFull, h.engine.reversals[0].Mode)
}

func TestRefundedPaymentsStillCountTowardVolume(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := h.fx.Organization(orgdomain.Organization{FeePercentage: "5", MonthlyBillingVolumeFreeTier: 100000})

	first, _ := h.checkoutPayment(t, org, 90000, nil, nil)
	_, err := h.svc.Settle(ctx, first.ID, now)
	require.NoError(t, err)
	_, err = h.svc.Refund(ctx, first.ID, 90000)
	require.NoError(t, err)

	second, calc := h.checkoutPayment(t, org, 20000, nil, nil)
	_, err = h.svc.Settle(ctx, second.ID, now)
	require.NoError(t, err)

	finalized, err := h.fees.GetByID(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.5", finalized.FlowgladFeePercentage)
}
