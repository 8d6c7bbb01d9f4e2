package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingperioddomain "github.com/flowglad/flowglad-sub009/internal/billingperiod/domain"
	"github.com/flowglad/flowglad-sub009/internal/clock"
	"github.com/flowglad/flowglad-sub009/internal/config"
	discountdomain "github.com/flowglad/flowglad-sub009/internal/discount/domain"
	discountservice "github.com/flowglad/flowglad-sub009/internal/discount/service"
	"github.com/flowglad/flowglad-sub009/internal/feecalculation/domain"
	invoicedomain "github.com/flowglad/flowglad-sub009/internal/invoice/domain"
	"github.com/flowglad/flowglad-sub009/internal/lock"
	"github.com/flowglad/flowglad-sub009/internal/money"
	"github.com/flowglad/flowglad-sub009/internal/observability/metrics"
	orgdomain "github.com/flowglad/flowglad-sub009/internal/organization/domain"
	paymentdomain "github.com/flowglad/flowglad-sub009/internal/payment/domain"
	pricedomain "github.com/flowglad/flowglad-sub009/internal/price/domain"
	"github.com/flowglad/flowglad-sub009/internal/reference"
	subscriptiondomain "github.com/flowglad/flowglad-sub009/internal/subscription/domain"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	taxservice "github.com/flowglad/flowglad-sub009/internal/tax/service"
	"github.com/flowglad/flowglad-sub009/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Config         config.Config
	Fees           *config.FeeScheduleHolder
	Repo           domain.Repository
	Orgs           orgdomain.Repository
	Countries      *reference.CountryResolver
	Prices         pricedomain.Repository
	Invoices       invoicedomain.Repository
	BillingPeriods billingperioddomain.Repository
	Subscriptions  subscriptiondomain.Repository
	Discounts      discountdomain.Repository
	Payments       paymentdomain.Repository
	Tax            *taxservice.Service
	Locker         lock.Locker
	Metrics        *metrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	fees           *config.FeeScheduleHolder
	repo           domain.Repository
	orgs           orgdomain.Repository
	countries      *reference.CountryResolver
	prices         pricedomain.Repository
	invoices       invoicedomain.Repository
	billingPeriods billingperioddomain.Repository
	subscriptions  subscriptiondomain.Repository
	discounts      discountdomain.Repository
	payments       paymentdomain.Repository
	tax            *taxservice.Service
	locker         lock.Locker
	lockTTL        time.Duration
	metrics        *metrics.Metrics
}

func NewService(p Params) *Service {
	ttl := time.Duration(p.Config.FinalizeLockTTLS) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("feecalculation.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		fees:           p.Fees,
		repo:           p.Repo,
		orgs:           p.Orgs,
		countries:      p.Countries,
		prices:         p.Prices,
		invoices:       p.Invoices,
		billingPeriods: p.BillingPeriods,
		subscriptions:  p.Subscriptions,
		discounts:      p.Discounts,
		payments:       p.Payments,
		tax:            p.Tax,
		locker:         p.Locker,
		lockTTL:        ttl,
		metrics:        p.Metrics,
	}
}

type CheckoutSessionInvoiceInput struct {
	OrgID             snowflake.ID
	CheckoutSessionID snowflake.ID
	InvoiceID         snowflake.ID
	PaymentMethodType domain.PaymentMethodType
	BillingAddress    taxdomain.BillingAddress
	Livemode          bool
}

type CheckoutSessionPriceInput struct {
	OrgID             snowflake.ID
	CheckoutSessionID snowflake.ID
	PriceID           snowflake.ID
	PurchaseID        *snowflake.ID
	DiscountID        *snowflake.ID
	Quantity          int64
	PaymentMethodType domain.PaymentMethodType
	BillingAddress    taxdomain.BillingAddress
	Livemode          bool
}

type SubscriptionInput struct {
	OrgID             snowflake.ID
	BillingPeriodID   snowflake.ID
	PaymentMethodType domain.PaymentMethodType
	BillingAddress    taxdomain.BillingAddress
	Livemode          bool
}

// CreateCheckoutSessionInvoiceFeeCalculation prices a standalone invoice paid
// through a checkout session. Invoices carry no discount and no tax here.
func (s *Service) CreateCheckoutSessionInvoiceFeeCalculation(ctx context.Context, tx *gorm.DB, in CheckoutSessionInvoiceInput) (*domain.FeeCalculation, error) {
	org, orgCountry, err := s.loadOrganization(ctx, tx, in.OrgID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoices.FindByID(ctx, tx, in.OrgID, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	lineItems, err := s.invoices.ListLineItems(ctx, tx, invoice.ID)
	if err != nil {
		return nil, err
	}

	checkoutSessionID := in.CheckoutSessionID
	invoiceID := invoice.ID
	calc := &domain.FeeCalculation{
		OrgID:             org.ID,
		Type:              domain.CalculationTypeCheckoutSessionPayment,
		CheckoutSessionID: &checkoutSessionID,
		InvoiceID:         &invoiceID,
		BaseAmount:        CalculateInvoiceBaseAmount(lineItems),
		Currency:          invoice.Currency,
		PaymentMethodType: in.PaymentMethodType,
		BillingAddress:    datatypes.NewJSONType(in.BillingAddress),
		Livemode:          in.Livemode,
	}
	if err := s.applyFees(ctx, calc, org, orgCountry); err != nil {
		return nil, err
	}
	return s.insert(ctx, tx, calc)
}

// CreateCheckoutSessionPriceFeeCalculation prices a checkout session for a
// price, optionally tied to a purchase and a discount.
func (s *Service) CreateCheckoutSessionPriceFeeCalculation(ctx context.Context, tx *gorm.DB, in CheckoutSessionPriceInput) (*domain.FeeCalculation, error) {
	org, orgCountry, err := s.loadOrganization(ctx, tx, in.OrgID)
	if err != nil {
		return nil, err
	}

	price, err := s.prices.FindPriceByID(ctx, tx, in.OrgID, in.PriceID)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, pricedomain.ErrNotFound
	}

	var purchase *pricedomain.Purchase
	if in.PurchaseID != nil {
		purchase, err = s.prices.FindPurchaseByID(ctx, tx, in.OrgID, *in.PurchaseID)
		if err != nil {
			return nil, err
		}
		if purchase == nil {
			return nil, pricedomain.ErrPurchaseNotFound
		}
	}

	var discount *discountdomain.Discount
	if in.DiscountID != nil {
		discount, err = s.discounts.FindDiscountByID(ctx, tx, in.OrgID, *in.DiscountID)
		if err != nil {
			return nil, err
		}
		if discount == nil {
			return nil, discountdomain.ErrNotFound
		}
	}

	quantity := in.Quantity
	if quantity <= 0 && purchase != nil {
		quantity = purchase.Quantity
	}
	if quantity <= 0 {
		quantity = 1
	}

	unitAmount, known := resolvePriceBaseAmount(price, purchase)
	if !known {
		s.enumFallback(ctx, "purchase_price_type", string(purchase.PriceType))
	}
	baseAmount := unitAmount * quantity

	var discountAmount int64
	if discount != nil {
		if !discount.AmountType.Valid() {
			s.enumFallback(ctx, "discount_amount_type", string(discount.AmountType))
		}
		discountAmount = discountservice.CalculateDiscountAmount(baseAmount, discount)
	}

	checkoutSessionID := in.CheckoutSessionID
	priceID := price.ID
	calc := &domain.FeeCalculation{
		OrgID:               org.ID,
		Type:                domain.CalculationTypeCheckoutSessionPayment,
		CheckoutSessionID:   &checkoutSessionID,
		PriceID:             &priceID,
		PurchaseID:          in.PurchaseID,
		DiscountID:          in.DiscountID,
		BaseAmount:          baseAmount,
		DiscountAmountFixed: discountAmount,
		Currency:            price.Currency,
		PaymentMethodType:   in.PaymentMethodType,
		BillingAddress:      datatypes.NewJSONType(in.BillingAddress),
		Livemode:            in.Livemode,
	}
	if err := s.applyFees(ctx, calc, org, orgCountry); err != nil {
		return nil, err
	}

	taxResult, err := s.tax.CalculateTaxes(ctx, taxdomain.TaxParams{
		MerchantOfRecord:        org.IsMerchantOfRecord(),
		Currency:                price.Currency,
		DiscountInclusiveAmount: calc.PretaxTotal,
		Quantity:                quantity,
		BillingAddress:          in.BillingAddress,
		PriceID:                 price.ID,
		ProductID:               price.ProductID,
		PurchaseID:              in.PurchaseID,
		TaxCode:                 price.TaxCode,
	})
	if err != nil {
		return nil, fmt.Errorf("calculate taxes: %w", err)
	}
	calc.TaxAmountFixed = taxResult.TaxAmountFixed
	calc.StripeTaxCalculationID = taxResult.StripeTaxCalculationID

	return s.insert(ctx, tx, calc)
}

// CreateSubscriptionFeeCalculation prices the invoice of one billing period:
// static items plus usage overages, less the subscription's active redemption.
func (s *Service) CreateSubscriptionFeeCalculation(ctx context.Context, tx *gorm.DB, in SubscriptionInput) (*domain.FeeCalculation, error) {
	org, orgCountry, err := s.loadOrganization(ctx, tx, in.OrgID)
	if err != nil {
		return nil, err
	}

	period, err := s.billingPeriods.FindByID(ctx, tx, in.OrgID, in.BillingPeriodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, billingperioddomain.ErrNotFound
	}
	subscription, err := s.subscriptions.FindByID(ctx, tx, in.OrgID, period.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, subscriptiondomain.ErrNotFound
	}
	price, err := s.prices.FindPriceByID(ctx, tx, in.OrgID, subscription.PriceID)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, pricedomain.ErrNotFound
	}

	items, err := s.billingPeriods.ListItems(ctx, tx, period.ID)
	if err != nil {
		return nil, err
	}
	overages, err := s.billingPeriods.ListUsageOverages(ctx, tx, period.ID)
	if err != nil {
		return nil, err
	}
	for _, overage := range overages {
		if overage.UsageEventsPerUnit <= 0 {
			s.log.Warn("non-positive usage events per unit, charging per event",
				zap.String("billing_period_id", period.ID.String()),
				zap.String("usage_meter_id", overage.UsageMeterID.String()),
				zap.Int64("usage_events_per_unit", overage.UsageEventsPerUnit),
			)
			s.metrics.RecordEnumFallback(ctx, "usage_events_per_unit")
		}
	}
	baseAmount := CalculateBillingItemBaseAmount(items, overages)

	redemption, err := s.discounts.FindActiveRedemptionBySubscription(ctx, tx, subscription.ID)
	if err != nil {
		return nil, err
	}

	billingPeriodID := period.ID
	priceID := price.ID
	calc := &domain.FeeCalculation{
		OrgID:             org.ID,
		Type:              domain.CalculationTypeSubscriptionPayment,
		BillingPeriodID:   &billingPeriodID,
		PriceID:           &priceID,
		BaseAmount:        baseAmount,
		Currency:          price.Currency,
		PaymentMethodType: in.PaymentMethodType,
		BillingAddress:    datatypes.NewJSONType(in.BillingAddress),
		Livemode:          in.Livemode,
	}
	if redemption != nil {
		if !redemption.DiscountAmountType.Valid() {
			s.enumFallback(ctx, "discount_amount_type", string(redemption.DiscountAmountType))
		}
		discountID := redemption.DiscountID
		calc.DiscountID = &discountID
		calc.DiscountAmountFixed = discountservice.CalculateDiscountAmountFromRedemption(baseAmount, redemption)
	}
	if err := s.applyFees(ctx, calc, org, orgCountry); err != nil {
		return nil, err
	}

	taxResult, err := s.tax.CalculateTaxes(ctx, taxdomain.TaxParams{
		MerchantOfRecord:        org.IsMerchantOfRecord(),
		Currency:                price.Currency,
		DiscountInclusiveAmount: calc.PretaxTotal,
		Quantity:                1,
		BillingAddress:          in.BillingAddress,
		PriceID:                 price.ID,
		ProductID:               price.ProductID,
		TaxCode:                 price.TaxCode,
	})
	if err != nil {
		return nil, fmt.Errorf("calculate taxes: %w", err)
	}
	calc.TaxAmountFixed = taxResult.TaxAmountFixed
	calc.StripeTaxCalculationID = taxResult.StripeTaxCalculationID

	return s.insert(ctx, tx, calc)
}

// Finalize reconciles the calculation's platform rate against the
// organization's resolved payment volume and records the reasoning. Callers
// that can race on the same organization should hold WithOrgLock around the
// transaction that calls Finalize.
func (s *Service) Finalize(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.FeeCalculation, error) {
	calc, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if calc == nil {
		return nil, domain.ErrNotFound
	}
	// Finalized is terminal. Once the payment settles its own amount is part
	// of the resolved volume, so recomputing would count it twice.
	if calc.Status == domain.StatusFinalized {
		s.metrics.RecordFinalization(ctx, "already_finalized")
		return calc, nil
	}

	org, err := s.orgs.WithTx(tx).GetByID(ctx, calc.OrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, orgdomain.ErrNotFound
	}
	orgRate, err := FlowgladFeePercentage(org)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	monthToDate, err := s.payments.SumResolvedSince(ctx, tx, org.ID, clock.StartOfMonth(now))
	if err != nil {
		return nil, fmt.Errorf("month-to-date volume: %w", err)
	}
	lifetime, err := s.payments.SumResolvedLifetime(ctx, tx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("lifetime volume: %w", err)
	}

	in := ReconcileInput{
		OrganizationFeePercentage: orgRate,
		MonthlyFreeTier:           org.MonthlyBillingVolumeFreeTier,
		UpfrontProcessingCredits:  org.UpfrontProcessingCredits,
		MonthToDateTotal:          monthToDate,
		LifetimeTotal:             lifetime,
		TransactionAmount:         calc.PretaxTotal,
	}
	res := Reconcile(in)
	notes := BuildInternalNotes(in, res, now)

	if err := s.repo.UpdateFinalization(ctx, tx, calc.ID, money.FormatPercentage(res.FeePercentage), notes, now); err != nil {
		return nil, err
	}
	s.metrics.RecordFinalization(ctx, string(res.Branch))
	s.log.Info("fee calculation finalized",
		zap.String("fee_calculation_id", calc.ID.String()),
		zap.String("org_id", org.ID.String()),
		zap.String("branch", string(res.Branch)),
		zap.String("fee_percentage", money.FormatPercentage(res.FeePercentage)),
	)

	return s.repo.FindByID(ctx, tx, calc.ID)
}

// FinalizeByID finalizes in its own transaction under the organization lock.
func (s *Service) FinalizeByID(ctx context.Context, id snowflake.ID) (*domain.FeeCalculation, error) {
	calc, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if calc == nil {
		return nil, domain.ErrNotFound
	}

	var out *domain.FeeCalculation
	err = s.WithOrgLock(ctx, calc.OrgID, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			finalized, err := s.Finalize(ctx, tx, id)
			if err != nil {
				return err
			}
			out = finalized
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithOrgLock serializes fn with every other finalization of orgID.
func (s *Service) WithOrgLock(ctx context.Context, orgID snowflake.ID, fn func(ctx context.Context) error) error {
	return lock.WithLock(ctx, s.locker, "feecalculation:finalize:"+orgID.String(), s.lockTTL, fn)
}

// SelectLatestFeeCalculation returns the newest calculation for exactly one of
// a checkout session or a billing period.
func (s *Service) SelectLatestFeeCalculation(ctx context.Context, tx *gorm.DB, checkoutSessionID, billingPeriodID *snowflake.ID) (*domain.FeeCalculation, error) {
	if (checkoutSessionID == nil) == (billingPeriodID == nil) {
		return nil, domain.ErrInvalidOwner
	}

	var (
		calc *domain.FeeCalculation
		err  error
	)
	if checkoutSessionID != nil {
		calc, err = s.repo.SelectLatestByCheckoutSession(ctx, tx, *checkoutSessionID)
	} else {
		calc, err = s.repo.SelectLatestByBillingPeriod(ctx, tx, *billingPeriodID)
	}
	if err != nil {
		return nil, err
	}
	if calc == nil {
		return nil, domain.ErrNotFound
	}
	return calc, nil
}

// AttachTaxTransaction records the tax transaction committed for calc.
func (s *Service) AttachTaxTransaction(ctx context.Context, tx *gorm.DB, calc *domain.FeeCalculation, transactionID string) error {
	if err := s.repo.SetTaxTransaction(ctx, tx, calc.ID, transactionID); err != nil {
		return err
	}
	calc.StripeTaxTransactionID = &transactionID
	return nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.FeeCalculation, error) {
	calc, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if calc == nil {
		return nil, domain.ErrNotFound
	}
	return calc, nil
}

// List pages through an organization's calculations, newest first.
func (s *Service) List(ctx context.Context, orgID snowflake.ID, page pagination.Pagination) ([]domain.FeeCalculation, pagination.PageInfo, error) {
	var before *snowflake.ID
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, pagination.PageInfo{}, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.PageInfo{}, pagination.ErrInvalidPageToken
		}
		before = &id
	}

	limit := page.Limit()
	items, err := s.repo.ListByOrg(ctx, s.db, orgID, before, limit+1)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return pagination.BuildCursorPage(items, limit, func(item domain.FeeCalculation) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.String()}
	})
}

func (s *Service) loadOrganization(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (*orgdomain.Organization, string, error) {
	org, err := s.orgs.WithTx(tx).GetByID(ctx, orgID)
	if err != nil {
		return nil, "", err
	}
	if org == nil {
		return nil, "", orgdomain.ErrNotFound
	}
	country, err := s.countries.CountryCode(ctx, org.CountryID)
	if err != nil {
		return nil, "", fmt.Errorf("organization %s country: %w", org.ID, err)
	}
	return org, country, nil
}

// applyFees fills the pretax total and every fee component from the base and
// discount amounts already set on calc.
func (s *Service) applyFees(ctx context.Context, calc *domain.FeeCalculation, org *orgdomain.Organization, orgCountry string) error {
	components := NewComponents(s.fees.Get())

	platformRate, err := FlowgladFeePercentage(org)
	if err != nil {
		return err
	}
	internationalRate, err := components.InternationalFeePercentage(calc.PaymentMethodType, calc.BillingAddress.Data().Country, org, orgCountry)
	if err != nil {
		return err
	}
	if !calc.PaymentMethodType.Known() {
		s.enumFallback(ctx, "payment_method_type", string(calc.PaymentMethodType))
	}

	calc.PretaxTotal = money.MaxInt64(calc.BaseAmount-calc.DiscountAmountFixed, 0)
	calc.FlowgladFeePercentage = money.FormatPercentage(platformRate)
	calc.MorSurchargePercentage = money.FormatPercentage(components.MorSurchargePercentage(org))
	calc.InternationalFeePercentage = money.FormatPercentage(internationalRate)
	calc.PaymentMethodFeeFixed = components.PaymentMethodFeeAmount(calc.PretaxTotal, calc.PaymentMethodType)
	return nil
}

func (s *Service) insert(ctx context.Context, tx *gorm.DB, calc *domain.FeeCalculation) (*domain.FeeCalculation, error) {
	if err := calc.ValidateOwner(); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	calc.ID = s.genID.Generate()
	calc.Status = domain.StatusDraft
	calc.CreatedAt = now
	calc.UpdatedAt = now

	if err := s.repo.Insert(ctx, tx, calc); err != nil {
		return nil, fmt.Errorf("insert fee calculation: %w", err)
	}
	s.metrics.RecordFeeCalculation(ctx, string(calc.Type))
	return calc, nil
}

// enumFallback reports a stored enum value outside the known set. The
// calculation proceeds with the default policy for that field.
func (s *Service) enumFallback(ctx context.Context, field, value string) {
	s.log.Warn("unrecognized enum value, using default policy",
		zap.String("field", field),
		zap.String("value", value),
	)
	s.metrics.RecordEnumFallback(ctx, field)
}
