package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/clock"
	discountservice "github.com/flowglad/flowglad-sub009/internal/discount/service"
	"github.com/flowglad/flowglad-sub009/internal/events"
	eventsdomain "github.com/flowglad/flowglad-sub009/internal/events/domain"
	feecalculationdomain "github.com/flowglad/flowglad-sub009/internal/feecalculation/domain"
	feecalculationservice "github.com/flowglad/flowglad-sub009/internal/feecalculation/service"
	"github.com/flowglad/flowglad-sub009/internal/observability/metrics"
	paymentdomain "github.com/flowglad/flowglad-sub009/internal/payment/domain"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	taxservice "github.com/flowglad/flowglad-sub009/internal/tax/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        paymentdomain.Repository
	FeeSvc      *feecalculationservice.Service
	TaxSvc      *taxservice.Service
	DiscountSvc *discountservice.Service
	Outbox      *events.Outbox
	ObsMetrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        paymentdomain.Repository
	feeSvc      *feecalculationservice.Service
	taxSvc      *taxservice.Service
	discountSvc *discountservice.Service
	outbox      *events.Outbox
	obsMetrics  *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		feeSvc:      p.FeeSvc,
		taxSvc:      p.TaxSvc,
		discountSvc: p.DiscountSvc,
		outbox:      p.Outbox,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*paymentdomain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

// Settle confirms a payment: its latest fee calculation is finalized, the
// payment is marked succeeded and its discount redemption advanced in one
// transaction held under the organization's finalization lock. The tax
// transaction is committed with the tax engine only after that transaction
// commits. Settling an already settled payment retries a tax commit that
// failed earlier and is otherwise a no-op.
func (s *Service) Settle(ctx context.Context, id snowflake.ID, chargeDate time.Time) (*paymentdomain.Payment, error) {
	payment, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status.IsResolved() {
		if payment.Status == paymentdomain.StatusSucceeded {
			err := s.feeSvc.WithOrgLock(ctx, payment.OrgID, func(ctx context.Context) error {
				return s.commitTaxTransaction(ctx, payment)
			})
			if err != nil {
				s.obsMetrics.RecordSettlement(ctx, "tax_pending")
				return nil, err
			}
		}
		s.obsMetrics.RecordSettlement(ctx, "noop")
		return s.GetByID(ctx, id)
	}
	if payment.Status != paymentdomain.StatusProcessing {
		return nil, paymentdomain.ErrInvalidStatus
	}
	if payment.CheckoutSessionID == nil && payment.BillingPeriodID == nil {
		return nil, paymentdomain.ErrMissingFeeContext
	}
	if chargeDate.IsZero() {
		chargeDate = s.clock.Now()
	}

	settled := false
	err = s.feeSvc.WithOrgLock(ctx, payment.OrgID, func(ctx context.Context) error {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.settle(ctx, tx, id, chargeDate.UTC())
		})
		if err != nil {
			return err
		}
		settled = true
		return s.commitTaxTransaction(ctx, payment)
	})
	if err != nil {
		if settled {
			s.obsMetrics.RecordSettlement(ctx, "tax_pending")
			s.log.Error("payment settled but tax transaction not committed",
				zap.String("payment_id", id.String()),
				zap.Error(err),
			)
		} else {
			s.obsMetrics.RecordSettlement(ctx, "error")
		}
		return nil, err
	}
	s.obsMetrics.RecordSettlement(ctx, "succeeded")
	return s.GetByID(ctx, id)
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, id snowflake.ID, chargeDate time.Time) error {
	payment, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return err
	}
	if payment == nil {
		return paymentdomain.ErrNotFound
	}
	if payment.Status.IsResolved() {
		return nil
	}

	calc, err := s.latestFeeCalculation(ctx, tx, payment)
	if err != nil {
		return err
	}

	// The current payment is still processing here, so month-to-date volume
	// excludes it.
	finalized, err := s.feeSvc.Finalize(ctx, tx, calc.ID)
	if err != nil {
		return fmt.Errorf("finalize fee calculation %s: %w", calc.ID, err)
	}

	if err := s.repo.MarkSucceeded(ctx, tx, payment.ID, chargeDate); err != nil {
		return err
	}
	payment.Status = paymentdomain.StatusSucceeded
	payment.ChargeDate = chargeDate

	if err := s.discountSvc.ProcessRedemptionForPayment(ctx, tx, payment); err != nil {
		return err
	}

	var finalizedAt string
	if finalized.FinalizedAt != nil {
		finalizedAt = finalized.FinalizedAt.UTC().Format(time.RFC3339)
	}
	event := eventsdomain.FeeCalculationFinalized{
		FeeCalculationID:      finalized.ID.String(),
		OrganizationID:        finalized.OrgID.String(),
		PaymentID:             payment.ID.String(),
		FlowgladFeePercentage: finalized.FlowgladFeePercentage,
		PretaxTotal:           finalized.PretaxTotal,
		Currency:              finalized.Currency,
		FinalizedAt:           finalizedAt,
	}
	if err := s.outbox.Enqueue(ctx, tx, payment.OrgID, eventsdomain.TopicFeeCalculationFinalized, event, "fee_calculation.finalized:"+finalized.ID.String()); err != nil {
		return err
	}

	s.log.Info("payment settled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("fee_calculation_id", finalized.ID.String()),
		zap.String("flowglad_fee_percentage", finalized.FlowgladFeePercentage),
	)
	return nil
}

// commitTaxTransaction commits the finalized calculation of a settled payment
// with the tax engine and stores the transaction id. It does nothing when the
// id is already stored or the calculation carries no real tax calculation.
func (s *Service) commitTaxTransaction(ctx context.Context, payment *paymentdomain.Payment) error {
	if payment.CheckoutSessionID == nil && payment.BillingPeriodID == nil {
		return nil
	}
	calc, err := s.latestFeeCalculation(ctx, s.db.WithContext(ctx), payment)
	if err != nil {
		if errors.Is(err, feecalculationdomain.ErrNotFound) {
			return nil
		}
		return err
	}
	if calc.Status != feecalculationdomain.StatusFinalized || calc.StripeTaxTransactionID != nil {
		return nil
	}

	transactionID, err := s.taxSvc.CreateTaxTransaction(ctx, calc.StripeTaxCalculationID, "payment_"+payment.ID.String())
	if err != nil {
		return err
	}
	if transactionID == nil {
		return nil
	}
	return s.feeSvc.AttachTaxTransaction(ctx, s.db.WithContext(ctx), calc, *transactionID)
}

// Refund records a refund of amount minor units and reverses the committed
// tax transaction by the same amount. Refunded payments keep counting toward
// processed volume.
func (s *Service) Refund(ctx context.Context, id snowflake.ID, amount int64) (*paymentdomain.Payment, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrNotFound
		}
		if !payment.Status.IsResolved() {
			return paymentdomain.ErrInvalidStatus
		}
		if amount <= 0 || amount > payment.RefundableAmount() {
			return paymentdomain.ErrInvalidRefundAmount
		}

		refunded := payment.RefundedAmount + amount
		status := payment.Status
		if refunded == payment.Amount {
			status = paymentdomain.StatusRefunded
		}

		reversalID, err := s.reverseTax(ctx, tx, payment, amount, refunded)
		if err != nil {
			return err
		}

		if err := s.repo.ApplyRefund(ctx, tx, payment.ID, refunded, status, s.clock.Now()); err != nil {
			return err
		}

		event := eventsdomain.PaymentRefunded{
			PaymentID:      payment.ID.String(),
			OrganizationID: payment.OrgID.String(),
			Amount:         amount,
			RefundedAmount: refunded,
			Status:         string(status),
			TaxReversalID:  reversalID,
		}
		dedupe := fmt.Sprintf("payment.refunded:%s:%d", payment.ID, refunded)
		return s.outbox.Enqueue(ctx, tx, payment.OrgID, eventsdomain.TopicPaymentRefunded, event, dedupe)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) reverseTax(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment, amount, refunded int64) (string, error) {
	if payment.CheckoutSessionID == nil && payment.BillingPeriodID == nil {
		return "", nil
	}
	calc, err := s.latestFeeCalculation(ctx, tx, payment)
	if err != nil {
		if errors.Is(err, feecalculationdomain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if calc.StripeTaxTransactionID == nil {
		return "", nil
	}

	params := taxdomain.ReversalParams{
		StripeTaxTransactionID: *calc.StripeTaxTransactionID,
		Mode:                   taxdomain.ReversalModePartial,
		FlatAmount:             amount,
		Reference:              fmt.Sprintf("refund_%s_%d", payment.ID, refunded),
	}
	if payment.RefundedAmount == 0 && amount == payment.Amount {
		params.Mode = taxdomain.ReversalModeFull
		params.FlatAmount = 0
	}

	reversalID, err := s.taxSvc.ReverseTaxTransaction(ctx, params)
	if err != nil {
		return "", err
	}
	return *reversalID, nil
}

func (s *Service) latestFeeCalculation(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment) (*feecalculationdomain.FeeCalculation, error) {
	if payment.CheckoutSessionID != nil {
		return s.feeSvc.SelectLatestFeeCalculation(ctx, tx, payment.CheckoutSessionID, nil)
	}
	return s.feeSvc.SelectLatestFeeCalculation(ctx, tx, nil, payment.BillingPeriodID)
}
