package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/discount/domain"
	paymentdomain "github.com/flowglad/flowglad-sub009/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Payments paymentdomain.Repository
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	payments paymentdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("discount.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		payments: p.Payments,
	}
}

// CreateDiscount validates and stores a discount policy.
func (s *Service) CreateDiscount(ctx context.Context, tx *gorm.DB, discount *domain.Discount) error {
	discount.Code = strings.ToUpper(strings.TrimSpace(discount.Code))
	if discount.Code == "" {
		return domain.ErrInvalidDiscount
	}
	if err := discount.Validate(); err != nil {
		return err
	}
	if discount.ID == 0 {
		discount.ID = s.genID.Generate()
	}
	if discount.CreatedAt.IsZero() {
		discount.CreatedAt = time.Now().UTC()
	}
	return s.repo.InsertDiscount(ctx, tx, discount)
}

// Redeem applies discount to exactly one of subscriptionID or purchaseID,
// snapshotting its terms.
func (s *Service) Redeem(ctx context.Context, tx *gorm.DB, discount *domain.Discount, subscriptionID, purchaseID *snowflake.ID) (*domain.DiscountRedemption, error) {
	if err := discount.Validate(); err != nil {
		return nil, err
	}
	if (subscriptionID == nil) == (purchaseID == nil) {
		return nil, domain.ErrInvalidOwner
	}

	now := time.Now().UTC()
	redemption := &domain.DiscountRedemption{
		ID:                 s.genID.Generate(),
		OrgID:              discount.OrgID,
		DiscountID:         discount.ID,
		SubscriptionID:     subscriptionID,
		PurchaseID:         purchaseID,
		DiscountCode:       discount.Code,
		DiscountAmountType: discount.AmountType,
		DiscountAmount:     discount.Amount,
		Duration:           discount.Duration,
		NumberOfPayments:   discount.NumberOfPayments,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.InsertRedemption(ctx, tx, redemption); err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	return redemption, nil
}

// ActiveRedemptionForSubscription returns the redemption that prices the next
// billing period, or nil.
func (s *Service) ActiveRedemptionForSubscription(ctx context.Context, tx *gorm.DB, subscriptionID snowflake.ID) (*domain.DiscountRedemption, error) {
	return s.repo.FindActiveRedemptionBySubscription(ctx, tx, subscriptionID)
}

// ProcessRedemptionForPayment advances the redemption attached to a settled
// payment. It must run after the payment is marked succeeded so the payment
// counts toward the number-of-payments cap.
func (s *Service) ProcessRedemptionForPayment(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment) error {
	if payment == nil || !payment.Status.IsResolved() {
		return nil
	}

	var (
		redemption *domain.DiscountRedemption
		err        error
	)
	switch {
	case payment.SubscriptionID != nil:
		redemption, err = s.repo.FindActiveRedemptionBySubscription(ctx, tx, *payment.SubscriptionID)
	case payment.PurchaseID != nil:
		redemption, err = s.repo.FindActiveRedemptionByPurchase(ctx, tx, *payment.PurchaseID)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if redemption == nil {
		return nil
	}

	done, err := s.isExhausted(ctx, tx, redemption)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}

	if err := s.repo.MarkFullyRedeemed(ctx, tx, redemption.ID); err != nil {
		return fmt.Errorf("mark redemption %s redeemed: %w", redemption.ID, err)
	}
	s.log.Info("discount redemption exhausted",
		zap.String("redemption_id", redemption.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("duration", string(redemption.Duration)),
	)
	return nil
}

func (s *Service) isExhausted(ctx context.Context, tx *gorm.DB, redemption *domain.DiscountRedemption) (bool, error) {
	switch redemption.Duration {
	case domain.DurationOnce:
		return true, nil
	case domain.DurationNumberOfPayments:
		if redemption.NumberOfPayments == nil {
			return false, nil
		}
		var (
			count int64
			err   error
		)
		if redemption.SubscriptionID != nil {
			count, err = s.payments.CountResolvedBySubscription(ctx, tx, *redemption.SubscriptionID)
		} else if redemption.PurchaseID != nil {
			count, err = s.payments.CountResolvedByPurchase(ctx, tx, *redemption.PurchaseID)
		}
		if err != nil {
			return false, err
		}
		return count >= *redemption.NumberOfPayments, nil
	default:
		return false, nil
	}
}
