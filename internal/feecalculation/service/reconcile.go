package service

import (
	"github.com/flowglad/flowglad-sub009/internal/money"
	"github.com/shopspring/decimal"
)

// Branch names the reconciliation path a finalization took.
type Branch string

const (
	BranchZeroAmount          Branch = "zero_amount"
	BranchCreditsCovered      Branch = "credits_covered"
	BranchFreeTierNotExceeded Branch = "free_tier_not_exceeded"
	BranchFreeTierPartial     Branch = "free_tier_partially_exceeded"
	BranchFreeTierExhausted   Branch = "free_tier_exhausted"
)

type ReconcileInput struct {
	OrganizationFeePercentage decimal.Decimal
	MonthlyFreeTier           int64
	UpfrontProcessingCredits  int64
	MonthToDateTotal          int64
	LifetimeTotal             int64
	TransactionAmount         int64
}

type ReconcileResult struct {
	Branch                 Branch
	CreditsRemainingBefore int64
	CreditsApplied         int64
	AmountAfterCredits     int64
	FreeTierRemaining      int64
	ChargeableAmount       int64
	FeePercentage          decimal.Decimal
}

// Reconcile scales the organization rate down to the share of the transaction
// that falls outside the remaining upfront credits and monthly free tier.
func Reconcile(in ReconcileInput) ReconcileResult {
	res := ReconcileResult{
		CreditsRemainingBefore: money.MaxInt64(in.UpfrontProcessingCredits-in.LifetimeTotal, 0),
		FreeTierRemaining:      money.MaxInt64(in.MonthlyFreeTier-in.MonthToDateTotal, 0),
		FeePercentage:          decimal.Zero,
	}

	if in.TransactionAmount <= 0 {
		res.Branch = BranchZeroAmount
		return res
	}

	res.AmountAfterCredits = money.MaxInt64(in.TransactionAmount-res.CreditsRemainingBefore, 0)
	res.CreditsApplied = in.TransactionAmount - res.AmountAfterCredits
	if res.AmountAfterCredits == 0 {
		res.Branch = BranchCreditsCovered
		return res
	}

	switch {
	case in.MonthlyFreeTier <= in.MonthToDateTotal:
		res.Branch = BranchFreeTierExhausted
		res.ChargeableAmount = res.AmountAfterCredits
	default:
		res.ChargeableAmount = money.MaxInt64(res.AmountAfterCredits-res.FreeTierRemaining, 0)
		if res.ChargeableAmount == 0 {
			res.Branch = BranchFreeTierNotExceeded
		} else {
			res.Branch = BranchFreeTierPartial
		}
	}

	if res.ChargeableAmount > 0 {
		res.FeePercentage = in.OrganizationFeePercentage.
			Mul(decimal.NewFromInt(res.ChargeableAmount)).
			Div(decimal.NewFromInt(in.TransactionAmount))
	}
	return res
}
