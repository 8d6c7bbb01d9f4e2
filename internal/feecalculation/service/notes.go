package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/flowglad/flowglad-sub009/internal/money"
)

// BuildInternalNotes renders the audit trail stored on a finalized calculation.
func BuildInternalNotes(in ReconcileInput, res ReconcileResult, finalizedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Finalized at %s. ", finalizedAt.UTC().Format(time.RFC3339))

	switch res.Branch {
	case BranchZeroAmount:
		b.WriteString("Transaction amount is 0, no platform fee applies. ")
	case BranchCreditsCovered:
		fmt.Fprintf(&b, "Upfront processing credits covered the full transaction: %d of %d remaining credits applied. ",
			res.CreditsApplied, res.CreditsRemainingBefore)
	case BranchFreeTierNotExceeded:
		fmt.Fprintf(&b, "Free tier not exceeded: %d of %d monthly free volume remaining covers the transaction. ",
			res.FreeTierRemaining, in.MonthlyFreeTier)
	case BranchFreeTierPartial:
		fmt.Fprintf(&b, "Free tier partially exceeded: %d covered by the remaining free tier, %d chargeable. ",
			res.AmountAfterCredits-res.ChargeableAmount, res.ChargeableAmount)
	case BranchFreeTierExhausted:
		fmt.Fprintf(&b, "Free tier already exhausted (%d month-to-date against a %d tier), %d chargeable. ",
			in.MonthToDateTotal, in.MonthlyFreeTier, res.ChargeableAmount)
	}

	if res.CreditsApplied > 0 && res.Branch != BranchCreditsCovered {
		fmt.Fprintf(&b, "Upfront credits applied: %d. ", res.CreditsApplied)
	}

	fmt.Fprintf(&b, "Transaction amount %d, month-to-date resolved %d, lifetime resolved %d. ",
		in.TransactionAmount, in.MonthToDateTotal, in.LifetimeTotal)
	fmt.Fprintf(&b, "Fee percentage %s%% -> %s%%.",
		money.FormatPercentage(in.OrganizationFeePercentage), money.FormatPercentage(res.FeePercentage))
	return b.String()
}
