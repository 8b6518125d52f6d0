/*
earnings.go - Earnings Registry: the auditable pay-provider trail

PURPOSE:
  One accumulating record per (provider, campaign) pair. Created on the
  first payment, increased on every subsequent one, never deleted and
  never decreased - withdrawals only stamp LastWithdrawal. Together with
  the provider's TotalEarnings this answers "who earned what from whom"
  for every internal transfer ever made.

SEE ALSO:
  - coordinator.go: Appends inside the internal-transfer atomic sequence
  - query.go: Owner-gated breakdown reads
*/
package funding

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// EARNINGS REGISTRY
// =============================================================================

type EarningsRegistry struct {
	store Store
}

func NewEarningsRegistry(store Store) *EarningsRegistry {
	return &EarningsRegistry{store: store}
}

// Record accumulates a payment into the (provider, campaign) record,
// creating it on the first payment.
func (r *EarningsRegistry) Record(ctx context.Context, provider ProviderID, campaign CampaignID, amount Tokens) error {
	e, err := r.store.GetEarnings(ctx, provider, campaign)
	switch {
	case err == nil:
		e.TotalEarned += amount
	case errors.Is(err, ErrNotFound):
		e = ProviderEarnings{
			ProviderID:  provider,
			CampaignID:  campaign,
			TotalEarned: amount,
		}
	default:
		return err
	}
	return r.store.PutEarnings(ctx, e)
}

// Breakdown returns the provider's per-campaign records, ordered by
// campaign id.
func (r *EarningsRegistry) Breakdown(ctx context.Context, provider ProviderID) ([]ProviderEarnings, error) {
	return r.store.EarningsByProvider(ctx, provider)
}

// StampWithdrawal sets LastWithdrawal on all of the provider's records.
// Called only after the rail confirms a provider withdrawal.
func (r *EarningsRegistry) StampWithdrawal(ctx context.Context, provider ProviderID, at time.Time) error {
	records, err := r.store.EarningsByProvider(ctx, provider)
	if err != nil {
		return err
	}
	at = at.UTC()
	for _, e := range records {
		e.LastWithdrawal = &at
		if err := r.store.PutEarnings(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
