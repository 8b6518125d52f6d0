/*
query.go - Owner-gated read-only accessors

PURPOSE:
  Reads bypass the Transfer Coordinator entirely: they never wait on an
  entity lock, so a query concurrent with an in-flight external transfer
  may observe either the pre- or post-mutation balance. What it can never
  observe is a half-applied internal transfer - those commit atomically
  through the store transaction.

SEE ALSO:
  - coordinator.go: The mutating counterpart
*/
package funding

import "context"

// =============================================================================
// QUERY SERVICE
// =============================================================================

type QueryService struct {
	store Store
}

func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store}
}

// CampaignBalance returns the campaign budget. Owner-gated.
func (q *QueryService) CampaignBalance(ctx context.Context, caller Identity, id CampaignID) (Tokens, error) {
	c, err := q.store.GetCampaign(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := RequireOwner(c.Owner, caller, "campaign "+string(id)); err != nil {
		return 0, err
	}
	return c.Budget, nil
}

// ProviderEarnings returns the provider's accumulated earnings. Owner-gated.
func (q *QueryService) ProviderEarnings(ctx context.Context, caller Identity, id ProviderID) (Tokens, error) {
	p, err := q.store.GetProvider(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := RequireOwner(p.Owner, caller, "provider "+string(id)); err != nil {
		return 0, err
	}
	return p.TotalEarnings, nil
}

// EarningsBreakdown returns the provider's per-campaign earnings records,
// ordered by campaign id. Owner-gated.
func (q *QueryService) EarningsBreakdown(ctx context.Context, caller Identity, id ProviderID) ([]ProviderEarnings, error) {
	p, err := q.store.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(p.Owner, caller, "provider "+string(id)); err != nil {
		return nil, err
	}
	return q.store.EarningsByProvider(ctx, id)
}
