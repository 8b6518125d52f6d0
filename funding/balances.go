/*
balances.go - Balance Ledger: debit/credit primitives over the store

PURPOSE:
  The Balance Ledger owns the mutable budget and earnings fields. Every
  mutation is a bounds-checked read-modify-write of the single canonical
  record in the store; no caller ever mutates a Campaign or Provider
  directly. Each primitive is one atomic store write - no partial state
  is ever visible.

  Identity fields (name, owner, locations) are never touched here; they
  belong to the directory collaborator.

SEE ALSO:
  - coordinator.go: The only caller of the debit/credit primitives
  - earnings.go: The per-(provider, campaign) audit trail
*/
package funding

import "context"

// =============================================================================
// BALANCE LEDGER
// =============================================================================

type BalanceLedger struct {
	store Store
}

func NewBalanceLedger(store Store) *BalanceLedger {
	return &BalanceLedger{store: store}
}

// Campaign loads the canonical campaign record.
func (l *BalanceLedger) Campaign(ctx context.Context, id CampaignID) (Campaign, error) {
	return l.store.GetCampaign(ctx, id)
}

// Provider loads the canonical provider record.
func (l *BalanceLedger) Provider(ctx context.Context, id ProviderID) (Provider, error) {
	return l.store.GetProvider(ctx, id)
}

// DebitCampaign subtracts amount from the campaign budget.
// Fails with InsufficientFundsError if the budget would go negative.
func (l *BalanceLedger) DebitCampaign(ctx context.Context, id CampaignID, amount Tokens) error {
	c, err := l.store.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if c.Budget < amount {
		return &InsufficientFundsError{
			Resource:  "campaign " + string(id),
			Available: c.Budget,
			Requested: amount,
		}
	}
	c.Budget -= amount
	return l.store.PutCampaign(ctx, c)
}

// CreditCampaign adds amount to the campaign budget.
func (l *BalanceLedger) CreditCampaign(ctx context.Context, id CampaignID, amount Tokens) error {
	c, err := l.store.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	c.Budget += amount
	return l.store.PutCampaign(ctx, c)
}

// DebitProvider subtracts amount from the provider's accumulated earnings.
// Fails with InsufficientFundsError if earnings would go negative.
func (l *BalanceLedger) DebitProvider(ctx context.Context, id ProviderID, amount Tokens) error {
	p, err := l.store.GetProvider(ctx, id)
	if err != nil {
		return err
	}
	if p.TotalEarnings < amount {
		return &InsufficientFundsError{
			Resource:  "provider " + string(id),
			Available: p.TotalEarnings,
			Requested: amount,
		}
	}
	p.TotalEarnings -= amount
	return l.store.PutProvider(ctx, p)
}

// CreditProvider adds amount to the provider's accumulated earnings.
func (l *BalanceLedger) CreditProvider(ctx context.Context, id ProviderID, amount Tokens) error {
	p, err := l.store.GetProvider(ctx, id)
	if err != nil {
		return err
	}
	p.TotalEarnings += amount
	return l.store.PutProvider(ctx, p)
}
