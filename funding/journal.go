/*
journal.go - Transfer journal for audit and reconciliation

PURPOSE:
  Every external transfer attempt is journaled before the rail is called
  and resolved to a terminal status afterwards. The journal is what makes
  an Indeterminate outcome survivable: a stuck entry carries the request
  snapshot and the idempotency token an operator needs to check the rail's
  own record and clear the balance by hand. The engine itself never
  retries or auto-resolves a stuck entry.

LIFECYCLE:
  pending -> confirmed  (rail accepted; block index recorded)
  pending -> rejected   (rail declined; local mutation was rolled back)
  pending -> stuck      (transport failed; local state frozen as-is)

SEE ALSO:
  - coordinator.go: Opens and resolves entries
  - store.go: AppendJournal / UpdateJournal contract
*/
package funding

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// JOURNAL ENTRY
// =============================================================================

// TransferKind names the public operation that initiated a rail call.
type TransferKind string

const (
	KindFundCampaign     TransferKind = "fund_campaign"
	KindWithdrawCampaign TransferKind = "withdraw_campaign_funds"
	KindWithdrawProvider TransferKind = "withdraw_provider_earnings"
)

// JournalStatus tracks an entry through the transfer state machine.
type JournalStatus string

const (
	JournalPending   JournalStatus = "pending"
	JournalConfirmed JournalStatus = "confirmed"
	JournalRejected  JournalStatus = "rejected"
	// JournalStuck flags an unreconciled balance: the rail may or may not
	// have executed. Cleared only out-of-band.
	JournalStuck JournalStatus = "stuck"
)

// JournalEntry is one external transfer attempt.
type JournalEntry struct {
	ID         string
	Kind       TransferKind
	Owner      Identity
	CampaignID CampaignID // set for fund/withdraw campaign and pay paths
	ProviderID ProviderID // set for provider withdrawals
	Amount     Tokens
	Fee        Tokens
	Token      string // idempotency token sent to the rail
	Memo       string
	Status     JournalStatus
	BlockIndex BlockIndex // set once confirmed
	Reason     string     // rail reason or transport detail
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// =============================================================================
// JOURNAL - Typed layer over the store
// =============================================================================

type Journal struct {
	store Store
	now   func() time.Time
}

func NewJournal(store Store) *Journal {
	return &Journal{store: store, now: time.Now}
}

// Open records a pending transfer attempt and returns the entry.
func (j *Journal) Open(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	entry.ID = uuid.NewString()
	entry.Status = JournalPending
	entry.CreatedAt = j.now().UTC()
	if err := j.store.AppendJournal(ctx, entry); err != nil {
		return JournalEntry{}, &StorageError{Op: "journal append", Err: err}
	}
	return entry, nil
}

// Resolve moves a pending entry to its terminal status. A failure to
// persist the resolution is logged by the caller but never overrides the
// transfer's actual outcome.
func (j *Journal) Resolve(ctx context.Context, entry JournalEntry, status JournalStatus, block BlockIndex, reason string) error {
	entry.Status = status
	entry.BlockIndex = block
	entry.Reason = reason
	at := j.now().UTC()
	entry.ResolvedAt = &at
	return j.store.UpdateJournal(ctx, entry)
}

// ByOwner returns the caller's transfer attempts, newest first.
func (j *Journal) ByOwner(ctx context.Context, owner Identity) ([]JournalEntry, error) {
	return j.store.JournalByOwner(ctx, owner)
}
