/*
store.go - Persistence interface for custody records

PURPOSE:
  Defines the durable key-value contract between the engine and its
  storage. The engine never holds its own copy of a record: every read
  and write goes through here, so there is exactly one canonical Campaign
  and Provider per id and no independent in-memory copies to drift.

  Records are loaded on access and snapshotted on every Put; the store is
  the load/snapshot lifecycle, not ambient global state.

ATOMICITY:
  Individual Put operations must be atomic single-step writes: no partial
  record is ever visible. Multi-record sequences (the internal transfer's
  debit + credit + earnings append) run inside WithTx, which commits all
  writes or none.

IMPLEMENTATIONS:
  - funding/store/memory.go: In-memory, for tests and dev
  - store/sqlite/: Durable SQLite (WAL)
  - store/postgres/: Durable PostgreSQL

SEE ALSO:
  - balances.go, earnings.go, journal.go: Typed layers over this interface
*/
package funding

import "context"

// =============================================================================
// STORE - Durable record persistence
// =============================================================================

// Store persists campaigns, providers, earnings records, and the transfer
// journal. Get methods return a NotFoundError for unknown ids.
type Store interface {
	GetCampaign(ctx context.Context, id CampaignID) (Campaign, error)
	PutCampaign(ctx context.Context, c Campaign) error
	DeleteCampaign(ctx context.Context, id CampaignID) error
	ListCampaigns(ctx context.Context) ([]Campaign, error)

	GetProvider(ctx context.Context, id ProviderID) (Provider, error)
	PutProvider(ctx context.Context, p Provider) error
	ListProviders(ctx context.Context) ([]Provider, error)

	// GetEarnings returns the accumulating record for (provider, campaign).
	GetEarnings(ctx context.Context, provider ProviderID, campaign CampaignID) (ProviderEarnings, error)
	PutEarnings(ctx context.Context, e ProviderEarnings) error
	// EarningsByProvider returns all of a provider's records, ordered by
	// campaign id.
	EarningsByProvider(ctx context.Context, provider ProviderID) ([]ProviderEarnings, error)

	// AppendJournal records a new transfer attempt. Append-only.
	AppendJournal(ctx context.Context, entry JournalEntry) error
	// UpdateJournal resolves a pending entry to its terminal status. The
	// only mutation ever applied to a journal entry.
	UpdateJournal(ctx context.Context, entry JournalEntry) error
	GetJournal(ctx context.Context, id string) (JournalEntry, error)
	// JournalByOwner returns the caller's transfer attempts, newest first.
	JournalByOwner(ctx context.Context, owner Identity) ([]JournalEntry, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic multi-record sequences
// =============================================================================

// TxStore wraps Store with all-or-nothing multi-write support.
// The internal transfer's three effects run inside WithTx so a storage
// failure on the last write undoes the first two.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional view of the store.
	// If fn returns an error the transaction is rolled back; otherwise
	// it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
