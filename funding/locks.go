/*
locks.go - Per-entity exclusive lock table

PURPOSE:
  Every campaign or provider engaged in an in-flight external transfer is
  protected by an exclusive lock, held from dispatch until the transfer
  reaches a terminal state (Committed, RolledBack, or Stuck). A second
  request touching a locked entity is rejected immediately with a busy
  error - requests are never queued, so there is no unbounded queue and
  no lock ever outlives its transfer.

  Internal transfers are synchronous but still acquire the locks of both
  parties for the duration of their atomic sequence, so a pay_provider can
  never read or write a balance mid-optimistic-mutation.

  This is an explicit lock table keyed by entity id, not a call-stack
  reentrancy guard: the rail call suspends, and other requests interleave
  while it is in flight.

SEE ALSO:
  - coordinator.go: Acquires and releases these locks
*/
package funding

import "sync"

// =============================================================================
// LOCK TABLE
// =============================================================================

// EntityRef identifies a lockable record.
type EntityRef struct {
	Kind string // "campaign" or "provider"
	ID   string
}

func campaignRef(id CampaignID) EntityRef { return EntityRef{Kind: "campaign", ID: string(id)} }
func providerRef(id ProviderID) EntityRef { return EntityRef{Kind: "provider", ID: string(id)} }

// LockTable maps entity ids to lock state. Acquisition is all-or-nothing:
// if any requested entity is already held, nothing is taken and the caller
// gets a BusyError naming the contended entity.
type LockTable struct {
	mu   sync.Mutex
	held map[EntityRef]bool
}

func NewLockTable() *LockTable {
	return &LockTable{held: make(map[EntityRef]bool)}
}

// Acquire takes exclusive locks on all refs, or none of them.
func (t *LockTable) Acquire(refs ...EntityRef) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, ref := range refs {
		if t.held[ref] {
			return &BusyError{Kind: ref.Kind, ID: ref.ID}
		}
	}
	for _, ref := range refs {
		t.held[ref] = true
	}
	return nil
}

// Release frees the locks. Safe to call with refs that are not held.
func (t *LockTable) Release(refs ...EntityRef) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, ref := range refs {
		delete(t.held, ref)
	}
}

// Held reports whether the entity is currently locked. Read-only, for
// introspection and tests.
func (t *LockTable) Held(ref EntityRef) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.held[ref]
}
