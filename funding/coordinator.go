/*
coordinator.go - Transfer Coordinator: the orchestrator

PURPOSE:
  Sequences every value movement. External transfers walk the state
  machine

    Idle -> Locked -> OptimisticMutationApplied -> AwaitingRail
         -> {Committed | RolledBack | Stuck}

  with the direction-appropriate optimistic mutation:
    - Outgoing (withdrawals): debit locally BEFORE the rail call. A
      Rejected outcome reverts the debit; Confirmed keeps it. Crediting
      only after success would let a concurrent request re-withdraw funds
      that are already in flight - the per-entity lock plus pre-debit
      closes that window.
    - Incoming (funding): credit locally only AFTER the rail confirms.
      The rail is irrevocable; crediting speculatively would be wrong for
      an Indeterminate outcome, and the system must never assume money
      did not move.

  Indeterminate outcomes are terminal: the debit (if any) stays, the lock
  is released, a stuck journal entry is written, and the caller is told to
  verify against the rail before retrying. No automatic retry, ever - an
  automatic retry of an indeterminate outgoing transfer risks a double
  spend.

  Internal transfers (pay_provider) never touch the rail: ownership and
  budget checks, then campaign debit + provider credit + earnings append
  as one atomic store transaction.

FEE CONVENTION:
  The rail nets its fixed fee out of the moved amount. Funding credits
  amount - fee (what actually arrived in custody); withdrawals debit the
  full amount (what left custody - the receiver lands amount - fee).

SEE ALSO:
  - locks.go: The per-entity lock table
  - journal.go: Pending/terminal journaling around every rail call
  - balances.go: The debit/credit primitives
*/
package funding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// COORDINATOR
// =============================================================================

type Coordinator struct {
	store    TxStore
	gateway  Gateway
	locks    *LockTable
	journal  *Journal
	balances *BalanceLedger
	earnings *EarningsRegistry
	custody  Identity // the engine's custodial rail account
	fee      Tokens

	newToken func() string
}

// NewCoordinator wires a coordinator over the given store and rail gateway.
// custody is the identity of the engine's own rail account; fee is the
// rail's fixed transfer fee in e8s.
func NewCoordinator(store TxStore, gateway Gateway, custody Identity, fee Tokens) *Coordinator {
	return &Coordinator{
		store:    store,
		gateway:  gateway,
		locks:    NewLockTable(),
		journal:  NewJournal(store),
		balances: NewBalanceLedger(store),
		earnings: NewEarningsRegistry(store),
		custody:  custody,
		fee:      fee,
		newToken: uuid.NewString,
	}
}

// Locks exposes the lock table for introspection and tests.
func (c *Coordinator) Locks() *LockTable { return c.locks }

// Journal exposes the journal layer for owner-scoped listings.
func (c *Coordinator) Journal() *Journal { return c.journal }

func (c *Coordinator) custodyAccount() Account { return Account{Owner: c.custody} }

// =============================================================================
// EXTERNAL TRANSFERS
// =============================================================================

// FundCampaign moves amount from the owner's wallet into custody and, once
// the rail confirms, credits the campaign budget with amount - fee.
// The budget is never credited speculatively: anything other than a
// Confirmed outcome leaves it untouched.
func (c *Coordinator) FundCampaign(ctx context.Context, caller Identity, id CampaignID, amount Tokens) (BlockIndex, error) {
	campaign, err := c.balances.Campaign(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := RequireOwner(campaign.Owner, caller, "campaign "+string(id)); err != nil {
		return 0, err
	}

	ref := campaignRef(id)
	if err := c.locks.Acquire(ref); err != nil {
		return 0, err
	}
	defer c.locks.Release(ref)

	entry, err := c.journal.Open(ctx, JournalEntry{
		Kind:       KindFundCampaign,
		Owner:      caller,
		CampaignID: id,
		Amount:     amount,
		Fee:        c.fee,
		Token:      c.newToken(),
		Memo:       fmt.Sprintf("Fund campaign: %s", id),
	})
	if err != nil {
		return 0, err
	}

	outcome := c.gateway.Transfer(ctx, TransferRequest{
		From:   Account{Owner: caller},
		To:     c.custodyAccount(),
		Amount: amount,
		Fee:    c.fee,
		Memo:   []byte(entry.Memo),
		Token:  entry.Token,
	})

	switch outcome.Status {
	case OutcomeConfirmed:
		credited := Tokens(0)
		if amount > c.fee {
			credited = amount - c.fee
		}
		if err := c.balances.CreditCampaign(ctx, id, credited); err != nil {
			// Money arrived but the credit did not persist. Freeze the
			// entry as stuck so reconciliation can re-apply the credit.
			_ = c.journal.Resolve(ctx, entry, JournalStuck, outcome.BlockIndex,
				fmt.Sprintf("confirmed at block %d but credit failed: %v", outcome.BlockIndex, err))
			return 0, &StorageError{Op: "funding credit", Err: err}
		}
		_ = c.journal.Resolve(ctx, entry, JournalConfirmed, outcome.BlockIndex, "")
		return outcome.BlockIndex, nil

	case OutcomeRejected:
		// No mutation occurred for incoming transfers; nothing to revert.
		_ = c.journal.Resolve(ctx, entry, JournalRejected, 0, outcome.Reason)
		return 0, &RejectedError{Reason: outcome.Reason}

	default:
		_ = c.journal.Resolve(ctx, entry, JournalStuck, 0, outcome.Reason)
		return 0, &IndeterminateError{Reason: outcome.Reason, Token: entry.Token, Journal: entry.ID}
	}
}

// WithdrawCampaignFunds debits the campaign budget, then asks the rail to
// move amount from custody to the owner's wallet. A Rejected outcome
// restores the budget; an Indeterminate one keeps the debit in place.
func (c *Coordinator) WithdrawCampaignFunds(ctx context.Context, caller Identity, id CampaignID, amount Tokens) (BlockIndex, error) {
	campaign, err := c.balances.Campaign(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := RequireOwner(campaign.Owner, caller, "campaign "+string(id)); err != nil {
		return 0, err
	}
	if campaign.Budget < amount {
		return 0, &InsufficientFundsError{
			Resource:  "campaign " + string(id),
			Available: campaign.Budget,
			Requested: amount,
		}
	}

	ref := campaignRef(id)
	if err := c.locks.Acquire(ref); err != nil {
		return 0, err
	}
	defer c.locks.Release(ref)

	debit := func(ctx context.Context) error { return c.balances.DebitCampaign(ctx, id, amount) }
	credit := func(ctx context.Context) error { return c.balances.CreditCampaign(ctx, id, amount) }

	return c.withdraw(ctx, JournalEntry{
		Kind:       KindWithdrawCampaign,
		Owner:      caller,
		CampaignID: id,
		Amount:     amount,
		Fee:        c.fee,
		Memo:       fmt.Sprintf("Campaign withdrawal: %s", id),
	}, debit, credit, nil)
}

// WithdrawProviderEarnings debits the provider's accumulated earnings, then
// asks the rail to pay them out to the owner's wallet. On confirmation the
// provider's earnings records are stamped with the withdrawal time.
func (c *Coordinator) WithdrawProviderEarnings(ctx context.Context, caller Identity, id ProviderID, amount Tokens) (BlockIndex, error) {
	provider, err := c.balances.Provider(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := RequireOwner(provider.Owner, caller, "provider "+string(id)); err != nil {
		return 0, err
	}
	if provider.TotalEarnings < amount {
		return 0, &InsufficientFundsError{
			Resource:  "provider " + string(id),
			Available: provider.TotalEarnings,
			Requested: amount,
		}
	}

	ref := providerRef(id)
	if err := c.locks.Acquire(ref); err != nil {
		return 0, err
	}
	defer c.locks.Release(ref)

	debit := func(ctx context.Context) error { return c.balances.DebitProvider(ctx, id, amount) }
	credit := func(ctx context.Context) error { return c.balances.CreditProvider(ctx, id, amount) }
	onConfirm := func(ctx context.Context, entry *JournalEntry) {
		if err := c.earnings.StampWithdrawal(ctx, id, c.journal.now()); err != nil {
			// The payout itself succeeded; record the stamping failure on
			// the journal entry rather than failing the withdrawal.
			entry.Reason = fmt.Sprintf("withdrawal stamp failed: %v", err)
		}
	}

	return c.withdraw(ctx, JournalEntry{
		Kind:       KindWithdrawProvider,
		Owner:      caller,
		ProviderID: id,
		Amount:     amount,
		Fee:        c.fee,
		Memo:       fmt.Sprintf("Provider withdrawal: %s", id),
	}, debit, credit, onConfirm)
}

// withdraw runs the shared outgoing-transfer protocol: pre-debit, journal,
// rail call, then commit / rollback / freeze per the outcome. The entity
// lock is already held by the caller.
func (c *Coordinator) withdraw(
	ctx context.Context,
	entry JournalEntry,
	debit func(context.Context) error,
	credit func(context.Context) error,
	onConfirm func(context.Context, *JournalEntry),
) (BlockIndex, error) {
	// Optimistic mutation: debit before dispatch. The primitive re-checks
	// bounds under the lock, so a raced balance change still cannot drive
	// it negative.
	if err := debit(ctx); err != nil {
		return 0, err
	}

	entry.Token = c.newToken()
	opened, err := c.journal.Open(ctx, entry)
	if err != nil {
		// Nothing was dispatched; undo the debit and fail cleanly.
		if rbErr := credit(ctx); rbErr != nil {
			return 0, &StorageError{Op: "rollback after journal failure", Err: rbErr}
		}
		return 0, err
	}

	outcome := c.gateway.Transfer(ctx, TransferRequest{
		From:   c.custodyAccount(),
		To:     Account{Owner: entry.Owner},
		Amount: entry.Amount,
		Fee:    c.fee,
		Memo:   []byte(entry.Memo),
		Token:  opened.Token,
	})

	switch outcome.Status {
	case OutcomeConfirmed:
		if onConfirm != nil {
			onConfirm(ctx, &opened)
		}
		_ = c.journal.Resolve(ctx, opened, JournalConfirmed, outcome.BlockIndex, opened.Reason)
		return outcome.BlockIndex, nil

	case OutcomeRejected:
		// The rail explicitly declined: nothing moved, revert the debit.
		if rbErr := credit(ctx); rbErr != nil {
			_ = c.journal.Resolve(ctx, opened, JournalStuck, 0,
				fmt.Sprintf("rejected (%s) but rollback failed: %v", outcome.Reason, rbErr))
			return 0, &StorageError{Op: "rejection rollback", Err: rbErr}
		}
		_ = c.journal.Resolve(ctx, opened, JournalRejected, 0, outcome.Reason)
		return 0, &RejectedError{Reason: outcome.Reason}

	default:
		// Unknown rail state: the money may genuinely have left. Keep the
		// debit, freeze the entry, and require out-of-band verification.
		_ = c.journal.Resolve(ctx, opened, JournalStuck, 0, outcome.Reason)
		return 0, &IndeterminateError{Reason: outcome.Reason, Token: opened.Token, Journal: opened.ID}
	}
}

// =============================================================================
// INTERNAL TRANSFER
// =============================================================================

// PayProvider moves amount from a campaign budget to a provider's earnings
// without touching the rail. The campaign debit, provider credit, and
// earnings-registry append are one atomic unit: a storage failure on any
// step rolls back all of them. Both entities must be free of in-flight
// external transfers.
func (c *Coordinator) PayProvider(ctx context.Context, caller Identity, campaignID CampaignID, providerID ProviderID, amount Tokens) error {
	campaign, err := c.balances.Campaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := RequireOwner(campaign.Owner, caller, "campaign "+string(campaignID)); err != nil {
		return err
	}
	if _, err := c.balances.Provider(ctx, providerID); err != nil {
		return err
	}
	if campaign.Budget < amount {
		return &InsufficientFundsError{
			Resource:  "campaign " + string(campaignID),
			Available: campaign.Budget,
			Requested: amount,
		}
	}

	refs := []EntityRef{campaignRef(campaignID), providerRef(providerID)}
	if err := c.locks.Acquire(refs...); err != nil {
		return err
	}
	defer c.locks.Release(refs...)

	err = c.store.WithTx(ctx, func(s Store) error {
		ledger := NewBalanceLedger(s)
		if err := ledger.DebitCampaign(ctx, campaignID, amount); err != nil {
			return err
		}
		if err := ledger.CreditProvider(ctx, providerID, amount); err != nil {
			return err
		}
		return NewEarningsRegistry(s).Record(ctx, providerID, campaignID, amount)
	})
	if err != nil {
		if IsClientError(err) {
			return err
		}
		return &StorageError{Op: "internal transfer", Err: err}
	}
	return nil
}
