/*
Package funding is the custody and transfer-coordination core.

PURPOSE:
  This package owns the hard part of the platform: keeping the internal
  ledger of campaign budgets and provider earnings consistent with an
  external payment rail that is asynchronous, irrevocable, and can fail
  without telling us whether it executed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Tokens: an amount in e8s, the smallest indivisible unit of the currency
  - Identity: a verified caller identity (opaque principal text)
  - Account: an external rail address (owner identity + optional subaccount)
  - TransferRequest / TransferOutcome: the rail gateway contract
  - Campaign / Provider / ProviderEarnings: the custody records

DESIGN PRINCIPLES:
  1. Integral amounts: the rail speaks in whole e8s; decimals exist only at
     the display boundary (Tokens.Decimal, ParseTokens)
  2. Single canonical copy: records live in the Store, never duplicated in
     coordinator state
  3. Three-valued rail outcomes: Confirmed, Rejected, and Indeterminate are
     distinct and never collapsed into one another

SEE ALSO:
  - coordinator.go: The transfer state machine consuming these types
  - store.go: Persistence interface for the records
  - errors.go: The closed error taxonomy
*/
package funding

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TOKENS - Amounts in the smallest indivisible unit (e8s)
// =============================================================================

// Tokens is an amount of currency in e8s. 1 whole token = 100_000_000 e8s.
// All arithmetic on balances is integral; there is no fractional e8s.
type Tokens uint64

// E8sPerToken is the number of e8s in one whole token.
const E8sPerToken = 100_000_000

// DefaultFee is the rail's fixed transfer fee (0.0001 tokens).
// The rail nets it out of the moved amount; it is never added on top.
const DefaultFee Tokens = 10_000

// Decimal returns the amount in whole tokens as an exact decimal.
func (t Tokens) Decimal() decimal.Decimal {
	return decimal.New(int64(t), 0).Shift(-8)
}

// ParseTokens converts a whole-token decimal string (e.g. "1.5") into e8s.
// Negative values and precision below one e8s are rejected.
func ParseTokens(s string) (Tokens, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	e8s := d.Shift(8)
	if !e8s.Equal(e8s.Truncate(0)) {
		return 0, ErrSubUnitPrecision
	}
	return Tokens(e8s.IntPart()), nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// Identity is a verified caller identity. Token issuance and verification
// happen upstream; by the time an Identity reaches this package it is trusted.
type Identity string

type CampaignID string
type ProviderID string

// BlockIndex is the rail's receipt for a confirmed transfer. Opaque and
// monotonically increasing; used only for later verification.
type BlockIndex uint64

// =============================================================================
// RAIL BOUNDARY - Accounts, requests, outcomes
// =============================================================================

// Account addresses a wallet on the external rail.
type Account struct {
	Owner      Identity
	Subaccount []byte // optional; nil means the default subaccount
}

// TransferRequest describes one rail transfer. Ephemeral: it is not
// persisted beyond the journal snapshot of the pending call.
type TransferRequest struct {
	From   Account
	To     Account
	Amount Tokens
	Fee    Tokens
	Memo   []byte // opaque audit blob, meaningless to the rail
	Token  string // idempotency / creation-time token
}

// OutcomeStatus classifies how a rail call resolved.
type OutcomeStatus string

const (
	// OutcomeConfirmed: the rail accepted and recorded the transfer.
	OutcomeConfirmed OutcomeStatus = "confirmed"
	// OutcomeRejected: the rail explicitly declined. Nothing moved.
	OutcomeRejected OutcomeStatus = "rejected"
	// OutcomeIndeterminate: the call's transport failed or timed out.
	// The rail's true state is unknown. Never treat this as Rejected.
	OutcomeIndeterminate OutcomeStatus = "indeterminate"
)

// TransferOutcome is the gateway's classification of a rail call.
// Every failure mode maps to exactly one status.
type TransferOutcome struct {
	Status     OutcomeStatus
	BlockIndex BlockIndex // valid only when Status == OutcomeConfirmed
	Reason     string     // rail reason (Rejected) or transport detail (Indeterminate)
}

// Gateway is the typed adapter over the external rail's transfer operation.
// No business logic: pure request/response translation and error
// classification. Implementations must never return Indeterminate as
// Rejected or vice versa.
type Gateway interface {
	Transfer(ctx context.Context, req TransferRequest) TransferOutcome
}

// =============================================================================
// CUSTODY RECORDS
// =============================================================================

type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignPaused CampaignStatus = "paused"
)

// Campaign holds an advertiser's budget in custody.
// Invariant: Budget >= 0 at all times (enforced by Tokens being unsigned
// plus debit bounds checks). Budget is mutated only by the Coordinator;
// identity fields only by the directory collaborator.
type Campaign struct {
	ID          CampaignID
	Name        string
	Description string
	Image       string
	Owner       Identity
	Budget      Tokens
	Status      CampaignStatus
	CreatedAt   time.Time
}

type LocationStatus string

const (
	LocationActive   LocationStatus = "active"
	LocationInactive LocationStatus = "inactive"
	LocationBooked   LocationStatus = "booked"
)

// Location is a bookable display slot owned by a provider.
type Location struct {
	ID       string
	Name     string
	Image    string
	BaseFees Tokens
	Views    uint64
	Status   LocationStatus
}

// Provider accumulates earnings paid out of campaign budgets.
// Invariant: TotalEarnings >= 0 at all times.
type Provider struct {
	ID            ProviderID
	Name          string
	Owner         Identity
	Locations     []Location
	TotalEarnings Tokens
	CreatedAt     time.Time
}

// ProviderEarnings is one accumulating audit record per (provider, campaign)
// pair. Created on the first payment, increased on every subsequent one,
// never deleted. LastWithdrawal is stamped when the provider withdraws.
type ProviderEarnings struct {
	ProviderID     ProviderID
	CampaignID     CampaignID
	TotalEarned    Tokens
	LastWithdrawal *time.Time
}
