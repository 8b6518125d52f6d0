/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

AMOUNT CONVENTION:
  Requests carry amounts as whole-token decimal strings ("1.5"); they are
  parsed into e8s at this boundary via funding.ParseTokens. Responses carry
  both forms: "amount_e8s" for machines and "amount" for display.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - funding/types.go: The domain model these project
*/
package api

import (
	"time"

	"github.com/soulboard/funding-engine/funding"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateCampaignRequest creates a campaign with a zero budget.
type CreateCampaignRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}

// RegisterProviderRequest registers a provider, optionally with locations.
type RegisterProviderRequest struct {
	Name      string        `json:"name"`
	Locations []LocationDTO `json:"locations,omitempty"`
}

// AddLocationRequest attaches one location to a provider.
type AddLocationRequest struct {
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	BaseFees string `json:"base_fees"` // whole tokens, e.g. "0.5"
}

// AmountRequest carries the amount for fund/withdraw operations.
type AmountRequest struct {
	Amount string `json:"amount"` // whole tokens, e.g. "1.5"
}

// PayProviderRequest moves budget to a provider's earnings.
type PayProviderRequest struct {
	ProviderID string `json:"provider_id"`
	Amount     string `json:"amount"` // whole tokens
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CampaignDTO represents a campaign in API responses.
type CampaignDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Owner       string `json:"owner"`
	BudgetE8s   uint64 `json:"budget_e8s"`
	Budget      string `json:"budget"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// LocationDTO represents a bookable display slot.
type LocationDTO struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	BaseFeesE8s uint64 `json:"base_fees_e8s"`
	BaseFees    string `json:"base_fees"`
	Views       uint64 `json:"views"`
	Status      string `json:"status,omitempty"`
}

// ProviderDTO represents a provider in API responses.
type ProviderDTO struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Owner            string        `json:"owner"`
	Locations        []LocationDTO `json:"locations"`
	TotalEarningsE8s uint64        `json:"total_earnings_e8s"`
	TotalEarnings    string        `json:"total_earnings"`
	CreatedAt        string        `json:"created_at"`
}

// BalanceDTO reports a single custody balance.
type BalanceDTO struct {
	ID         string `json:"id"`
	BalanceE8s uint64 `json:"balance_e8s"`
	Balance    string `json:"balance"`
}

// EarningsRecordDTO is one per-campaign earnings line.
type EarningsRecordDTO struct {
	CampaignID     string  `json:"campaign_id"`
	TotalEarnedE8s uint64  `json:"total_earned_e8s"`
	TotalEarned    string  `json:"total_earned"`
	LastWithdrawal *string `json:"last_withdrawal,omitempty"`
}

// TransferResultDTO is the success response for rail-touching operations.
type TransferResultDTO struct {
	Status     string `json:"status"`
	BlockIndex uint64 `json:"block_index"`
	AmountE8s  uint64 `json:"amount_e8s"`
	Amount     string `json:"amount"`
}

// JournalEntryDTO is one external transfer attempt.
type JournalEntryDTO struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	CampaignID string  `json:"campaign_id,omitempty"`
	ProviderID string  `json:"provider_id,omitempty"`
	AmountE8s  uint64  `json:"amount_e8s"`
	Amount     string  `json:"amount"`
	FeeE8s     uint64  `json:"fee_e8s"`
	Token      string  `json:"token"`
	Memo       string  `json:"memo,omitempty"`
	Status     string  `json:"status"`
	BlockIndex uint64  `json:"block_index,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	CreatedAt  string  `json:"created_at"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	// Reconciliation fields, set only for indeterminate outcomes.
	Token   string `json:"token,omitempty"`
	Journal string `json:"journal,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCampaignDTO(c funding.Campaign) CampaignDTO {
	return CampaignDTO{
		ID:          string(c.ID),
		Name:        c.Name,
		Description: c.Description,
		Image:       c.Image,
		Owner:       string(c.Owner),
		BudgetE8s:   uint64(c.Budget),
		Budget:      c.Budget.Decimal().String(),
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}

func toLocationDTO(l funding.Location) LocationDTO {
	return LocationDTO{
		ID:          l.ID,
		Name:        l.Name,
		Image:       l.Image,
		BaseFeesE8s: uint64(l.BaseFees),
		BaseFees:    l.BaseFees.Decimal().String(),
		Views:       l.Views,
		Status:      string(l.Status),
	}
}

func toProviderDTO(p funding.Provider) ProviderDTO {
	locations := make([]LocationDTO, 0, len(p.Locations))
	for _, l := range p.Locations {
		locations = append(locations, toLocationDTO(l))
	}
	return ProviderDTO{
		ID:               string(p.ID),
		Name:             p.Name,
		Owner:            string(p.Owner),
		Locations:        locations,
		TotalEarningsE8s: uint64(p.TotalEarnings),
		TotalEarnings:    p.TotalEarnings.Decimal().String(),
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
}

func toEarningsDTO(e funding.ProviderEarnings) EarningsRecordDTO {
	dto := EarningsRecordDTO{
		CampaignID:     string(e.CampaignID),
		TotalEarnedE8s: uint64(e.TotalEarned),
		TotalEarned:    e.TotalEarned.Decimal().String(),
	}
	if e.LastWithdrawal != nil {
		s := e.LastWithdrawal.Format(time.RFC3339)
		dto.LastWithdrawal = &s
	}
	return dto
}

func toJournalDTO(e funding.JournalEntry) JournalEntryDTO {
	dto := JournalEntryDTO{
		ID:         e.ID,
		Kind:       string(e.Kind),
		CampaignID: string(e.CampaignID),
		ProviderID: string(e.ProviderID),
		AmountE8s:  uint64(e.Amount),
		Amount:     e.Amount.Decimal().String(),
		FeeE8s:     uint64(e.Fee),
		Token:      e.Token,
		Memo:       e.Memo,
		Status:     string(e.Status),
		BlockIndex: uint64(e.BlockIndex),
		Reason:     e.Reason,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
	if e.ResolvedAt != nil {
		s := e.ResolvedAt.Format(time.RFC3339)
		dto.ResolvedAt = &s
	}
	return dto
}
