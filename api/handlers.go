/*
handlers.go - HTTP handlers for the funding engine

PURPOSE:
  Exposes the Transfer Coordinator, query service, and directory via REST.
  Handlers parse and validate input, resolve the caller identity, delegate
  to the domain layer, and translate its closed error taxonomy into HTTP
  statuses.

ERROR MAPPING:
  400  malformed body or amount string
  401  channel credential mismatch (middleware)
  403  caller does not own the record
  404  unknown campaign / provider
  409  entity busy with an in-flight transfer (retry later)
  422  insufficient funds
  502  rail declined (transfer_rejected) or the outcome is unknown
       (transfer_indeterminate; response carries token + journal id for
       reconciliation)
  500  storage failure

REQUEST FLOW:
  1. Parse HTTP request (amounts arrive as whole-token strings)
  2. Resolve caller identity from context
  3. Call the coordinator / query service / directory
  4. Map error kind to status, or serialize the success response

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Identity and channel auth
  - server.go: Router setup
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soulboard/funding-engine/directory"
	"github.com/soulboard/funding-engine/funding"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Coordinator *funding.Coordinator
	Queries     *funding.QueryService
	Directory   *directory.Service
}

// NewHandler wires a handler over the domain services.
func NewHandler(coord *funding.Coordinator, queries *funding.QueryService, dir *directory.Service) *Handler {
	return &Handler{Coordinator: coord, Queries: queries, Directory: dir}
}

// =============================================================================
// CAMPAIGN HANDLERS
// =============================================================================

// CreateCampaign creates a campaign with a zero budget.
// POST /api/campaigns
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "bad_request")
		return
	}

	id, err := h.Directory.CreateCampaign(r.Context(), callerFrom(r), req.Name, req.Description, req.Image)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(id)})
}

// ListCampaigns returns the caller's campaigns.
// GET /api/campaigns
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Directory.ListCampaignsByOwner(r.Context(), callerFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CampaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		dtos = append(dtos, toCampaignDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CloseCampaign removes the caller's campaign record.
// DELETE /api/campaigns/{id}
func (h *Handler) CloseCampaign(w http.ResponseWriter, r *http.Request) {
	id := funding.CampaignID(chi.URLParam(r, "id"))
	if err := h.Directory.CloseCampaign(r.Context(), callerFrom(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// GetCampaignBalance returns the campaign budget. Owner-gated.
// GET /api/campaigns/{id}/balance
func (h *Handler) GetCampaignBalance(w http.ResponseWriter, r *http.Request) {
	id := funding.CampaignID(chi.URLParam(r, "id"))
	balance, err := h.Queries.CampaignBalance(r.Context(), callerFrom(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		ID:         string(id),
		BalanceE8s: uint64(balance),
		Balance:    balance.Decimal().String(),
	})
}

// FundCampaign moves tokens from the caller's wallet into the campaign budget.
// POST /api/campaigns/{id}/fund
func (h *Handler) FundCampaign(w http.ResponseWriter, r *http.Request) {
	id := funding.CampaignID(chi.URLParam(r, "id"))
	amount, ok := parseAmountBody(w, r)
	if !ok {
		return
	}

	block, err := h.Coordinator.FundCampaign(r.Context(), callerFrom(r), id, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransferResultDTO{
		Status:     "confirmed",
		BlockIndex: uint64(block),
		AmountE8s:  uint64(amount),
		Amount:     amount.Decimal().String(),
	})
}

// WithdrawCampaignFunds pays campaign budget back out to the owner's wallet.
// POST /api/campaigns/{id}/withdraw
func (h *Handler) WithdrawCampaignFunds(w http.ResponseWriter, r *http.Request) {
	id := funding.CampaignID(chi.URLParam(r, "id"))
	amount, ok := parseAmountBody(w, r)
	if !ok {
		return
	}

	block, err := h.Coordinator.WithdrawCampaignFunds(r.Context(), callerFrom(r), id, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransferResultDTO{
		Status:     "confirmed",
		BlockIndex: uint64(block),
		AmountE8s:  uint64(amount),
		Amount:     amount.Decimal().String(),
	})
}

// PayProvider moves campaign budget to a provider's earnings. Internal
// transfer: atomic, never touches the rail.
// POST /api/campaigns/{id}/pay
func (h *Handler) PayProvider(w http.ResponseWriter, r *http.Request) {
	id := funding.CampaignID(chi.URLParam(r, "id"))

	var req PayProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	amount, err := funding.ParseTokens(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error(), "bad_amount")
		return
	}

	err = h.Coordinator.PayProvider(r.Context(), callerFrom(r), id, funding.ProviderID(req.ProviderID), amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

// =============================================================================
// PROVIDER HANDLERS
// =============================================================================

// RegisterProvider registers a provider owned by the caller.
// POST /api/providers
func (h *Handler) RegisterProvider(w http.ResponseWriter, r *http.Request) {
	var req RegisterProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", "bad_request")
		return
	}

	locations := make([]funding.Location, 0, len(req.Locations))
	for _, l := range req.Locations {
		fees, err := funding.ParseTokens(l.BaseFees)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid base_fees: "+err.Error(), "bad_amount")
			return
		}
		locations = append(locations, funding.Location{
			Name:     l.Name,
			Image:    l.Image,
			BaseFees: fees,
		})
	}

	id, err := h.Directory.RegisterProvider(r.Context(), callerFrom(r), req.Name, locations)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(id)})
}

// ListProviders returns every provider. Public marketplace data.
// GET /api/providers
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.Directory.ListProviders(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ProviderDTO, 0, len(providers))
	for _, p := range providers {
		dtos = append(dtos, toProviderDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListOwnProviders returns the caller's providers.
// GET /api/providers/mine
func (h *Handler) ListOwnProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.Directory.ListProvidersByOwner(r.Context(), callerFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ProviderDTO, 0, len(providers))
	for _, p := range providers {
		dtos = append(dtos, toProviderDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddLocation attaches a location to the caller's provider.
// POST /api/providers/{id}/locations
func (h *Handler) AddLocation(w http.ResponseWriter, r *http.Request) {
	id := funding.ProviderID(chi.URLParam(r, "id"))

	var req AddLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	fees, err := funding.ParseTokens(req.BaseFees)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base_fees: "+err.Error(), "bad_amount")
		return
	}

	err = h.Directory.AddLocation(r.Context(), callerFrom(r), id, funding.Location{
		Name:     req.Name,
		Image:    req.Image,
		BaseFees: fees,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// ListLocations returns every location across all providers.
// GET /api/locations
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Directory.ListLocations(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]LocationDTO, 0, len(locations))
	for _, l := range locations {
		dtos = append(dtos, toLocationDTO(l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProviderEarnings returns the provider's accumulated earnings. Owner-gated.
// GET /api/providers/{id}/earnings
func (h *Handler) GetProviderEarnings(w http.ResponseWriter, r *http.Request) {
	id := funding.ProviderID(chi.URLParam(r, "id"))
	earnings, err := h.Queries.ProviderEarnings(r.Context(), callerFrom(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		ID:         string(id),
		BalanceE8s: uint64(earnings),
		Balance:    earnings.Decimal().String(),
	})
}

// GetEarningsBreakdown returns per-campaign earnings records. Owner-gated.
// GET /api/providers/{id}/earnings/breakdown
func (h *Handler) GetEarningsBreakdown(w http.ResponseWriter, r *http.Request) {
	id := funding.ProviderID(chi.URLParam(r, "id"))
	records, err := h.Queries.EarningsBreakdown(r.Context(), callerFrom(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]EarningsRecordDTO, 0, len(records))
	for _, e := range records {
		dtos = append(dtos, toEarningsDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// WithdrawProviderEarnings pays provider earnings out to the owner's wallet.
// POST /api/providers/{id}/withdraw
func (h *Handler) WithdrawProviderEarnings(w http.ResponseWriter, r *http.Request) {
	id := funding.ProviderID(chi.URLParam(r, "id"))
	amount, ok := parseAmountBody(w, r)
	if !ok {
		return
	}

	block, err := h.Coordinator.WithdrawProviderEarnings(r.Context(), callerFrom(r), id, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransferResultDTO{
		Status:     "confirmed",
		BlockIndex: uint64(block),
		AmountE8s:  uint64(amount),
		Amount:     amount.Decimal().String(),
	})
}

// =============================================================================
// TRANSFER JOURNAL
// =============================================================================

// ListTransfers returns the caller's transfer attempts, newest first.
// GET /api/transfers
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Coordinator.Journal().ByOwner(r.Context(), callerFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]JournalEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toJournalDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseAmountBody(w http.ResponseWriter, r *http.Request) (funding.Tokens, bool) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return 0, false
	}
	amount, err := funding.ParseTokens(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error(), "bad_amount")
		return 0, false
	}
	return amount, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeDomainError maps the funding error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var indet *funding.IndeterminateError
	if errors.As(err, &indet) {
		// 502 with the reconciliation handles: the client must verify the
		// token against the rail before retrying.
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   indet.Error(),
			Code:    "transfer_indeterminate",
			Token:   indet.Token,
			Journal: indet.Journal,
		})
		return
	}

	switch {
	case errors.Is(err, funding.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error(), "unauthorized")
	case errors.Is(err, funding.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, funding.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "insufficient_funds")
	case errors.Is(err, funding.ErrEntityBusy):
		writeError(w, http.StatusConflict, err.Error(), "entity_busy")
	case errors.Is(err, funding.ErrTransferRejected):
		writeError(w, http.StatusBadGateway, err.Error(), "transfer_rejected")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "internal")
	}
}
