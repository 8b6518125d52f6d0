package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulboard/funding-engine/api"
	"github.com/soulboard/funding-engine/directory"
	"github.com/soulboard/funding-engine/funding"
	memstore "github.com/soulboard/funding-engine/funding/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// scriptedGateway returns a fixed outcome for every transfer.
type scriptedGateway struct {
	outcome funding.TransferOutcome
}

func (g *scriptedGateway) Transfer(context.Context, funding.TransferRequest) funding.TransferOutcome {
	return g.outcome
}

type testEnv struct {
	router http.Handler
	store  *memstore.Memory
	gw     *scriptedGateway
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	store := memstore.NewMemory()
	gw := &scriptedGateway{outcome: funding.TransferOutcome{
		Status: funding.OutcomeConfirmed, BlockIndex: 1,
	}}
	coord := funding.NewCoordinator(store, gw, "engine-custody", funding.DefaultFee)
	h := api.NewHandler(coord, funding.NewQueryService(store), directory.NewService(store))
	router := api.NewRouter(h, api.RouterConfig{ChannelSecret: secret})
	return &testEnv{router: router, store: store, gw: gw}
}

// do performs a request as the given caller and decodes the JSON response.
func (e *testEnv) do(t *testing.T, method, path, caller string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set(api.CallerHeader, caller)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func (e *testEnv) seedCampaign(t *testing.T, id string, owner funding.Identity, budget funding.Tokens) {
	t.Helper()
	require.NoError(t, e.store.PutCampaign(context.Background(), funding.Campaign{
		ID: funding.CampaignID(id), Name: "Campaign " + id, Owner: owner,
		Budget: budget, Status: funding.CampaignActive, CreatedAt: time.Now().UTC(),
	}))
}

func (e *testEnv) seedProvider(t *testing.T, id string, owner funding.Identity, earnings funding.Tokens) {
	t.Helper()
	require.NoError(t, e.store.PutProvider(context.Background(), funding.Provider{
		ID: funding.ProviderID(id), Name: "Provider " + id, Owner: owner,
		TotalEarnings: earnings, CreatedAt: time.Now().UTC(),
	}))
}

// =============================================================================
// CAMPAIGN LIFECYCLE
// =============================================================================

func TestAPI_CreateFundAndReadBalance(t *testing.T) {
	env := newTestEnv(t, "")
	env.gw.outcome = funding.TransferOutcome{Status: funding.OutcomeConfirmed, BlockIndex: 42}

	var created map[string]string
	rec := env.do(t, http.MethodPost, "/api/campaigns", "alice",
		api.CreateCampaignRequest{Name: "Launch", Description: "Q3"}, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := created["id"]
	require.NotEmpty(t, id)

	// Fund with 2 tokens; the rail nets its 0.0001 token fee.
	var result api.TransferResultDTO
	rec = env.do(t, http.MethodPost, "/api/campaigns/"+id+"/fund", "alice",
		api.AmountRequest{Amount: "2"}, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), result.BlockIndex)
	assert.Equal(t, "confirmed", result.Status)

	var balance api.BalanceDTO
	rec = env.do(t, http.MethodGet, "/api/campaigns/"+id+"/balance", "alice", nil, &balance)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(2*100_000_000-10_000), balance.BalanceE8s)
	assert.Equal(t, "1.9999", balance.Balance)
}

func TestAPI_BalanceIsOwnerGated(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedCampaign(t, "c1", "alice", 100)

	var errResp api.ErrorResponse
	rec := env.do(t, http.MethodGet, "/api/campaigns/c1/balance", "bob", nil, &errResp)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unauthorized", errResp.Code)

	// Anonymous callers are rejected the same way.
	rec = env.do(t, http.MethodGet, "/api/campaigns/c1/balance", "", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_UnknownCampaignIs404(t *testing.T) {
	env := newTestEnv(t, "")
	var errResp api.ErrorResponse
	rec := env.do(t, http.MethodGet, "/api/campaigns/nope/balance", "alice", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errResp.Code)
}

func TestAPI_BadAmountIs400(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedCampaign(t, "c1", "alice", 0)

	for _, amount := range []string{"abc", "-1", "0.000000001"} {
		var errResp api.ErrorResponse
		rec := env.do(t, http.MethodPost, "/api/campaigns/c1/fund", "alice",
			api.AmountRequest{Amount: amount}, &errResp)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "amount %q", amount)
		assert.Equal(t, "bad_amount", errResp.Code)
	}
}

// =============================================================================
// WITHDRAWALS AND ERROR MAPPING
// =============================================================================

func TestAPI_WithdrawInsufficientIs422(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedCampaign(t, "c1", "alice", 100)

	var errResp api.ErrorResponse
	rec := env.do(t, http.MethodPost, "/api/campaigns/c1/withdraw", "alice",
		api.AmountRequest{Amount: "1"}, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_funds", errResp.Code)
}

func TestAPI_RailRejectionIs502(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedCampaign(t, "c1", "alice", 200_000_000)
	env.gw.outcome = funding.TransferOutcome{
		Status: funding.OutcomeRejected, Reason: "temporarily_unavailable",
	}

	var errResp api.ErrorResponse
	rec := env.do(t, http.MethodPost, "/api/campaigns/c1/withdraw", "alice",
		api.AmountRequest{Amount: "1"}, &errResp)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "transfer_rejected", errResp.Code)
}

func TestAPI_IndeterminateIs502WithReconciliationHandles(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedCampaign(t, "c1", "alice", 200_000_000)
	env.gw.outcome = funding.TransferOutcome{
		Status: funding.OutcomeIndeterminate, Reason: "transport: timeout",
	}

	var errResp api.ErrorResponse
	rec := env.do(t, http.MethodPost, "/api/campaigns/c1/withdraw", "alice",
		api.AmountRequest{Amount: "1"}, &errResp)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "transfer_indeterminate", errResp.Code)
	assert.NotEmpty(t, errResp.Token, "client needs the token to reconcile")
	assert.NotEmpty(t, errResp.Journal)

	// And the journal shows the stuck entry.
	var entries []api.JournalEntryDTO
	rec = env.do(t, http.MethodGet, "/api/transfers", "alice", nil, &entries)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, entries, 1)
	assert.Equal(t, "stuck", entries[0].Status)
	assert.Equal(t, errResp.Journal, entries[0].ID)
}

// =============================================================================
// PROVIDERS AND PAYMENT
// =============================================================================

func TestAPI_PayProviderAndBreakdown(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedCampaign(t, "c1", "alice", 500_000_000)
	env.seedProvider(t, "p1", "bob", 0)

	rec := env.do(t, http.MethodPost, "/api/campaigns/c1/pay", "alice",
		api.PayProviderRequest{ProviderID: "p1", Amount: "1.5"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var earned api.BalanceDTO
	rec = env.do(t, http.MethodGet, "/api/providers/p1/earnings", "bob", nil, &earned)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(150_000_000), earned.BalanceE8s)

	var breakdown []api.EarningsRecordDTO
	rec = env.do(t, http.MethodGet, "/api/providers/p1/earnings/breakdown", "bob", nil, &breakdown)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, breakdown, 1)
	assert.Equal(t, "c1", breakdown[0].CampaignID)
	assert.Equal(t, "1.5", breakdown[0].TotalEarned)
}

func TestAPI_ProviderListingIsPublic(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedProvider(t, "p1", "bob", 0)

	var providers []api.ProviderDTO
	rec := env.do(t, http.MethodGet, "/api/providers", "", nil, &providers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, providers, 1)
}

func TestAPI_RegisterProviderAndAddLocation(t *testing.T) {
	env := newTestEnv(t, "")

	var created map[string]string
	rec := env.do(t, http.MethodPost, "/api/providers", "bob",
		api.RegisterProviderRequest{Name: "Metro Screens"}, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := created["id"]

	rec = env.do(t, http.MethodPost, "/api/providers/"+id+"/locations", "bob",
		api.AddLocationRequest{Name: "Station North", BaseFees: "0.5"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var locations []api.LocationDTO
	rec = env.do(t, http.MethodGet, "/api/locations", "", nil, &locations)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, locations, 1)
	assert.Equal(t, uint64(50_000_000), locations[0].BaseFeesE8s)
}

// =============================================================================
// CHANNEL AUTH
// =============================================================================

func TestAPI_ChannelSecretEnforced(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	req.Header.Set(api.ChannelSecretHeader, "wrong")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	req.Header.Set(api.ChannelSecretHeader, "s3cret")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health probe stays open.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
