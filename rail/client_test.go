package rail_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulboard/funding-engine/funding"
	"github.com/soulboard/funding-engine/rail"
)

func testRequest() funding.TransferRequest {
	return funding.TransferRequest{
		From:   funding.Account{Owner: "alice"},
		To:     funding.Account{Owner: "engine-custody"},
		Amount: 1_000_000,
		Fee:    10_000,
		Memo:   []byte("Fund campaign: c1"),
		Token:  "token-123",
	}
}

func TestClient_Confirmed(t *testing.T) {
	// GIVEN: A rail that accepts the transfer
	// WHEN: The client dispatches
	// THEN: The outcome is Confirmed with the rail's block index

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transfer", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"block_index": 42})
	}))
	defer srv.Close()

	c := rail.NewClient(srv.URL, 0)
	out := c.Transfer(context.Background(), testRequest())

	assert.Equal(t, funding.OutcomeConfirmed, out.Status)
	assert.Equal(t, funding.BlockIndex(42), out.BlockIndex)

	// Wire format checks
	assert.Equal(t, "alice", got["from"].(map[string]any)["owner"])
	assert.Equal(t, "engine-custody", got["to"].(map[string]any)["owner"])
	assert.Equal(t, float64(1_000_000), got["amount"])
	assert.Equal(t, float64(10_000), got["fee"])
	assert.Equal(t, "token-123", got["created_at_time"])
	memo, err := base64.StdEncoding.DecodeString(got["memo"].(string))
	require.NoError(t, err)
	assert.Equal(t, "Fund campaign: c1", string(memo))
}

func TestClient_RejectedCodes(t *testing.T) {
	// Every decodable error envelope is a Rejected outcome: the rail
	// answered, so its state is known.

	codes := []string{
		"insufficient_funds", "bad_fee", "too_old",
		"created_in_future", "temporarily_unavailable", "generic",
	}
	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": code, "message": "nope"},
				})
			}))
			defer srv.Close()

			out := rail.NewClient(srv.URL, 0).Transfer(context.Background(), testRequest())

			assert.Equal(t, funding.OutcomeRejected, out.Status)
			assert.Contains(t, out.Reason, code)
		})
	}
}

func TestClient_Duplicate_CarriesOriginalBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "duplicate", "message": "already applied", "duplicate_of": 17},
		})
	}))
	defer srv.Close()

	out := rail.NewClient(srv.URL, 0).Transfer(context.Background(), testRequest())

	assert.Equal(t, funding.OutcomeRejected, out.Status)
	assert.Contains(t, out.Reason, "duplicate")
	assert.Contains(t, out.Reason, "block 17")
}

func TestClient_Timeout_IsIndeterminate(t *testing.T) {
	// GIVEN: A rail that never answers within the timeout
	// WHEN: The call times out
	// THEN: The outcome is Indeterminate, never Rejected

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"block_index": 1})
	}))
	defer srv.Close()

	out := rail.NewClient(srv.URL, 20*time.Millisecond).Transfer(context.Background(), testRequest())

	assert.Equal(t, funding.OutcomeIndeterminate, out.Status)
	assert.Contains(t, out.Reason, "transport")
}

func TestClient_ConnectionRefused_IsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	out := rail.NewClient(srv.URL, time.Second).Transfer(context.Background(), testRequest())

	assert.Equal(t, funding.OutcomeIndeterminate, out.Status)
}

func TestClient_UndecodableBody_IsIndeterminate(t *testing.T) {
	// A 500 with an HTML error page says nothing about whether the transfer
	// executed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>gateway exploded</html>"))
	}))
	defer srv.Close()

	out := rail.NewClient(srv.URL, 0).Transfer(context.Background(), testRequest())

	assert.Equal(t, funding.OutcomeIndeterminate, out.Status)
	assert.Contains(t, out.Reason, "undecodable")
}

func TestClient_EmptyEnvelope_IsIndeterminate(t *testing.T) {
	// Decodable JSON that carries neither a block index nor an error is
	// still an unknown state.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	out := rail.NewClient(srv.URL, 0).Transfer(context.Background(), testRequest())

	assert.Equal(t, funding.OutcomeIndeterminate, out.Status)
}

func TestClient_CancelledContext_IsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"block_index": 1})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := rail.NewClient(srv.URL, time.Second).Transfer(ctx, testRequest())

	assert.Equal(t, funding.OutcomeIndeterminate, out.Status)
}
