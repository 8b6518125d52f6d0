/*
Package rail adapts the external ledger's transfer operation.

PURPOSE:
  A typed, logic-free adapter over the payment rail: it translates a
  funding.TransferRequest into the rail's wire format, performs the call,
  and classifies the result into exactly one of Confirmed, Rejected, or
  Indeterminate.

CLASSIFICATION RULES:
  Confirmed:      2xx response carrying a block index
  Rejected:       a decodable rail error envelope (the rail answered, so
                  its state is known: nothing moved)
  Indeterminate:  anything where the rail's state is unknown - connection
                  failure, timeout, context cancellation, or a response
                  body we cannot decode

  The one rule that matters: NEVER report Indeterminate as Rejected. A
  coordinator that believed a timed-out withdrawal was declined would
  re-credit funds that may already have left.

WIRE FORMAT (ICRC-1 style):
  POST {endpoint}/transfer
    {"from": {...}, "to": {...}, "amount": N, "fee": N,
     "memo": base64, "created_at_time": token}
  200: {"block_index": N}
  4xx/5xx with envelope: {"error": {"code": "...", "message": "...",
     "duplicate_of": N?}}
  Rail error codes: insufficient_funds, bad_fee, too_old,
  created_in_future, duplicate, temporarily_unavailable, generic.

SEE ALSO:
  - funding/types.go: Gateway interface and outcome types
*/
package rail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/soulboard/funding-engine/funding"
)

// =============================================================================
// CLIENT
// =============================================================================

const defaultTimeout = 30 * time.Second

// Client is an HTTP implementation of funding.Gateway.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a gateway client for the given rail endpoint.
// A zero timeout falls back to the default.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type wireAccount struct {
	Owner      string `json:"owner"`
	Subaccount string `json:"subaccount,omitempty"` // base64
}

type wireTransfer struct {
	From          wireAccount `json:"from"`
	To            wireAccount `json:"to"`
	Amount        uint64      `json:"amount"`
	Fee           uint64      `json:"fee"`
	Memo          string      `json:"memo,omitempty"` // base64
	CreatedAtTime string      `json:"created_at_time,omitempty"`
}

type wireResult struct {
	BlockIndex *uint64    `json:"block_index"`
	Error      *wireError `json:"error"`
}

type wireError struct {
	Code        string  `json:"code"`
	Message     string  `json:"message"`
	DuplicateOf *uint64 `json:"duplicate_of,omitempty"`
}

func encodeAccount(a funding.Account) wireAccount {
	w := wireAccount{Owner: string(a.Owner)}
	if len(a.Subaccount) > 0 {
		w.Subaccount = base64.StdEncoding.EncodeToString(a.Subaccount)
	}
	return w
}

// =============================================================================
// TRANSFER
// =============================================================================

// Transfer dispatches the request and classifies the result. It never
// returns an error: every failure mode is folded into the outcome.
func (c *Client) Transfer(ctx context.Context, req funding.TransferRequest) funding.TransferOutcome {
	body := wireTransfer{
		From:          encodeAccount(req.From),
		To:            encodeAccount(req.To),
		Amount:        uint64(req.Amount),
		Fee:           uint64(req.Fee),
		CreatedAtTime: req.Token,
	}
	if len(req.Memo) > 0 {
		body.Memo = base64.StdEncoding.EncodeToString(req.Memo)
	}

	raw, err := json.Marshal(body)
	if err != nil {
		// Encoding our own struct cannot realistically fail, but a failure
		// here happened before dispatch, so nothing moved.
		return rejected(fmt.Sprintf("encode request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/transfer", bytes.NewReader(raw))
	if err != nil {
		return rejected(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Transport failure or timeout: the rail may or may not have
		// executed the transfer.
		return indeterminate(fmt.Sprintf("transport: %v", err))
	}
	defer resp.Body.Close()

	var result wireResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return indeterminate(fmt.Sprintf("undecodable response (status %d): %v", resp.StatusCode, err))
	}

	switch {
	case result.Error != nil:
		return rejected(railReason(result.Error))
	case result.BlockIndex != nil:
		return funding.TransferOutcome{
			Status:     funding.OutcomeConfirmed,
			BlockIndex: funding.BlockIndex(*result.BlockIndex),
		}
	default:
		return indeterminate(fmt.Sprintf("response carries neither block index nor error (status %d)", resp.StatusCode))
	}
}

func railReason(e *wireError) string {
	reason := e.Code
	if e.Message != "" {
		reason += ": " + e.Message
	}
	if e.DuplicateOf != nil {
		reason += fmt.Sprintf(" (duplicate of block %d)", *e.DuplicateOf)
	}
	return reason
}

func rejected(reason string) funding.TransferOutcome {
	return funding.TransferOutcome{Status: funding.OutcomeRejected, Reason: reason}
}

func indeterminate(reason string) funding.TransferOutcome {
	return funding.TransferOutcome{Status: funding.OutcomeIndeterminate, Reason: reason}
}
