package funding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TOKEN PARSING AND DISPLAY
// =============================================================================

func TestParseTokens_WholeAndFractional(t *testing.T) {
	cases := []struct {
		in   string
		want Tokens
	}{
		{"0", 0},
		{"1", 100_000_000},
		{"1.5", 150_000_000},
		{"0.0001", 10_000}, // exactly the default fee
		{"0.00000001", 1},  // one e8s, the smallest unit
		{"12345.6789", 1_234_567_890_000},
	}
	for _, tc := range cases {
		got, err := ParseTokens(tc.in)
		require.NoError(t, err, "parse %q", tc.in)
		assert.Equal(t, tc.want, got, "parse %q", tc.in)
	}
}

func TestParseTokens_RejectsNegative(t *testing.T) {
	_, err := ParseTokens("-1")
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestParseTokens_RejectsSubUnitPrecision(t *testing.T) {
	// Finer than one e8s cannot be represented.
	_, err := ParseTokens("0.000000001")
	assert.ErrorIs(t, err, ErrSubUnitPrecision)
}

func TestParseTokens_RejectsGarbage(t *testing.T) {
	_, err := ParseTokens("one and a half")
	assert.Error(t, err)
}

func TestTokens_Decimal_RoundTrips(t *testing.T) {
	cases := []struct {
		in   Tokens
		want string
	}{
		{0, "0"},
		{1, "0.00000001"},
		{10_000, "0.0001"},
		{150_000_000, "1.5"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.Decimal().String())
	}
}

// =============================================================================
// OWNERSHIP GUARD
// =============================================================================

func TestRequireOwner(t *testing.T) {
	owner := Identity("alice")

	assert.NoError(t, RequireOwner(owner, "alice", "campaign c1"))

	err := RequireOwner(owner, "bob", "campaign c1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The empty identity never owns anything.
	err = RequireOwner(owner, "", "campaign c1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
