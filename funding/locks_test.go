package funding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTable_AcquireRelease(t *testing.T) {
	lt := NewLockTable()
	ref := EntityRef{Kind: "campaign", ID: "c1"}

	require.NoError(t, lt.Acquire(ref))
	assert.True(t, lt.Held(ref))

	err := lt.Acquire(ref)
	assert.ErrorIs(t, err, ErrEntityBusy)
	var busy *BusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, "campaign", busy.Kind)
	assert.Equal(t, "c1", busy.ID)

	lt.Release(ref)
	assert.False(t, lt.Held(ref))
	assert.NoError(t, lt.Acquire(ref))
}

func TestLockTable_AllOrNothing(t *testing.T) {
	// GIVEN: The provider is already locked
	// WHEN: A multi-entity acquisition includes it
	// THEN: Nothing is taken, including the free campaign

	lt := NewLockTable()
	campaign := EntityRef{Kind: "campaign", ID: "c1"}
	provider := EntityRef{Kind: "provider", ID: "p1"}

	require.NoError(t, lt.Acquire(provider))

	err := lt.Acquire(campaign, provider)
	assert.ErrorIs(t, err, ErrEntityBusy)
	assert.False(t, lt.Held(campaign), "failed acquisition must not leave partial locks")

	lt.Release(provider)
	assert.NoError(t, lt.Acquire(campaign, provider))
}

func TestLockTable_ReleaseUnheldIsSafe(t *testing.T) {
	lt := NewLockTable()
	lt.Release(EntityRef{Kind: "campaign", ID: "never-held"})
}

func TestLockTable_IndependentEntities(t *testing.T) {
	// Distinct entities never contend.
	lt := NewLockTable()
	require.NoError(t, lt.Acquire(EntityRef{Kind: "campaign", ID: "c1"}))
	assert.NoError(t, lt.Acquire(EntityRef{Kind: "campaign", ID: "c2"}))
	assert.NoError(t, lt.Acquire(EntityRef{Kind: "provider", ID: "c1"}),
		"same id under a different kind is a different entity")
}
