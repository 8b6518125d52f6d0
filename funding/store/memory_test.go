package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulboard/funding-engine/funding"
)

func TestMemory_CampaignCRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.GetCampaign(ctx, "c1")
	assert.ErrorIs(t, err, funding.ErrNotFound)

	c := funding.Campaign{ID: "c1", Name: "Launch", Owner: "alice", Budget: 100, CreatedAt: time.Now().UTC()}
	require.NoError(t, m.PutCampaign(ctx, c))

	got, err := m.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	require.NoError(t, m.DeleteCampaign(ctx, "c1"))
	_, err = m.GetCampaign(ctx, "c1")
	assert.ErrorIs(t, err, funding.ErrNotFound)
	assert.ErrorIs(t, m.DeleteCampaign(ctx, "c1"), funding.ErrNotFound)
}

func TestMemory_ListsAreOrderedByID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, id := range []string{"c3", "c1", "c2"} {
		require.NoError(t, m.PutCampaign(ctx, funding.Campaign{ID: funding.CampaignID(id)}))
	}

	campaigns, err := m.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 3)
	assert.Equal(t, funding.CampaignID("c1"), campaigns[0].ID)
	assert.Equal(t, funding.CampaignID("c2"), campaigns[1].ID)
	assert.Equal(t, funding.CampaignID("c3"), campaigns[2].ID)
}

func TestMemory_EarningsByProvider_OrderedByCampaign(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutEarnings(ctx, funding.ProviderEarnings{ProviderID: "p1", CampaignID: "c2", TotalEarned: 2}))
	require.NoError(t, m.PutEarnings(ctx, funding.ProviderEarnings{ProviderID: "p1", CampaignID: "c1", TotalEarned: 1}))
	require.NoError(t, m.PutEarnings(ctx, funding.ProviderEarnings{ProviderID: "p2", CampaignID: "c9", TotalEarned: 9}))

	records, err := m.EarningsByProvider(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, funding.CampaignID("c1"), records[0].CampaignID)
	assert.Equal(t, funding.CampaignID("c2"), records[1].CampaignID)
}

func TestMemory_JournalByOwner_NewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, id := range []string{"j1", "j2", "j3"} {
		require.NoError(t, m.AppendJournal(ctx, funding.JournalEntry{ID: id, Owner: "alice"}))
	}
	require.NoError(t, m.AppendJournal(ctx, funding.JournalEntry{ID: "other", Owner: "bob"}))

	entries, err := m.JournalByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "j3", entries[0].ID)
	assert.Equal(t, "j1", entries[2].ID)
}

func TestMemory_UpdateJournal(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	entry := funding.JournalEntry{ID: "j1", Owner: "alice", Status: funding.JournalPending}
	require.NoError(t, m.AppendJournal(ctx, entry))

	entry.Status = funding.JournalConfirmed
	entry.BlockIndex = 42
	require.NoError(t, m.UpdateJournal(ctx, entry))

	got, err := m.GetJournal(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, funding.JournalConfirmed, got.Status)
	assert.Equal(t, funding.BlockIndex(42), got.BlockIndex)

	assert.ErrorIs(t, m.UpdateJournal(ctx, funding.JournalEntry{ID: "missing"}), funding.ErrNotFound)
}

func TestMemory_WithTx_CommitsOnSuccess(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.PutCampaign(ctx, funding.Campaign{ID: "c1", Budget: 100}))

	err := m.WithTx(ctx, func(s funding.Store) error {
		c, err := s.GetCampaign(ctx, "c1")
		if err != nil {
			return err
		}
		c.Budget = 50
		if err := s.PutCampaign(ctx, c); err != nil {
			return err
		}
		return s.PutProvider(ctx, funding.Provider{ID: "p1", TotalEarnings: 50})
	})
	require.NoError(t, err)

	c, err := m.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, funding.Tokens(50), c.Budget)
	p, err := m.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, funding.Tokens(50), p.TotalEarnings)
}

func TestMemory_WithTx_RollsBackEverythingOnError(t *testing.T) {
	// GIVEN: A transaction that mutates campaigns, providers, earnings, and
	//        the journal before failing
	// WHEN: The callback returns an error
	// THEN: Every mutation is rolled back

	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.PutCampaign(ctx, funding.Campaign{ID: "c1", Budget: 100}))
	require.NoError(t, m.PutProvider(ctx, funding.Provider{ID: "p1", TotalEarnings: 0}))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s funding.Store) error {
		_ = s.PutCampaign(ctx, funding.Campaign{ID: "c1", Budget: 0})
		_ = s.PutProvider(ctx, funding.Provider{ID: "p1", TotalEarnings: 100})
		_ = s.PutEarnings(ctx, funding.ProviderEarnings{ProviderID: "p1", CampaignID: "c1", TotalEarned: 100})
		_ = s.AppendJournal(ctx, funding.JournalEntry{ID: "j1", Owner: "alice"})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := m.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, funding.Tokens(100), c.Budget)

	p, err := m.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, funding.Tokens(0), p.TotalEarnings)

	_, err = m.GetEarnings(ctx, "p1", "c1")
	assert.ErrorIs(t, err, funding.ErrNotFound)

	_, err = m.GetJournal(ctx, "j1")
	assert.ErrorIs(t, err, funding.ErrNotFound)
}
