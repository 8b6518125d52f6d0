package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulboard/funding-engine/directory"
	"github.com/soulboard/funding-engine/funding"
	memstore "github.com/soulboard/funding-engine/funding/store"
)

func newTestService(t *testing.T) (*directory.Service, *memstore.Memory) {
	t.Helper()
	store := memstore.NewMemory()
	return directory.NewService(store), store
}

func TestCreateCampaign_StartsEmptyAndActive(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateCampaign(ctx, "alice", "Launch", "Q3 city launch", "img.png")
	require.NoError(t, err)
	assert.Contains(t, string(id), "campaign_")

	c, err := store.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, funding.Identity("alice"), c.Owner)
	assert.Equal(t, funding.Tokens(0), c.Budget, "funding goes through the coordinator, never creation")
	assert.Equal(t, funding.CampaignActive, c.Status)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestCloseCampaign_OwnerGated(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateCampaign(ctx, "alice", "Launch", "", "")
	require.NoError(t, err)

	err = svc.CloseCampaign(ctx, "bob", id)
	assert.ErrorIs(t, err, funding.ErrUnauthorized)
	_, err = store.GetCampaign(ctx, id)
	assert.NoError(t, err, "failed close must not remove the record")

	require.NoError(t, svc.CloseCampaign(ctx, "alice", id))
	_, err = store.GetCampaign(ctx, id)
	assert.ErrorIs(t, err, funding.ErrNotFound)
}

func TestListCampaignsByOwner_FiltersOthers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCampaign(ctx, "alice", "A1", "", "")
	require.NoError(t, err)
	_, err = svc.CreateCampaign(ctx, "alice", "A2", "", "")
	require.NoError(t, err)
	_, err = svc.CreateCampaign(ctx, "bob", "B1", "", "")
	require.NoError(t, err)

	mine, err := svc.ListCampaignsByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, c := range mine {
		assert.Equal(t, funding.Identity("alice"), c.Owner)
	}
}

func TestRegisterProvider_WithLocations(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id, err := svc.RegisterProvider(ctx, "bob", "Metro Screens", []funding.Location{
		{ID: "loc1", Name: "Station North", BaseFees: 50_000, Status: funding.LocationActive},
	})
	require.NoError(t, err)
	assert.Contains(t, string(id), "provider_")

	p, err := store.GetProvider(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, funding.Identity("bob"), p.Owner)
	assert.Equal(t, funding.Tokens(0), p.TotalEarnings)
	require.Len(t, p.Locations, 1)
}

func TestAddLocation_DefaultsAndOwnership(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id, err := svc.RegisterProvider(ctx, "bob", "Metro Screens", nil)
	require.NoError(t, err)

	err = svc.AddLocation(ctx, "alice", id, funding.Location{Name: "Mall East"})
	assert.ErrorIs(t, err, funding.ErrUnauthorized)

	require.NoError(t, svc.AddLocation(ctx, "bob", id, funding.Location{Name: "Mall East", BaseFees: 80_000}))

	p, err := store.GetProvider(ctx, id)
	require.NoError(t, err)
	require.Len(t, p.Locations, 1)
	assert.Contains(t, p.Locations[0].ID, "location_", "missing id is generated")
	assert.Equal(t, funding.LocationActive, p.Locations[0].Status, "missing status defaults to active")
}

func TestListProviders_PublicAndListLocationsFlattens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterProvider(ctx, "bob", "Metro", []funding.Location{
		{ID: "l1", Name: "One"}, {ID: "l2", Name: "Two"},
	})
	require.NoError(t, err)
	_, err = svc.RegisterProvider(ctx, "carol", "Plaza", []funding.Location{
		{ID: "l3", Name: "Three"},
	})
	require.NoError(t, err)

	all, err := svc.ListProviders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	locations, err := svc.ListLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, locations, 3)

	mine, err := svc.ListProvidersByOwner(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Plaza", mine[0].Name)
}
