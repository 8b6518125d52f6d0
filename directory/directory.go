/*
Package directory manages campaign and provider records.

PURPOSE:
  Plain record management: registering providers, creating and closing
  campaigns, attaching locations, and listing for the marketplace. The
  funding engine treats this package as a collaborator - it creates and
  destroys records through the shared store, while the engine only ever
  mutates their budget and earnings fields.

OWNERSHIP:
  Records belong to the identity that created them. Closing a campaign
  and attaching locations are owner-gated; provider listings are public
  marketplace data, matching the original platform behavior.

SEE ALSO:
  - funding/store.go: The shared store both packages operate through
*/
package directory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/soulboard/funding-engine/funding"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store funding.Store
	now   func() time.Time
	newID func() string
}

func NewService(store funding.Store) *Service {
	return &Service{store: store, now: time.Now, newID: uuid.NewString}
}

// =============================================================================
// PROVIDERS
// =============================================================================

// RegisterProvider creates a provider owned by the caller and returns its id.
func (s *Service) RegisterProvider(ctx context.Context, caller funding.Identity, name string, locations []funding.Location) (funding.ProviderID, error) {
	p := funding.Provider{
		ID:        funding.ProviderID("provider_" + s.newID()),
		Name:      name,
		Owner:     caller,
		Locations: locations,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.PutProvider(ctx, p); err != nil {
		return "", &funding.StorageError{Op: "register provider", Err: err}
	}
	return p.ID, nil
}

// AddLocation attaches a location to the caller's provider.
func (s *Service) AddLocation(ctx context.Context, caller funding.Identity, id funding.ProviderID, loc funding.Location) error {
	p, err := s.store.GetProvider(ctx, id)
	if err != nil {
		return err
	}
	if err := funding.RequireOwner(p.Owner, caller, "provider "+string(id)); err != nil {
		return err
	}
	if loc.ID == "" {
		loc.ID = "location_" + s.newID()
	}
	if loc.Status == "" {
		loc.Status = funding.LocationActive
	}
	p.Locations = append(p.Locations, loc)
	if err := s.store.PutProvider(ctx, p); err != nil {
		return &funding.StorageError{Op: "add location", Err: err}
	}
	return nil
}

// ListProviders returns every provider. Public marketplace data.
func (s *Service) ListProviders(ctx context.Context) ([]funding.Provider, error) {
	return s.store.ListProviders(ctx)
}

// ListProvidersByOwner returns the caller's providers.
func (s *Service) ListProvidersByOwner(ctx context.Context, caller funding.Identity) ([]funding.Provider, error) {
	all, err := s.store.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	var out []funding.Provider
	for _, p := range all {
		if p.Owner == caller {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListLocations returns every location across all providers.
func (s *Service) ListLocations(ctx context.Context) ([]funding.Location, error) {
	all, err := s.store.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	var out []funding.Location
	for _, p := range all {
		out = append(out, p.Locations...)
	}
	return out, nil
}

// =============================================================================
// CAMPAIGNS
// =============================================================================

// CreateCampaign creates a campaign owned by the caller and returns its id.
// The budget starts at zero; funding goes through the Transfer Coordinator.
func (s *Service) CreateCampaign(ctx context.Context, caller funding.Identity, name, description, image string) (funding.CampaignID, error) {
	c := funding.Campaign{
		ID:          funding.CampaignID("campaign_" + s.newID()),
		Name:        name,
		Description: description,
		Image:       image,
		Owner:       caller,
		Status:      funding.CampaignActive,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.PutCampaign(ctx, c); err != nil {
		return "", &funding.StorageError{Op: "create campaign", Err: err}
	}
	return c.ID, nil
}

// CloseCampaign removes the caller's campaign record. A campaign holding
// budget should be drained through withdraw_campaign_funds first; closing
// does not move value.
func (s *Service) CloseCampaign(ctx context.Context, caller funding.Identity, id funding.CampaignID) error {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if err := funding.RequireOwner(c.Owner, caller, "campaign "+string(id)); err != nil {
		return err
	}
	if err := s.store.DeleteCampaign(ctx, id); err != nil {
		return &funding.StorageError{Op: "close campaign", Err: err}
	}
	return nil
}

// ListCampaignsByOwner returns the caller's campaigns. Campaigns are
// private to their owner.
func (s *Service) ListCampaignsByOwner(ctx context.Context, caller funding.Identity) ([]funding.Campaign, error) {
	all, err := s.store.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	var out []funding.Campaign
	for _, c := range all {
		if c.Owner == caller {
			out = append(out, c)
		}
	}
	return out, nil
}
