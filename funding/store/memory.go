// Package store provides an in-memory funding.TxStore for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/soulboard/funding-engine/funding"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	campaigns map[funding.CampaignID]funding.Campaign
	providers map[funding.ProviderID]funding.Provider
	earnings  map[earnKey]funding.ProviderEarnings
	journal   []funding.JournalEntry
	journalIx map[string]int
}

type earnKey struct {
	Provider funding.ProviderID
	Campaign funding.CampaignID
}

func NewMemory() *Memory {
	return &Memory{
		campaigns: make(map[funding.CampaignID]funding.Campaign),
		providers: make(map[funding.ProviderID]funding.Provider),
		earnings:  make(map[earnKey]funding.ProviderEarnings),
		journalIx: make(map[string]int),
	}
}

// =============================================================================
// CAMPAIGNS
// =============================================================================

func (m *Memory) GetCampaign(_ context.Context, id funding.CampaignID) (funding.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCampaignLocked(id)
}

func (m *Memory) getCampaignLocked(id funding.CampaignID) (funding.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return funding.Campaign{}, &funding.NotFoundError{Kind: "campaign", ID: string(id)}
	}
	return c, nil
}

func (m *Memory) PutCampaign(_ context.Context, c funding.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
	return nil
}

func (m *Memory) DeleteCampaign(_ context.Context, id funding.CampaignID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[id]; !ok {
		return &funding.NotFoundError{Kind: "campaign", ID: string(id)}
	}
	delete(m.campaigns, id)
	return nil
}

func (m *Memory) ListCampaigns(_ context.Context) ([]funding.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]funding.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// PROVIDERS
// =============================================================================

func (m *Memory) GetProvider(_ context.Context, id funding.ProviderID) (funding.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getProviderLocked(id)
}

func (m *Memory) getProviderLocked(id funding.ProviderID) (funding.Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return funding.Provider{}, &funding.NotFoundError{Kind: "provider", ID: string(id)}
	}
	return p, nil
}

func (m *Memory) PutProvider(_ context.Context, p funding.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.ID] = p
	return nil
}

func (m *Memory) ListProviders(_ context.Context) ([]funding.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]funding.Provider, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// EARNINGS
// =============================================================================

func (m *Memory) GetEarnings(_ context.Context, provider funding.ProviderID, campaign funding.CampaignID) (funding.ProviderEarnings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.earnings[earnKey{Provider: provider, Campaign: campaign}]
	if !ok {
		return funding.ProviderEarnings{}, &funding.NotFoundError{
			Kind: "earnings", ID: string(provider) + ":" + string(campaign),
		}
	}
	return e, nil
}

func (m *Memory) PutEarnings(_ context.Context, e funding.ProviderEarnings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.earnings[earnKey{Provider: e.ProviderID, Campaign: e.CampaignID}] = e
	return nil
}

func (m *Memory) EarningsByProvider(_ context.Context, provider funding.ProviderID) ([]funding.ProviderEarnings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.earningsByProviderLocked(provider), nil
}

func (m *Memory) earningsByProviderLocked(provider funding.ProviderID) []funding.ProviderEarnings {
	var out []funding.ProviderEarnings
	for k, e := range m.earnings {
		if k.Provider == provider {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CampaignID < out[j].CampaignID })
	return out
}

// =============================================================================
// JOURNAL
// =============================================================================

func (m *Memory) AppendJournal(_ context.Context, entry funding.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journalIx[entry.ID] = len(m.journal)
	m.journal = append(m.journal, entry)
	return nil
}

func (m *Memory) UpdateJournal(_ context.Context, entry funding.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.journalIx[entry.ID]
	if !ok {
		return &funding.NotFoundError{Kind: "journal", ID: entry.ID}
	}
	m.journal[i] = entry
	return nil
}

func (m *Memory) GetJournal(_ context.Context, id string) (funding.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.journalIx[id]
	if !ok {
		return funding.JournalEntry{}, &funding.NotFoundError{Kind: "journal", ID: id}
	}
	return m.journal[i], nil
}

func (m *Memory) JournalByOwner(_ context.Context, owner funding.Identity) ([]funding.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest first: iterate the append order backwards.
	var out []funding.JournalEntry
	for i := len(m.journal) - 1; i >= 0; i-- {
		if m.journal[i].Owner == owner {
			out = append(out, m.journal[i])
		}
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONAL SUPPORT
// =============================================================================

// WithTx executes fn against a view of the store and rolls the whole store
// back to a pre-transaction snapshot if fn fails. Single-writer: the store
// lock is held for the duration.
func (m *Memory) WithTx(_ context.Context, fn func(funding.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &txView{parent: m}
	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	campaigns map[funding.CampaignID]funding.Campaign
	providers map[funding.ProviderID]funding.Provider
	earnings  map[earnKey]funding.ProviderEarnings
	journal   []funding.JournalEntry
	journalIx map[string]int
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		campaigns: make(map[funding.CampaignID]funding.Campaign, len(m.campaigns)),
		providers: make(map[funding.ProviderID]funding.Provider, len(m.providers)),
		earnings:  make(map[earnKey]funding.ProviderEarnings, len(m.earnings)),
		journal:   append([]funding.JournalEntry{}, m.journal...),
		journalIx: make(map[string]int, len(m.journalIx)),
	}
	for k, v := range m.campaigns {
		s.campaigns[k] = v
	}
	for k, v := range m.providers {
		s.providers[k] = v
	}
	for k, v := range m.earnings {
		s.earnings[k] = v
	}
	for k, v := range m.journalIx {
		s.journalIx[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.campaigns = s.campaigns
	m.providers = s.providers
	m.earnings = s.earnings
	m.journal = s.journal
	m.journalIx = s.journalIx
}

// txView routes Store calls to the parent's unlocked internals while the
// parent lock is held by WithTx.
type txView struct {
	parent *Memory
}

func (tv *txView) GetCampaign(_ context.Context, id funding.CampaignID) (funding.Campaign, error) {
	return tv.parent.getCampaignLocked(id)
}

func (tv *txView) PutCampaign(_ context.Context, c funding.Campaign) error {
	tv.parent.campaigns[c.ID] = c
	return nil
}

func (tv *txView) DeleteCampaign(_ context.Context, id funding.CampaignID) error {
	if _, ok := tv.parent.campaigns[id]; !ok {
		return &funding.NotFoundError{Kind: "campaign", ID: string(id)}
	}
	delete(tv.parent.campaigns, id)
	return nil
}

func (tv *txView) ListCampaigns(_ context.Context) ([]funding.Campaign, error) {
	out := make([]funding.Campaign, 0, len(tv.parent.campaigns))
	for _, c := range tv.parent.campaigns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tv *txView) GetProvider(_ context.Context, id funding.ProviderID) (funding.Provider, error) {
	return tv.parent.getProviderLocked(id)
}

func (tv *txView) PutProvider(_ context.Context, p funding.Provider) error {
	tv.parent.providers[p.ID] = p
	return nil
}

func (tv *txView) ListProviders(_ context.Context) ([]funding.Provider, error) {
	out := make([]funding.Provider, 0, len(tv.parent.providers))
	for _, p := range tv.parent.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tv *txView) GetEarnings(_ context.Context, provider funding.ProviderID, campaign funding.CampaignID) (funding.ProviderEarnings, error) {
	e, ok := tv.parent.earnings[earnKey{Provider: provider, Campaign: campaign}]
	if !ok {
		return funding.ProviderEarnings{}, &funding.NotFoundError{
			Kind: "earnings", ID: string(provider) + ":" + string(campaign),
		}
	}
	return e, nil
}

func (tv *txView) PutEarnings(_ context.Context, e funding.ProviderEarnings) error {
	tv.parent.earnings[earnKey{Provider: e.ProviderID, Campaign: e.CampaignID}] = e
	return nil
}

func (tv *txView) EarningsByProvider(_ context.Context, provider funding.ProviderID) ([]funding.ProviderEarnings, error) {
	return tv.parent.earningsByProviderLocked(provider), nil
}

func (tv *txView) AppendJournal(_ context.Context, entry funding.JournalEntry) error {
	tv.parent.journalIx[entry.ID] = len(tv.parent.journal)
	tv.parent.journal = append(tv.parent.journal, entry)
	return nil
}

func (tv *txView) UpdateJournal(_ context.Context, entry funding.JournalEntry) error {
	i, ok := tv.parent.journalIx[entry.ID]
	if !ok {
		return &funding.NotFoundError{Kind: "journal", ID: entry.ID}
	}
	tv.parent.journal[i] = entry
	return nil
}

func (tv *txView) GetJournal(_ context.Context, id string) (funding.JournalEntry, error) {
	i, ok := tv.parent.journalIx[id]
	if !ok {
		return funding.JournalEntry{}, &funding.NotFoundError{Kind: "journal", ID: id}
	}
	return tv.parent.journal[i], nil
}

func (tv *txView) JournalByOwner(_ context.Context, owner funding.Identity) ([]funding.JournalEntry, error) {
	var out []funding.JournalEntry
	for i := len(tv.parent.journal) - 1; i >= 0; i-- {
		if tv.parent.journal[i].Owner == owner {
			out = append(out, tv.parent.journal[i])
		}
	}
	return out, nil
}
