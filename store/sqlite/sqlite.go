/*
Package sqlite provides a SQLite-backed implementation of funding.TxStore.

PURPOSE:
  Durable persistence for campaigns, providers, earnings records, and the
  transfer journal. In production the same patterns apply to PostgreSQL
  (see store/postgres) - only minor SQL dialect differences.

KEY TABLES:
  campaigns:          Budget custody records
  providers:          Earnings custody records (locations as JSON)
  provider_earnings:  One accumulating row per (provider, campaign)
  transfer_journal:   Every external transfer attempt and its resolution

INVARIANT ENFORCEMENT:
  Non-negativity is enforced twice: by the engine's bounds checks and by
  CHECK constraints on the balance columns, so no code path can persist a
  negative budget or earnings value.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, a single
  writer at a time, better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - funding/store.go: Interface definitions
  - funding/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soulboard/funding-engine/funding"
)

// Store implements funding.TxStore using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every query sees the same data.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL,
		budget INTEGER NOT NULL DEFAULT 0 CHECK (budget >= 0),
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS providers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner TEXT NOT NULL,
		locations TEXT NOT NULL DEFAULT '[]',
		total_earnings INTEGER NOT NULL DEFAULT 0 CHECK (total_earnings >= 0),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS provider_earnings (
		provider_id TEXT NOT NULL,
		campaign_id TEXT NOT NULL,
		total_earned INTEGER NOT NULL DEFAULT 0 CHECK (total_earned >= 0),
		last_withdrawal TEXT,
		PRIMARY KEY (provider_id, campaign_id)
	);

	CREATE TABLE IF NOT EXISTS transfer_journal (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		owner TEXT NOT NULL,
		campaign_id TEXT NOT NULL DEFAULT '',
		provider_id TEXT NOT NULL DEFAULT '',
		amount INTEGER NOT NULL,
		fee INTEGER NOT NULL,
		token TEXT NOT NULL,
		memo TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		block_index INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		resolved_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_earnings_provider
		ON provider_earnings(provider_id);
	CREATE INDEX IF NOT EXISTS idx_journal_owner_created
		ON transfer_journal(owner, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// QUERY EXECUTION - Shared between Store and transactional view
// =============================================================================

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// =============================================================================
// CAMPAIGNS
// =============================================================================

func getCampaign(ctx context.Context, q dbtx, id funding.CampaignID) (funding.Campaign, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, description, image, owner, budget, status, created_at
		FROM campaigns WHERE id = ?`, string(id))

	var c funding.Campaign
	var createdAt string
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Image, &c.Owner, &c.Budget, &c.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return funding.Campaign{}, &funding.NotFoundError{Kind: "campaign", ID: string(id)}
	}
	if err != nil {
		return funding.Campaign{}, err
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

func putCampaign(ctx context.Context, q dbtx, c funding.Campaign) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, description, image, owner, budget, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			image = excluded.image,
			owner = excluded.owner,
			budget = excluded.budget,
			status = excluded.status`,
		string(c.ID), c.Name, c.Description, c.Image, string(c.Owner),
		uint64(c.Budget), string(c.Status), formatTime(c.CreatedAt))
	return err
}

func deleteCampaign(ctx context.Context, q dbtx, id funding.CampaignID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &funding.NotFoundError{Kind: "campaign", ID: string(id)}
	}
	return nil
}

func listCampaigns(ctx context.Context, q dbtx) ([]funding.Campaign, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, description, image, owner, budget, status, created_at
		FROM campaigns ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []funding.Campaign
	for rows.Next() {
		var c funding.Campaign
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Image, &c.Owner, &c.Budget, &c.Status, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// PROVIDERS
// =============================================================================

func getProvider(ctx context.Context, q dbtx, id funding.ProviderID) (funding.Provider, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, owner, locations, total_earnings, created_at
		FROM providers WHERE id = ?`, string(id))

	var p funding.Provider
	var locations, createdAt string
	err := row.Scan(&p.ID, &p.Name, &p.Owner, &locations, &p.TotalEarnings, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return funding.Provider{}, &funding.NotFoundError{Kind: "provider", ID: string(id)}
	}
	if err != nil {
		return funding.Provider{}, err
	}
	if err := json.Unmarshal([]byte(locations), &p.Locations); err != nil {
		return funding.Provider{}, fmt.Errorf("decode locations for provider %s: %w", id, err)
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func putProvider(ctx context.Context, q dbtx, p funding.Provider) error {
	locations := []byte("[]")
	if p.Locations != nil {
		var err error
		locations, err = json.Marshal(p.Locations)
		if err != nil {
			return err
		}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO providers (id, name, owner, locations, total_earnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner = excluded.owner,
			locations = excluded.locations,
			total_earnings = excluded.total_earnings`,
		string(p.ID), p.Name, string(p.Owner), string(locations),
		uint64(p.TotalEarnings), formatTime(p.CreatedAt))
	return err
}

func listProviders(ctx context.Context, q dbtx) ([]funding.Provider, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, owner, locations, total_earnings, created_at
		FROM providers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []funding.Provider
	for rows.Next() {
		var p funding.Provider
		var locations, createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Owner, &locations, &p.TotalEarnings, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(locations), &p.Locations); err != nil {
			return nil, fmt.Errorf("decode locations for provider %s: %w", p.ID, err)
		}
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// EARNINGS
// =============================================================================

func getEarnings(ctx context.Context, q dbtx, provider funding.ProviderID, campaign funding.CampaignID) (funding.ProviderEarnings, error) {
	row := q.QueryRowContext(ctx, `
		SELECT provider_id, campaign_id, total_earned, last_withdrawal
		FROM provider_earnings WHERE provider_id = ? AND campaign_id = ?`,
		string(provider), string(campaign))

	e, err := scanEarnings(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return funding.ProviderEarnings{}, &funding.NotFoundError{
			Kind: "earnings", ID: string(provider) + ":" + string(campaign),
		}
	}
	return e, err
}

func scanEarnings(scan func(...any) error) (funding.ProviderEarnings, error) {
	var e funding.ProviderEarnings
	var lastWithdrawal sql.NullString
	if err := scan(&e.ProviderID, &e.CampaignID, &e.TotalEarned, &lastWithdrawal); err != nil {
		return funding.ProviderEarnings{}, err
	}
	if lastWithdrawal.Valid {
		t := parseTime(lastWithdrawal.String)
		e.LastWithdrawal = &t
	}
	return e, nil
}

func putEarnings(ctx context.Context, q dbtx, e funding.ProviderEarnings) error {
	var lastWithdrawal any
	if e.LastWithdrawal != nil {
		lastWithdrawal = formatTime(*e.LastWithdrawal)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO provider_earnings (provider_id, campaign_id, total_earned, last_withdrawal)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(provider_id, campaign_id) DO UPDATE SET
			total_earned = excluded.total_earned,
			last_withdrawal = excluded.last_withdrawal`,
		string(e.ProviderID), string(e.CampaignID), uint64(e.TotalEarned), lastWithdrawal)
	return err
}

func earningsByProvider(ctx context.Context, q dbtx, provider funding.ProviderID) ([]funding.ProviderEarnings, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT provider_id, campaign_id, total_earned, last_withdrawal
		FROM provider_earnings WHERE provider_id = ? ORDER BY campaign_id`,
		string(provider))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []funding.ProviderEarnings
	for rows.Next() {
		e, err := scanEarnings(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// JOURNAL
// =============================================================================

const journalColumns = `id, kind, owner, campaign_id, provider_id, amount, fee,
	token, memo, status, block_index, reason, created_at, resolved_at`

func appendJournal(ctx context.Context, q dbtx, entry funding.JournalEntry) error {
	var resolvedAt any
	if entry.ResolvedAt != nil {
		resolvedAt = formatTime(*entry.ResolvedAt)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO transfer_journal
			(id, kind, owner, campaign_id, provider_id, amount, fee, token,
			 memo, status, block_index, reason, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Kind), string(entry.Owner), string(entry.CampaignID),
		string(entry.ProviderID), uint64(entry.Amount), uint64(entry.Fee), entry.Token,
		entry.Memo, string(entry.Status), uint64(entry.BlockIndex), entry.Reason,
		formatTime(entry.CreatedAt), resolvedAt)
	return err
}

func updateJournal(ctx context.Context, q dbtx, entry funding.JournalEntry) error {
	var resolvedAt any
	if entry.ResolvedAt != nil {
		resolvedAt = formatTime(*entry.ResolvedAt)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE transfer_journal
		SET status = ?, block_index = ?, reason = ?, resolved_at = ?
		WHERE id = ?`,
		string(entry.Status), uint64(entry.BlockIndex), entry.Reason, resolvedAt, entry.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &funding.NotFoundError{Kind: "journal", ID: entry.ID}
	}
	return nil
}

func scanJournal(scan func(...any) error) (funding.JournalEntry, error) {
	var e funding.JournalEntry
	var createdAt string
	var resolvedAt sql.NullString
	err := scan(&e.ID, &e.Kind, &e.Owner, &e.CampaignID, &e.ProviderID, &e.Amount,
		&e.Fee, &e.Token, &e.Memo, &e.Status, &e.BlockIndex, &e.Reason, &createdAt, &resolvedAt)
	if err != nil {
		return funding.JournalEntry{}, err
	}
	e.CreatedAt = parseTime(createdAt)
	if resolvedAt.Valid {
		t := parseTime(resolvedAt.String)
		e.ResolvedAt = &t
	}
	return e, nil
}

func getJournal(ctx context.Context, q dbtx, id string) (funding.JournalEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+journalColumns+` FROM transfer_journal WHERE id = ?`, id)
	e, err := scanJournal(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return funding.JournalEntry{}, &funding.NotFoundError{Kind: "journal", ID: id}
	}
	return e, err
}

func journalByOwner(ctx context.Context, q dbtx, owner funding.Identity) ([]funding.JournalEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+journalColumns+` FROM transfer_journal
		WHERE owner = ? ORDER BY created_at DESC, id DESC`, string(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []funding.JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

func (s *Store) GetCampaign(ctx context.Context, id funding.CampaignID) (funding.Campaign, error) {
	return getCampaign(ctx, s.db, id)
}

func (s *Store) PutCampaign(ctx context.Context, c funding.Campaign) error {
	return putCampaign(ctx, s.db, c)
}

func (s *Store) DeleteCampaign(ctx context.Context, id funding.CampaignID) error {
	return deleteCampaign(ctx, s.db, id)
}

func (s *Store) ListCampaigns(ctx context.Context) ([]funding.Campaign, error) {
	return listCampaigns(ctx, s.db)
}

func (s *Store) GetProvider(ctx context.Context, id funding.ProviderID) (funding.Provider, error) {
	return getProvider(ctx, s.db, id)
}

func (s *Store) PutProvider(ctx context.Context, p funding.Provider) error {
	return putProvider(ctx, s.db, p)
}

func (s *Store) ListProviders(ctx context.Context) ([]funding.Provider, error) {
	return listProviders(ctx, s.db)
}

func (s *Store) GetEarnings(ctx context.Context, provider funding.ProviderID, campaign funding.CampaignID) (funding.ProviderEarnings, error) {
	return getEarnings(ctx, s.db, provider, campaign)
}

func (s *Store) PutEarnings(ctx context.Context, e funding.ProviderEarnings) error {
	return putEarnings(ctx, s.db, e)
}

func (s *Store) EarningsByProvider(ctx context.Context, provider funding.ProviderID) ([]funding.ProviderEarnings, error) {
	return earningsByProvider(ctx, s.db, provider)
}

func (s *Store) AppendJournal(ctx context.Context, entry funding.JournalEntry) error {
	return appendJournal(ctx, s.db, entry)
}

func (s *Store) UpdateJournal(ctx context.Context, entry funding.JournalEntry) error {
	return updateJournal(ctx, s.db, entry)
}

func (s *Store) GetJournal(ctx context.Context, id string) (funding.JournalEntry, error) {
	return getJournal(ctx, s.db, id)
}

func (s *Store) JournalByOwner(ctx context.Context, owner funding.Identity) ([]funding.JournalEntry, error) {
	return journalByOwner(ctx, s.db, owner)
}

// WithTx executes fn inside a database transaction. fn's writes commit
// together or not at all.
func (s *Store) WithTx(ctx context.Context, fn func(funding.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// txStore routes Store calls through an open transaction.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) GetCampaign(ctx context.Context, id funding.CampaignID) (funding.Campaign, error) {
	return getCampaign(ctx, t.tx, id)
}

func (t *txStore) PutCampaign(ctx context.Context, c funding.Campaign) error {
	return putCampaign(ctx, t.tx, c)
}

func (t *txStore) DeleteCampaign(ctx context.Context, id funding.CampaignID) error {
	return deleteCampaign(ctx, t.tx, id)
}

func (t *txStore) ListCampaigns(ctx context.Context) ([]funding.Campaign, error) {
	return listCampaigns(ctx, t.tx)
}

func (t *txStore) GetProvider(ctx context.Context, id funding.ProviderID) (funding.Provider, error) {
	return getProvider(ctx, t.tx, id)
}

func (t *txStore) PutProvider(ctx context.Context, p funding.Provider) error {
	return putProvider(ctx, t.tx, p)
}

func (t *txStore) ListProviders(ctx context.Context) ([]funding.Provider, error) {
	return listProviders(ctx, t.tx)
}

func (t *txStore) GetEarnings(ctx context.Context, provider funding.ProviderID, campaign funding.CampaignID) (funding.ProviderEarnings, error) {
	return getEarnings(ctx, t.tx, provider, campaign)
}

func (t *txStore) PutEarnings(ctx context.Context, e funding.ProviderEarnings) error {
	return putEarnings(ctx, t.tx, e)
}

func (t *txStore) EarningsByProvider(ctx context.Context, provider funding.ProviderID) ([]funding.ProviderEarnings, error) {
	return earningsByProvider(ctx, t.tx, provider)
}

func (t *txStore) AppendJournal(ctx context.Context, entry funding.JournalEntry) error {
	return appendJournal(ctx, t.tx, entry)
}

func (t *txStore) UpdateJournal(ctx context.Context, entry funding.JournalEntry) error {
	return updateJournal(ctx, t.tx, entry)
}

func (t *txStore) GetJournal(ctx context.Context, id string) (funding.JournalEntry, error) {
	return getJournal(ctx, t.tx, id)
}

func (t *txStore) JournalByOwner(ctx context.Context, owner funding.Identity) ([]funding.JournalEntry, error) {
	return journalByOwner(ctx, t.tx, owner)
}
