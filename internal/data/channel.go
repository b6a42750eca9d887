package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// OpenDB opens the SQLite database and creates the tables
func OpenDB(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create channel lists table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS channel_lists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			list TEXT NOT NULL,
			name TEXT NOT NULL,
			added_by TEXT,
			created_at INTEGER NOT NULL,
			UNIQUE(list, name)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create channel_lists table: %w", err)
	}

	// Create digest runs table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS digest_runs (
			run_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			kind TEXT,
			error TEXT,
			sink TEXT,
			message_count INTEGER NOT NULL DEFAULT 0,
			snapshot_path TEXT,
			warnings TEXT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create digest_runs table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_digest_runs_started ON digest_runs(started_at)`)

	fmt.Println("[Data] Database initialized")
	return db, nil
}

// channelRepo implements the channel list repository
type channelRepo struct {
	db *sql.DB
}

// NewChannelRepo creates a new channel list repository
func NewChannelRepo(db *sql.DB) repo.ChannelRepo {
	return &channelRepo{db: db}
}

// Add adds a channel to a list
func (r *channelRepo) Add(ctx context.Context, entry *domain.ChannelEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO channel_lists (list, name, added_by, created_at)
		VALUES (?, ?, ?, ?)
	`, string(entry.List), entry.Name, entry.AddedBy, entry.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to add channel: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	fmt.Printf("[Channels] Added %s to %s list\n", entry.Name, entry.List)
	return nil
}

// Remove removes a channel from a list
func (r *channelRepo) Remove(ctx context.Context, list domain.ChannelList, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM channel_lists WHERE list = ? AND name = ?`, string(list), name)
	if err != nil {
		return fmt.Errorf("failed to remove channel: %w", err)
	}
	return nil
}

// List gets the channels of a list
func (r *channelRepo) List(ctx context.Context, list domain.ChannelList) ([]*domain.ChannelEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, list, name, added_by, created_at
		FROM channel_lists
		WHERE list = ?
		ORDER BY name ASC
	`, string(list))
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ChannelEntry
	for rows.Next() {
		var e domain.ChannelEntry
		var listName string
		var addedBy sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &listName, &e.Name, &addedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan channel entry: %w", err)
		}
		e.List = domain.ChannelList(listName)
		e.AddedBy = addedBy.String
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Contains checks if a channel is on a list
func (r *channelRepo) Contains(ctx context.Context, list domain.ChannelList, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM channel_lists WHERE list = ? AND name = ?
	`, string(list), name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check channel: %w", err)
	}
	return count > 0, nil
}

// Close closes the database
func (r *channelRepo) Close() error {
	return r.db.Close()
}
