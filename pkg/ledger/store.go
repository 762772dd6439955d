// Package ledger stores the guild reagent bank: one row per (guild, item)
// balance and one capacity row per guild.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a guild has no row for the requested item.
var ErrNotFound = errors.New("ledger: not found")

// Entry is one (guild, item) balance row.
type Entry struct {
	GuildID   gamedb.GuildID  `json:"guild_id"`
	ItemEntry uint32          `json:"item_entry"`
	Subclass  gamedb.Subclass `json:"item_subclass"`
	Amount    uint32          `json:"amount"`
}

// Credit is one additive deposit into a guild's balance for an item.
type Credit struct {
	ItemEntry uint32
	Subclass  gamedb.Subclass
	Amount    uint32
}

// Usage summarizes a guild's capacity accounting.
type Usage struct {
	Capacity uint32 `json:"capacity"`
	Used     uint32 `json:"used"`
}

// Free returns capacity minus used space, clamped at zero.
func (u Usage) Free() uint32 {
	if u.Used >= u.Capacity {
		return 0
	}
	return u.Capacity - u.Used
}

// Store is the SQL-backed ledger.
type Store struct {
	db      *sql.DB
	path    string
	timeout time.Duration
}

// Open opens a SQLite database, sets WAL mode and busy timeout, and creates
// the ledger tables if needed.
func Open(path string, timeoutSec int) (*Store, error) {
	if timeoutSec <= 0 {
		timeoutSec = 5
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// PRAGMAs are per connection; a single connection keeps them in force and
	// serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", timeoutSec*1000)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	s := New(db, time.Duration(timeoutSec)*time.Second)
	s.path = path
	ctx, cancel := s.ctx()
	defer cancel()
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already-open database. The schema is not created.
func New(db *sql.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{db: db, timeout: timeout}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the filesystem path of the SQLite database.
func (s *Store) Path() string { return s.path }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Checkpoint forces a WAL checkpoint to flush all writes to the main database file.
func (s *Store) Checkpoint() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
