// Package persistence backs the in-process ledger with sqlite so committed
// state survives node restarts.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mirrorledger/textoracle/internal/ledger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// LedgerStore implements ledger.Store on a single sqlite file.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(path string) (*LedgerStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &LedgerStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *LedgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *LedgerStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *LedgerStore) Load(ctx context.Context) (*ledger.Snapshot, error) {
	snapshot := &ledger.Snapshot{
		Accounts: make(map[ledger.Address]uint64),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT address, balance FROM accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var encoded string
		var balance uint64
		if err := rows.Scan(&encoded, &balance); err != nil {
			return nil, err
		}
		addr, err := ledger.ParseAddress(encoded)
		if err != nil {
			return nil, fmt.Errorf("corrupt account address %q: %w", encoded, err)
		}
		snapshot.Accounts[addr] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	apps, err := s.loadApps(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Apps = apps
	return snapshot, nil
}

func (s *LedgerStore) loadApps(ctx context.Context) ([]ledger.AppState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, creator, min_balance FROM apps ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]ledger.AppState, 0)
	for rows.Next() {
		var state ledger.AppState
		var creator string
		if err := rows.Scan(&state.ID, &creator, &state.MinBalance); err != nil {
			return nil, err
		}
		addr, err := ledger.ParseAddress(creator)
		if err != nil {
			return nil, fmt.Errorf("corrupt creator address %q: %w", creator, err)
		}
		state.Creator = addr
		apps = append(apps, state)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range apps {
		globals, err := s.loadGlobals(ctx, apps[i].ID)
		if err != nil {
			return nil, err
		}
		boxes, err := s.loadBoxes(ctx, apps[i].ID)
		if err != nil {
			return nil, err
		}
		apps[i].Globals = globals
		apps[i].Boxes = boxes
	}
	return apps, nil
}

func (s *LedgerStore) loadGlobals(ctx context.Context, appID uint64) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_globals WHERE app_id = ?`, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	globals := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		globals[key] = value
	}
	return globals, rows.Err()
}

func (s *LedgerStore) loadBoxes(ctx context.Context, appID uint64) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM app_boxes WHERE app_id = ?`, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boxes := make(map[string][]byte)
	for rows.Next() {
		var name, value []byte
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		boxes[string(name)] = value
	}
	return boxes, rows.Err()
}

func (s *LedgerStore) SaveAccount(ctx context.Context, addr ledger.Address, balance uint64) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO accounts (address, balance) VALUES (?, ?)
		 ON CONFLICT(address) DO UPDATE SET balance=excluded.balance`,
		addr.String(),
		balance,
	)
	return err
}

func (s *LedgerStore) SaveApp(ctx context.Context, state ledger.AppState) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO apps (id, creator, min_balance) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			creator=excluded.creator,
			min_balance=excluded.min_balance`,
		state.ID,
		state.Creator.String(),
		state.MinBalance,
	)
	return err
}

func (s *LedgerStore) SaveGlobal(ctx context.Context, appID uint64, key string, value []byte) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO app_globals (app_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(app_id, key) DO UPDATE SET value=excluded.value`,
		appID,
		key,
		value,
	)
	return err
}

func (s *LedgerStore) SaveBox(ctx context.Context, appID uint64, name, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO app_boxes (app_id, name, value) VALUES (?, ?, ?)
		 ON CONFLICT(app_id, name) DO UPDATE SET value=excluded.value`,
		appID,
		name,
		value,
	)
	return err
}

func (s *LedgerStore) DeleteBox(ctx context.Context, appID uint64, name []byte) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_boxes WHERE app_id = ? AND name = ?`, appID, name)
	return err
}
