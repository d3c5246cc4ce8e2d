// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"commodore-cli/internal/ledger/migrations"
)

// DefaultSQLiteFileName is the database file name used when only a root directory is known.
const DefaultSQLiteFileName = ".commodities.db"

type (
	// SQLiteLedger stores the latest outcome per key in provision_status and
	// appends every Set to provision_attempts.
	SQLiteLedger struct {
		db    *sql.DB
		path  string
		runID string
		now   func() time.Time
	}

	// Attempt is one row of the attempt history.
	Attempt struct {
		ID          string
		RunID       string
		Key         Key
		Provisioned bool
		AttemptedAt time.Time
	}

	// SQLiteOption configures a SQLiteLedger.
	SQLiteOption func(*SQLiteLedger)
)

// WithRunID tags every attempt written by this ledger with runID.
func WithRunID(runID string) SQLiteOption {
	return func(l *SQLiteLedger) {
		l.runID = runID
	}
}

// OpenSQLiteLedger opens (creating if needed) the database at path and runs
// pending migrations.
func OpenSQLiteLedger(path string, opts ...SQLiteOption) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	l := &SQLiteLedger{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running ledger migrations: %w", err)
	}
	return l, nil
}

// Path returns the database file path.
func (l *SQLiteLedger) Path() string { return l.path }

// Close closes the database connection.
func (l *SQLiteLedger) Close() error { return l.db.Close() }

// Get returns the recorded outcome for key.
func (l *SQLiteLedger) Get(ctx context.Context, key Key) (bool, bool, error) {
	if err := key.Validate(); err != nil {
		return false, false, err
	}
	var provisioned bool
	err := l.db.QueryRowContext(ctx,
		`SELECT provisioned FROM provision_status WHERE app = ? AND commodity = ?`,
		key.App, key.Commodity,
	).Scan(&provisioned)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("reading provision status for %s: %w", key, err)
	}
	return provisioned, true, nil
}

// Set records the outcome for key and appends an attempt row.
func (l *SQLiteLedger) Set(ctx context.Context, key Key, provisioned bool) error {
	if err := key.Validate(); err != nil {
		return err
	}
	now := l.now().UTC().Format(time.RFC3339Nano)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO provision_status (app, commodity, provisioned, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (app, commodity) DO UPDATE SET
			provisioned = excluded.provisioned,
			updated_at  = excluded.updated_at`,
		key.App, key.Commodity, provisioned, now,
	); err != nil {
		return fmt.Errorf("writing provision status for %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO provision_attempts (id, run_id, app, commodity, provisioned, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), l.runID, key.App, key.Commodity, provisioned, now,
	); err != nil {
		return fmt.Errorf("recording provision attempt for %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger transaction: %w", err)
	}
	return nil
}

// List returns all records ordered by application and commodity.
func (l *SQLiteLedger) List(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT app, commodity, provisioned, updated_at FROM provision_status ORDER BY app, commodity`)
	if err != nil {
		return nil, fmt.Errorf("listing provision status: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			updatedAt string
		)
		if err := rows.Scan(&rec.App, &rec.Commodity, &rec.Provisioned, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning provision status: %w", err)
		}
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the current record for key. The attempt history is kept.
func (l *SQLiteLedger) Delete(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM provision_status WHERE app = ? AND commodity = ?`,
		key.App, key.Commodity,
	); err != nil {
		return fmt.Errorf("deleting provision status for %s: %w", key, err)
	}
	return nil
}

// History returns the attempts recorded for key, oldest first.
func (l *SQLiteLedger) History(ctx context.Context, key Key) ([]Attempt, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, run_id, provisioned, attempted_at FROM provision_attempts
		WHERE app = ? AND commodity = ?
		ORDER BY rowid`,
		key.App, key.Commodity,
	)
	if err != nil {
		return nil, fmt.Errorf("listing provision attempts for %s: %w", key, err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a := Attempt{Key: key}
		var attemptedAt string
		if err := rows.Scan(&a.ID, &a.RunID, &a.Provisioned, &attemptedAt); err != nil {
			return nil, fmt.Errorf("scanning provision attempt: %w", err)
		}
		a.AttemptedAt, _ = time.Parse(time.RFC3339Nano, attemptedAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// migrate runs all pending migrations.
func (l *SQLiteLedger) migrate(fsys embed.FS) error {
	if _, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := l.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_provision_status.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := l.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := l.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}
