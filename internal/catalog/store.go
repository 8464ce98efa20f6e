// Package catalog persists identity scan results per container fingerprint,
// so repeat inspect and compile runs over an unchanged container skip the
// full record scan.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"modforge/internal/config"
	"modforge/internal/container"
	"modforge/internal/identity"
)

// Store manages scan persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// RecordScan is one record's cached identity.
type RecordScan struct {
	NumericID  int64
	TypeTag    int32
	Name       string
	NameOffset int
}

// ContainerScan is the cached scan of one container file, keyed by the
// file's content fingerprint.
type ContainerScan struct {
	Fingerprint       string
	Path              string
	StructuralVersion int
	EngineVersion     string
	ScannedAt         time.Time
	Records           []RecordScan
}

// Open initializes or connects to the catalog database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.CatalogDir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Replace stores a scan, discarding any previous scan for the same
// fingerprint.
func (s *Store) Replace(ctx context.Context, scan *ContainerScan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM containers WHERE fingerprint = ?", scan.Fingerprint); err != nil {
		return fmt.Errorf("clear previous scan: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO containers (fingerprint, path, structural_version, engine_version, scanned_at)
         VALUES (?, ?, ?, ?, ?)`,
		scan.Fingerprint,
		scan.Path,
		scan.StructuralVersion,
		scan.EngineVersion,
		scan.ScannedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert container scan: %w", err)
	}
	for _, rec := range scan.Records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (fingerprint, numeric_id, type_tag, name, name_offset)
             VALUES (?, ?, ?, ?, ?)`,
			scan.Fingerprint, rec.NumericID, rec.TypeTag, rec.Name, rec.NameOffset,
		); err != nil {
			return fmt.Errorf("insert record scan %d: %w", rec.NumericID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scan: %w", err)
	}
	return nil
}

// Lookup fetches the cached scan for a fingerprint, reporting whether one
// exists.
func (s *Store) Lookup(ctx context.Context, fingerprint string) (*ContainerScan, bool, error) {
	scan := &ContainerScan{Fingerprint: fingerprint}
	var scannedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT path, structural_version, engine_version, scanned_at
         FROM containers WHERE fingerprint = ?`, fingerprint,
	).Scan(&scan.Path, &scan.StructuralVersion, &scan.EngineVersion, &scannedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query container scan: %w", err)
	}
	if scan.ScannedAt, err = time.Parse(time.RFC3339Nano, scannedAt); err != nil {
		return nil, false, fmt.Errorf("parse scan timestamp: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT numeric_id, type_tag, name, name_offset
         FROM records WHERE fingerprint = ? ORDER BY numeric_id`, fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("query record scans: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec RecordScan
		if err := rows.Scan(&rec.NumericID, &rec.TypeTag, &rec.Name, &rec.NameOffset); err != nil {
			return nil, false, fmt.Errorf("scan record row: %w", err)
		}
		scan.Records = append(scan.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate record rows: %w", err)
	}
	return scan, true, nil
}

// Forget drops the cached scan for a fingerprint.
func (s *Store) Forget(ctx context.Context, fingerprint string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM containers WHERE fingerprint = ?", fingerprint); err != nil {
		return fmt.Errorf("forget scan: %w", err)
	}
	return nil
}

// ScanContainer builds a fresh scan of a loaded container by running the
// identity scanner over every record head.
func ScanContainer(c *container.Container, path, fingerprint string, window int) *ContainerScan {
	scan := &ContainerScan{
		Fingerprint:       fingerprint,
		Path:              path,
		StructuralVersion: int(c.StructuralVersion),
		EngineVersion:     c.EngineVersion,
		ScannedAt:         time.Now().UTC(),
	}
	for _, rec := range c.Records {
		m, ok := identity.Scan(rec.Data, window)
		if !ok {
			continue
		}
		scan.Records = append(scan.Records, RecordScan{
			NumericID:  rec.NumericID,
			TypeTag:    rec.TypeTag,
			Name:       m.Name,
			NameOffset: m.Offset,
		})
	}
	return scan
}
