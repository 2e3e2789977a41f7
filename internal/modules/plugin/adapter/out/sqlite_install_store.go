package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cardadapter/internal/modules/plugin/domain"
	pluginout "cardadapter/internal/modules/plugin/port/out"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteInstallStore struct {
	db *sql.DB
}

func NewSQLiteInstallStore(dbPath string) (pluginout.InstallStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; concurrent installs are already serialized per location
	db.SetMaxOpenConns(1)
	store := &SQLiteInstallStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteInstallStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS installations (
  name TEXT PRIMARY KEY,
  version TEXT NOT NULL,
  runtime TEXT NOT NULL,
  location TEXT NOT NULL,
  binary TEXT,
  entry TEXT,
  sha256 TEXT,
  roles TEXT NOT NULL,
  installed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS installations_location ON installations(location);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create installations table: %w", err)
	}
	return nil
}

func (s *SQLiteInstallStore) Get(ctx context.Context, name string) (domain.Installation, bool, error) {
	row := s.db.QueryRowContext(ctx, selectInstallation+` WHERE name = ?`, name)
	inst, err := scanInstallation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Installation{}, false, nil
	}
	if err != nil {
		return domain.Installation{}, false, fmt.Errorf("get installation %s: %w", name, err)
	}
	return inst, true, nil
}

func (s *SQLiteInstallStore) FindByLocation(ctx context.Context, location string) (domain.Installation, bool, error) {
	row := s.db.QueryRowContext(ctx, selectInstallation+` WHERE location = ? ORDER BY installed_at DESC LIMIT 1`, location)
	inst, err := scanInstallation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Installation{}, false, nil
	}
	if err != nil {
		return domain.Installation{}, false, fmt.Errorf("find installation at %s: %w", location, err)
	}
	return inst, true, nil
}

func (s *SQLiteInstallStore) Put(ctx context.Context, inst domain.Installation) error {
	const stmt = `
INSERT INTO installations (name, version, runtime, location, binary, entry, sha256, roles, installed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  version=excluded.version,
  runtime=excluded.runtime,
  location=excluded.location,
  binary=excluded.binary,
  entry=excluded.entry,
  sha256=excluded.sha256,
  roles=excluded.roles,
  installed_at=excluded.installed_at;
`
	_, err := s.db.ExecContext(ctx, stmt,
		inst.Name,
		inst.Version,
		string(inst.Runtime),
		inst.Location,
		inst.Binary,
		inst.Entry,
		inst.SHA256,
		joinRoles(inst.Roles),
		inst.InstalledAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert installation: %w", err)
	}
	return nil
}

func (s *SQLiteInstallStore) List(ctx context.Context) ([]domain.Installation, error) {
	rows, err := s.db.QueryContext(ctx, selectInstallation+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list installations: %w", err)
	}
	defer rows.Close()
	out := []domain.Installation{}
	for rows.Next() {
		inst, err := scanInstallation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installation: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installations: %w", err)
	}
	return out, nil
}

func (s *SQLiteInstallStore) Close() error {
	return s.db.Close()
}

const selectInstallation = `SELECT name, version, runtime, location, binary, entry, sha256, roles, installed_at FROM installations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstallation(row rowScanner) (domain.Installation, error) {
	var (
		inst                        domain.Installation
		runtime, roles, installedAt string
		binary, entry, sha          sql.NullString
	)
	if err := row.Scan(&inst.Name, &inst.Version, &runtime, &inst.Location, &binary, &entry, &sha, &roles, &installedAt); err != nil {
		return domain.Installation{}, err
	}
	inst.Runtime = domain.Runtime(runtime)
	inst.Binary = binary.String
	inst.Entry = entry.String
	inst.SHA256 = sha.String
	inst.Roles = splitRoles(roles)
	ts, err := time.Parse(timeLayout, installedAt)
	if err != nil {
		return domain.Installation{}, fmt.Errorf("parse installed_at: %w", err)
	}
	inst.InstalledAt = ts
	return inst, nil
}

func joinRoles(roles []domain.Role) string {
	parts := make([]string, 0, len(roles))
	for _, role := range roles {
		parts = append(parts, string(role))
	}
	return strings.Join(parts, ",")
}

func splitRoles(raw string) []domain.Role {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]domain.Role, 0, len(parts))
	for _, part := range parts {
		out = append(out, domain.Role(part))
	}
	return out
}
