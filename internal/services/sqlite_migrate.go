package services

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// ErrMigrationChanged means an applied migration file no longer matches
// the checksum recorded when it ran.
var ErrMigrationChanged = errors.New("applied migration was modified")

// Migrations returns the schema files shipped with the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type migration struct {
	version  int
	name     string
	body     string
	checksum string
}

// Migrate brings the schema up to the newest NNN_name.sql file in fsys.
// Each pending file runs in its own transaction together with its
// schema_migrations row. Files already applied must be unchanged.
func Migrate(db *sql.DB, fsys fs.FS, log *zap.Logger) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			applied_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	pending, err := loadMigrations(fsys, log)
	if err != nil {
		return err
	}

	applied, err := appliedChecksums(db)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if sum, ok := applied[m.version]; ok {
			if sum != m.checksum {
				return fmt.Errorf("%w: %s", ErrMigrationChanged, m.name)
			}
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
		log.Info("applied migration", zap.Int("version", m.version), zap.String("name", m.name))
	}
	return nil
}

// loadMigrations reads every valid migration file ordered by version.
func loadMigrations(fsys fs.FS, log *zap.Logger) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	seen := make(map[int]string, len(names))
	out := make([]migration, 0, len(names))
	for _, name := range names {
		version, err := ParseMigrationVersion(name)
		if err != nil {
			log.Warn("skipping migration file", zap.String("file", name), zap.Error(err))
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, version)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(body)
		out = append(out, migration{
			version:  version,
			name:     name,
			body:     string(body),
			checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func appliedChecksums(db *sql.DB) (map[int]string, error) {
	rows, err := db.Query(`SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var (
			version int
			sum     string
		)
		if err := rows.Scan(&version, &sum); err != nil {
			return nil, err
		}
		applied[version] = sum
	}
	return applied, rows.Err()
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %s: %w", m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.body); err != nil {
		return fmt.Errorf("migration %s failed: %w", m.name, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)`,
		m.version, m.name, m.checksum, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("migration %s: recording: %w", m.name, err)
	}
	return tx.Commit()
}

// ParseMigrationVersion reads N from "NNN_name.sql".
func ParseMigrationVersion(filename string) (int, error) {
	base := path.Base(filename)

	name, ok := strings.CutSuffix(base, ".sql")
	if !ok {
		return 0, fmt.Errorf("migration %q: not a .sql file", base)
	}

	prefix, _, ok := strings.Cut(name, "_")
	if !ok || prefix == "" {
		return 0, fmt.Errorf("migration %q: missing version prefix", base)
	}

	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, fmt.Errorf("migration %q: invalid version number", base)
	}
	return version, nil
}
