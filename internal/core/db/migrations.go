package db

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	embeddedmigrations "github.com/roshni-games/rulecore/migrations"
)

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID        string
	Checksum  string
	Applied   bool
	AppliedAt *time.Time
}

type migrationFile struct {
	ID       string
	SQL      string
	Checksum string
}

// MigrateUp runs all pending migrations against the database: selects the
// per-driver embedded set, validates checksums of already-applied files,
// and applies the rest in lexical order inside transactions.
func MigrateUp(database *sqlx.DB) error {
	migrationsFS, migrationsDir, err := migrationsFor(database)
	if err != nil {
		return err
	}

	if err := createMigrationsTable(database); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := parseMigrationFiles(migrationsFS, migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to parse migrations: %w", err)
	}

	applied, err := appliedMigrations(database)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}

	// SHA256 checksums detect modification of already-applied files
	for _, f := range files {
		if checksum, ok := applied[f.ID]; ok && checksum != f.Checksum {
			return fmt.Errorf("migration %s checksum mismatch: applied %s, embedded %s", f.ID, checksum, f.Checksum)
		}
	}

	for _, f := range files {
		if _, ok := applied[f.ID]; ok {
			continue
		}

		// Execution and recording share a transaction so a failed record
		// never leaves a half-applied migration behind
		tx, err := database.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", f.ID, err)
		}
		if _, err := tx.Exec(f.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", f.ID, err)
		}
		record := `INSERT INTO migrations (migration_id, checksum, applied_at) VALUES (?, ?, ?)`
		if _, err := tx.Exec(database.Rebind(record), f.ID, f.Checksum, time.Now().UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", f.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", f.ID, err)
		}
	}

	return nil
}

// MigrateStatus returns the status of all migrations, applied and pending.
func MigrateStatus(database *sqlx.DB) ([]MigrationStatus, error) {
	migrationsFS, migrationsDir, err := migrationsFor(database)
	if err != nil {
		return nil, err
	}

	if err := createMigrationsTable(database); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := parseMigrationFiles(migrationsFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	var rows []struct {
		MigrationID string    `db:"migration_id"`
		Checksum    string    `db:"checksum"`
		AppliedAt   time.Time `db:"applied_at"`
	}
	if err := database.Select(&rows, "SELECT migration_id, checksum, applied_at FROM migrations"); err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedAt := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		appliedAt[row.MigrationID] = row.AppliedAt
	}

	statuses := make([]MigrationStatus, 0, len(files))
	for _, f := range files {
		status := MigrationStatus{ID: f.ID, Checksum: f.Checksum}
		if at, ok := appliedAt[f.ID]; ok {
			status.Applied = true
			t := at
			status.AppliedAt = &t
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// migrationsFor selects the embedded migration set matching the driver.
func migrationsFor(database *sqlx.DB) (embed.FS, string, error) {
	switch database.DriverName() {
	case "sqlite3":
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case "postgres":
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", database.DriverName())
	}
}

func createMigrationsTable(database *sqlx.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)`)
	return err
}

// parseMigrationFiles loads embedded .sql files sorted by filename so
// numeric prefixes define application order.
func parseMigrationFiles(migrationsFS embed.FS, dir string) ([]migrationFile, error) {
	var files []migrationFile

	err := fs.WalkDir(migrationsFS, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		content, err := migrationsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, migrationFile{
			ID:       filepath.Base(path),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

func appliedMigrations(database *sqlx.DB) (map[string]string, error) {
	var rows []struct {
		MigrationID string `db:"migration_id"`
		Checksum    string `db:"checksum"`
	}
	if err := database.Select(&rows, "SELECT migration_id, checksum FROM migrations"); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.MigrationID] = row.Checksum
	}
	return out, nil
}
