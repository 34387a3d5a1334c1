// Package repository stores the address cache in PostgreSQL.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/UnknownOlympus/realty-atlas/internal/models"
)

const (
	createTableQuery = `
		CREATE TABLE IF NOT EXISTS address_cache (
			address    TEXT PRIMARY KEY,
			latitude   DOUBLE PRECISION NULL,
			longitude  DOUBLE PRECISION NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	loadQuery = `
		SELECT
			address,
			latitude IS NOT NULL AND longitude IS NOT NULL AS resolved,
			COALESCE(latitude, 0),
			COALESCE(longitude, 0)
		FROM address_cache;
	`
	upsertQuery = `
		INSERT INTO address_cache (address, latitude, longitude, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (address) DO UPDATE
		SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			updated_at = EXCLUDED.updated_at;
	`
)

// Repository is a cache.Store backed by the address_cache table.
type Repository struct {
	db  Database
	log *slog.Logger
}

// NewRepository creates a new instance of Repository with the provided Database.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// EnsureSchema creates the address_cache table when it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create address_cache table: %w", err)
	}

	return nil
}

// Load returns every cached address. Rows with NULL coordinates are failed lookups.
func (r *Repository) Load(ctx context.Context) (map[string]models.Point, error) {
	rows, err := r.db.Query(ctx, loadQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query address cache: %w", err)
	}
	defer rows.Close()

	entries := map[string]models.Point{}
	for rows.Next() {
		var (
			addr     string
			resolved bool
			coords   models.Coordinates
		)
		if errScan := rows.Scan(&addr, &resolved, &coords.Latitude, &coords.Longitude); errScan != nil {
			return nil, fmt.Errorf("failed to scan address cache row: %w", errScan)
		}

		if resolved {
			entries[addr] = models.NewPoint(coords)
		} else {
			entries[addr] = models.Point{}
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.log.DebugContext(ctx, "Address cache rows loaded", "rows", len(entries))

	return entries, nil
}

// Save upserts the changed entries in one transaction, in address order.
// Unchanged entries are already stored.
func (r *Repository) Save(ctx context.Context, _, changed map[string]models.Point) error {
	if len(changed) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	addrs := make([]string, 0, len(changed))
	for addr := range changed {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)

	for _, addr := range addrs {
		point := changed[addr]
		if _, err = tx.Exec(ctx, upsertQuery, addr, point.Lat, point.Lng); err != nil {
			if errRollback := tx.Rollback(ctx); errRollback != nil {
				r.log.ErrorContext(ctx, "Failed to rollback address cache transaction", "error", errRollback)
			}
			return fmt.Errorf("failed to upsert address %q: %w", addr, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit address cache: %w", err)
	}

	return nil
}
