package zoning

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/propmerge/internal/debug"
)

var _ Source = (*CachedSource)(nil)

// CachedSource decorates a Source with a Postgres zoning_cache table so
// repeat runs skip lookups for addresses already seen. The cache is
// advisory: read failures fall through to the inner source and write
// failures only log.
type CachedSource struct {
	db         *sql.DB
	inner      Source
	localDebug bool
}

// CacheStats describes the cache table contents.
type CacheStats struct {
	Entries     int
	LastFetched time.Time
}

func NewCachedSource(db *sql.DB, inner Source, localDebug bool) *CachedSource {
	return &CachedSource{db: db, inner: inner, localDebug: localDebug}
}

func (c *CachedSource) Name() string {
	return c.inner.Name() + "+cache"
}

// Lookup serves the whole cached corpus plus fresh entries for addresses
// with no exact cached key. The full table is loaded because cached keys
// are the service's address strings: any of them is a candidate for the
// normalized and fuzzy strategies, not just exact-key hits.
func (c *CachedSource) Lookup(ctx context.Context, addresses []string) (map[string]string, error) {
	cached, err := c.load(ctx)
	if err != nil {
		debug.Output(c.localDebug, "zoning cache read failed: %v", err)
		cached = make(map[string]string)
	}

	var misses []string
	for _, addr := range addresses {
		if _, ok := cached[addr]; !ok {
			misses = append(misses, addr)
		}
	}
	debug.Output(c.localDebug, "zoning cache: %d entries, %d misses", len(cached), len(misses))

	if len(misses) == 0 {
		return cached, nil
	}

	fresh, err := c.inner.Lookup(ctx, misses)
	if err != nil {
		if len(cached) > 0 {
			debug.Output(c.localDebug, "zoning source failed, serving cache only: %v", err)
			return cached, nil
		}
		return nil, err
	}

	if err := c.store(ctx, fresh); err != nil {
		debug.Output(c.localDebug, "zoning cache write failed: %v", err)
	}

	for k, v := range fresh {
		cached[k] = v
	}
	return cached, nil
}

// Forget removes the given addresses from the cache so the next run
// fetches them again.
func (c *CachedSource) Forget(ctx context.Context, addresses []string) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM zoning_cache WHERE address = ANY($1)`, pq.Array(addresses))
	if err != nil {
		return 0, fmt.Errorf("failed to evict cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Stats reports cache size and recency.
func (c *CachedSource) Stats(ctx context.Context) (CacheStats, error) {
	var s CacheStats
	var last sql.NullTime

	row := c.db.QueryRowContext(ctx,
		`SELECT count(*), max(fetched_at) FROM zoning_cache`)
	if err := row.Scan(&s.Entries, &last); err != nil {
		return CacheStats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	if last.Valid {
		s.LastFetched = last.Time
	}
	return s, nil
}

func (c *CachedSource) load(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT address, zoning FROM zoning_cache`)
	if err != nil {
		return nil, fmt.Errorf("failed to query zoning_cache: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]string)
	for rows.Next() {
		var addr, zone string
		if err := rows.Scan(&addr, &zone); err != nil {
			return nil, err
		}
		mapping[addr] = zone
	}
	return mapping, rows.Err()
}

func (c *CachedSource) store(ctx context.Context, mapping map[string]string) error {
	if len(mapping) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zoning_cache (address, zoning, fetched_at)
		VALUES ($1, $2, now())
		ON CONFLICT (address) DO UPDATE SET
			zoning = EXCLUDED.zoning,
			fetched_at = now()`)
	if err != nil {
		return fmt.Errorf("failed to prepare cache upsert: %w", err)
	}
	defer stmt.Close()

	for addr, zone := range mapping {
		if _, err := stmt.ExecContext(ctx, addr, zone); err != nil {
			return fmt.Errorf("failed to cache %q: %w", addr, err)
		}
	}

	return tx.Commit()
}
