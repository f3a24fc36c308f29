package store

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phcore/validator/pkg/logger"
)

// Querier is the subset of *pgxpool.Pool used to read resources.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectResources = `SELECT resource_type, id, url, content
FROM conformance_resources
ORDER BY resource_type, id`

// NewPool opens and pings a Postgres connection pool.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

// LoadPostgres loads every row of the conformance_resources table. The
// content column holds the resource JSON; resource_type and id columns
// take precedence over the values inside it.
func (s *Store) LoadPostgres(ctx context.Context, db Querier) (int, error) {
	rows, err := db.Query(ctx, selectResources)
	if err != nil {
		return 0, errors.Wrap(err, "query conformance resources")
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			kind, id string
			url      *string
			raw      []byte
		)
		if err := rows.Scan(&kind, &id, &url, &raw); err != nil {
			return count, errors.Wrap(err, "scan conformance resource")
		}

		var content map[string]any
		if err := json.Unmarshal(raw, &content); err != nil || content == nil {
			logger.Warn("skipping %s/%s: content is not a JSON object", kind, id)
			continue
		}
		content["resourceType"] = kind
		content["id"] = id
		if url != nil && *url != "" {
			content["url"] = *url
		}

		if _, ok := s.Add(content, raw, "postgres:"+kind+"/"+id); ok {
			count++
		}
	}
	if err := rows.Err(); err != nil {
		return count, errors.Wrap(err, "iterate conformance resources")
	}
	logger.Debug("loaded %d resources from postgres", count)
	return count, nil
}
