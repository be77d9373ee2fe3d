// pkg/apl/postgres.go
package apl

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"holiapp/pkg/logger"
)

// PostgresAPL implements APL backed by PostgreSQL.
type PostgresAPL struct {
	dbPool *pgxpool.Pool      // Connection pool to PostgreSQL
	log    *zap.SugaredLogger // Logger for diagnostic output
}

// NewPostgresAPL constructs a PostgreSQL-backed APL.
func NewPostgresAPL(dbPool *pgxpool.Pool, log *zap.SugaredLogger) *PostgresAPL {
	return &PostgresAPL{dbPool: dbPool, log: logger.OrNop(log)}
}

// EnsureSchema creates the credential table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS holipoly_auth_data (
  api_url text PRIMARY KEY,
  token text NOT NULL,
  app_id text NOT NULL,
  domain text,
  jwks text,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
-- Backfill / ensure new columns exist (for upgrades)
ALTER TABLE holipoly_auth_data ADD COLUMN IF NOT EXISTS domain text;
ALTER TABLE holipoly_auth_data ADD COLUMN IF NOT EXISTS jwks text;
`)
	return err
}

// Get fetches a record by its tenant API URL.
func (p *PostgresAPL) Get(ctx context.Context, apiURL string) (*AuthData, error) {
	row := p.dbPool.QueryRow(ctx, `SELECT api_url,token,app_id,COALESCE(domain,''),COALESCE(jwks,'') FROM holipoly_auth_data WHERE api_url=$1`, apiURL)
	var a AuthData
	if err := row.Scan(&a.APIURL, &a.Token, &a.AppID, &a.Domain, &a.JWKS); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres apl: get: %w", err)
	}
	return validOrNil(&a), nil
}

// Set upserts the record keyed by api_url.
func (p *PostgresAPL) Set(ctx context.Context, data AuthData) error {
	if !data.Valid() {
		return ErrInvalidAuthData
	}
	_, err := p.dbPool.Exec(ctx, `INSERT INTO holipoly_auth_data(api_url,token,app_id,domain,jwks)
	  VALUES ($1,$2,$3,$4,$5)
	  ON CONFLICT (api_url) DO UPDATE SET token=EXCLUDED.token,app_id=EXCLUDED.app_id,domain=EXCLUDED.domain,jwks=EXCLUDED.jwks,updated_at=NOW()`,
		data.APIURL, data.Token, data.AppID, data.Domain, data.JWKS)
	if err != nil {
		return fmt.Errorf("postgres apl: set: %w", err)
	}
	return nil
}

func (p *PostgresAPL) Delete(ctx context.Context, apiURL string) error {
	if _, err := p.dbPool.Exec(ctx, `DELETE FROM holipoly_auth_data WHERE api_url=$1`, apiURL); err != nil {
		return fmt.Errorf("postgres apl: delete: %w", err)
	}
	return nil
}

// GetAll lists every stored record.
func (p *PostgresAPL) GetAll(ctx context.Context) ([]AuthData, error) {
	rows, err := p.dbPool.Query(ctx, `SELECT api_url,token,app_id,COALESCE(domain,''),COALESCE(jwks,'') FROM holipoly_auth_data`)
	if err != nil {
		return nil, fmt.Errorf("postgres apl: list: %w", err)
	}
	defer rows.Close()
	var out []AuthData
	for rows.Next() {
		var a AuthData
		if err := rows.Scan(&a.APIURL, &a.Token, &a.AppID, &a.Domain, &a.JWKS); err != nil {
			return nil, fmt.Errorf("postgres apl: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres apl: rows: %w", err)
	}
	return filterValid(out), nil
}

func (p *PostgresAPL) IsReady(ctx context.Context) Readiness {
	if c := p.IsConfigured(ctx); !c.Configured {
		return Readiness{Err: c.Err}
	}
	if err := p.dbPool.Ping(ctx); err != nil {
		return Readiness{Err: fmt.Errorf("postgres apl: ping: %w", err)}
	}
	return ready()
}

func (p *PostgresAPL) IsConfigured(ctx context.Context) Configuration {
	if p.dbPool == nil {
		return notConfigured(fmt.Errorf("%w: DATABASE_URL is not set", ErrNotConfigured))
	}
	return configured()
}
