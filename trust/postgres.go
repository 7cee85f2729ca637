// Package trust persists provisioned root-of-trust hashes in Postgres. It is
// used by the spdm-responder provisioning command only; neither the engine
// nor the cert-operation capability consults it when verifying a chain.
package trust

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trust_anchors (
		root_hash    BYTEA PRIMARY KEY,
		hash_algo    SMALLINT NOT NULL,
		description  TEXT,
		provisioned_at TIMESTAMP DEFAULT NOW()
	);`
	_, err := s.db.Exec(schema)
	return err
}

// ProvisionRoot records a trusted root-of-trust hash.
func (s *Store) ProvisionRoot(ctx context.Context, rootHash []byte, hashAlgo uint8, description string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trust_anchors (root_hash, hash_algo, description) VALUES ($1, $2, $3)
		 ON CONFLICT (root_hash) DO NOTHING`,
		rootHash, hashAlgo, description)
	return err
}

// IsTrustedRoot reports whether rootHash has been provisioned.
func (s *Store) IsTrustedRoot(ctx context.Context, rootHash []byte) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trust_anchors WHERE root_hash = $1`, rootHash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) Close() error { return s.db.Close() }
