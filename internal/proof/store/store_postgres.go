package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"credbridge/internal/proof/models"
	"credbridge/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS proof_requests (
	proof_id             TEXT PRIMARY KEY,
	session_id           TEXT NOT NULL,
	connection_id        TEXT NOT NULL,
	org_id               TEXT NOT NULL DEFAULT '',
	requested_attributes JSONB NOT NULL,
	comment              TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL,
	verified             BOOLEAN NOT NULL DEFAULT FALSE,
	presented_attributes JSONB,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL,
	verified_at          TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS proof_requests_session_created_idx
	ON proof_requests (session_id, created_at DESC);
`

const selectColumns = `proof_id, session_id, connection_id, org_id, requested_attributes, comment,
	status, verified, presented_attributes, created_at, updated_at, verified_at`

// PostgresStore persists proof requests in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed proof store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the proof_requests table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure proof schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, proof *models.ProofRequest) error {
	requested, presented, err := encodeAttributes(proof)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO proof_requests (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (proof_id) DO NOTHING`,
		proof.ProofID, proof.SessionID, proof.ConnectionID, proof.OrgID, requested, proof.Comment,
		string(proof.Status), proof.Verified, presented, proof.CreatedAt, proof.UpdatedAt, nullTime(proof),
	)
	if err != nil {
		return fmt.Errorf("insert proof request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, proof *models.ProofRequest) error {
	requested, presented, err := encodeAttributes(proof)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE proof_requests SET
			session_id = $2, connection_id = $3, org_id = $4, requested_attributes = $5,
			comment = $6, status = $7, verified = $8, presented_attributes = $9,
			updated_at = $10, verified_at = $11
		WHERE proof_id = $1`,
		proof.ProofID, proof.SessionID, proof.ConnectionID, proof.OrgID, requested,
		proof.Comment, string(proof.Status), proof.Verified, presented,
		proof.UpdatedAt, nullTime(proof),
	)
	if err != nil {
		return fmt.Errorf("update proof request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update proof request: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, proofID string) (*models.ProofRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM proof_requests WHERE proof_id = $1`, proofID)
	return scanProof(row)
}

func (s *PostgresStore) FindLatestBySession(ctx context.Context, sessionID string) (*models.ProofRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+` FROM proof_requests
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, sessionID)
	return scanProof(row)
}

func scanProof(row *sql.Row) (*models.ProofRequest, error) {
	var (
		p          models.ProofRequest
		status     string
		requested  []byte
		presented  []byte
		verifiedAt sql.NullTime
	)
	err := row.Scan(&p.ProofID, &p.SessionID, &p.ConnectionID, &p.OrgID, &requested, &p.Comment,
		&status, &p.Verified, &presented, &p.CreatedAt, &p.UpdatedAt, &verifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan proof request: %w", err)
	}
	p.Status = models.Status(status)
	if err := json.Unmarshal(requested, &p.RequestedAttributes); err != nil {
		return nil, fmt.Errorf("unmarshal requested attributes: %w", err)
	}
	if len(presented) > 0 {
		if err := json.Unmarshal(presented, &p.PresentedAttributes); err != nil {
			return nil, fmt.Errorf("unmarshal presented attributes: %w", err)
		}
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		p.VerifiedAt = &t
	}
	return &p, nil
}

// encodeAttributes renders the JSONB columns as text; lib/pq would send a
// []byte parameter as bytea. presented is nil (SQL NULL) until verification.
func encodeAttributes(p *models.ProofRequest) (requested string, presented any, err error) {
	raw, err := json.Marshal(p.RequestedAttributes)
	if err != nil {
		return "", nil, fmt.Errorf("marshal requested attributes: %w", err)
	}
	requested = string(raw)
	if p.PresentedAttributes != nil {
		raw, err = json.Marshal(p.PresentedAttributes)
		if err != nil {
			return "", nil, fmt.Errorf("marshal presented attributes: %w", err)
		}
		presented = string(raw)
	}
	return requested, presented, nil
}

func nullTime(p *models.ProofRequest) sql.NullTime {
	if p.VerifiedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p.VerifiedAt, Valid: true}
}
