package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

const auditColumns = `claim_id, seq, id, action, actioner_label, actioner_id, actioner_name,
	timestamp, comment, prev_hash, hash`

// Append inserts entry, which must directly follow the claim's last entry
func (r *AuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	var last uint64
	err := r.db.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM audit_entries WHERE claim_id = ?`, entry.ClaimID,
	).Scan(&last)
	if err != nil {
		return fmt.Errorf("failed to read audit seq: %w", err)
	}
	if entry.Seq != last+1 {
		return fmt.Errorf("%w: audit seq %d, expected %d", claim.ErrConcurrentUpdate, entry.Seq, last+1)
	}

	query := `INSERT INTO audit_entries (` + auditColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.getExecutor(ctx).ExecContext(ctx, query,
		entry.ClaimID,
		entry.Seq,
		entry.ID,
		string(entry.Action),
		entry.Actioner.Label,
		entry.Actioner.ID,
		entry.Actioner.Name,
		formatTime(entry.Timestamp),
		entry.Comment,
		entry.PrevHash,
		entry.Hash,
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("%w: audit seq %d for claim %s", claim.ErrConcurrentUpdate, entry.Seq, entry.ClaimID)
		}
		r.logger.Error("Failed to append audit entry", zap.String("claim_id", entry.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Last returns the newest entry of the claim, or nil when there is none
func (r *AuditRepository) Last(ctx context.Context, claimID string) (*audit.Entry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries WHERE claim_id = ? ORDER BY seq DESC LIMIT 1`

	entry, err := scanEntry(r.db.getExecutor(ctx).QueryRowContext(ctx, query, claimID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last audit entry: %w", err)
	}
	return &entry, nil
}

// ListByClaim returns up to limit entries with seq greater than afterSeq
func (r *AuditRepository) ListByClaim(ctx context.Context, claimID string, afterSeq uint64, limit int) ([]audit.Entry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries
		WHERE claim_id = ? AND seq > ? ORDER BY seq LIMIT ?`

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, claimID, afterSeq, limit)
	if err != nil {
		r.logger.Error("Failed to list audit entries", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (audit.Entry, error) {
	var e audit.Entry
	var action, ts string
	err := s.Scan(
		&e.ClaimID,
		&e.Seq,
		&e.ID,
		&action,
		&e.Actioner.Label,
		&e.Actioner.ID,
		&e.Actioner.Name,
		&ts,
		&e.Comment,
		&e.PrevHash,
		&e.Hash,
	)
	if err != nil {
		return audit.Entry{}, err
	}
	e.Action = audit.Action(action)
	e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("parse audit timestamp %q: %w", ts, err)
	}
	return e, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
