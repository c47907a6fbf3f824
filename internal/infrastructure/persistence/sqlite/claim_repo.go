package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *DB, logger *zap.Logger) *ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new claim at version 1
func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	c.Version = 1
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}

	query := `
		INSERT INTO claims (id, status, claimant_id, version, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.getExecutor(ctx).ExecContext(ctx, query,
		c.ID,
		string(c.Status),
		c.Claimant.ID,
		c.Version,
		string(data),
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("claim %s already exists", c.ID)
		}
		r.logger.Error("Failed to create claim", zap.String("claim_id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// GetByID loads a claim snapshot
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*claim.Claim, error) {
	query := `SELECT version, data FROM claims WHERE id = ?`

	var version int64
	var data string
	err := r.db.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: claim %s", claim.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.String("claim_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return decodeClaim(version, data)
}

// Update saves c if the stored version still equals c.Version and advances it
func (r *ClaimRepository) Update(ctx context.Context, c *claim.Claim) error {
	base := c.Version
	c.Version++
	data, err := json.Marshal(c)
	if err != nil {
		c.Version = base
		return fmt.Errorf("marshal claim: %w", err)
	}

	query := `
		UPDATE claims
		SET status = ?, claimant_id = ?, version = ?, data = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		string(c.Status),
		c.Claimant.ID,
		c.Version,
		string(data),
		formatTime(c.UpdatedAt),
		c.ID,
		base,
	)
	if err != nil {
		c.Version = base
		r.logger.Error("Failed to update claim", zap.String("claim_id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		c.Version = base
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		c.Version = base
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: claim %s saved from version %d", claim.ErrConcurrentUpdate, c.ID, base)
	}
	return nil
}

// List returns claims ordered by id
func (r *ClaimRepository) List(ctx context.Context, filter port.ClaimFilter) ([]*claim.Claim, error) {
	var where []string
	var args []interface{}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.ClaimantID != "" {
		where = append(where, "claimant_id = ?")
		args = append(args, filter.ClaimantID)
	}

	query := "SELECT version, data FROM claims"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var out []*claim.Claim
	for rows.Next() {
		var version int64
		var data string
		if err := rows.Scan(&version, &data); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		c, err := decodeClaim(version, data)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func decodeClaim(version int64, data string) (*claim.Claim, error) {
	var c claim.Claim
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("unmarshal claim: %w", err)
	}
	c.Version = version
	return &c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
