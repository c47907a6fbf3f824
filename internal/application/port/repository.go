package port

import (
	"context"

	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/workflow"
)

// ClaimFilter narrows a claim listing
type ClaimFilter struct {
	Status     workflow.State
	ClaimantID string
	Limit      int
	Offset     int
}

// ClaimRepository persists claim aggregates.
// GetByID returns claim.ErrNotFound for unknown ids. Update saves only when the
// stored version equals c.Version, then increments c.Version; a stale save
// returns claim.ErrConcurrentUpdate.
type ClaimRepository interface {
	Create(ctx context.Context, c *claim.Claim) error
	GetByID(ctx context.Context, id string) (*claim.Claim, error)
	Update(ctx context.Context, c *claim.Claim) error
	List(ctx context.Context, filter ClaimFilter) ([]*claim.Claim, error)
}

// AuditRepository stores sealed audit entries. It has no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry audit.Entry) error

	// Last returns the newest entry of a claim, or nil when it has none
	Last(ctx context.Context, claimID string) (*audit.Entry, error)

	// ListByClaim returns up to limit entries with Seq > afterSeq, ordered by
	// timestamp then seq
	ListByClaim(ctx context.Context, claimID string, afterSeq uint64, limit int) ([]audit.Entry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
