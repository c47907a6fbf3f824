// Package service holds the subscribers that react to committed claim events:
// participant notifications, admission reports and the external event feed.
package service

import (
	"context"

	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ClaimReader is the read side of the review engine
type ClaimReader interface {
	GetState(ctx context.Context, claimID string) (*claim.Claim, error)
	AuditTrail(ctx context.Context, claimID string) ([]audit.Entry, error)
}
