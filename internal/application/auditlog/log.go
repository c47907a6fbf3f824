// Package auditlog appends and reads the per-claim audit trail.
package auditlog

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/pkg/utils"
)

const defaultPageSize = 100

// Log is the only writer of audit entries
type Log struct {
	repo     port.AuditRepository
	now      func() time.Time
	pageSize int
}

// Option configures a Log
type Option func(*Log)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// WithPageSize sets how many entries Query reads per repository call
func WithPageSize(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// New creates a Log over repo
func New(repo port.AuditRepository, opts ...Option) *Log {
	l := &Log{repo: repo, now: time.Now, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append seals d after the claim's newest entry and stores it. Callers hold
// the claim lock and run inside the command transaction.
func (l *Log) Append(ctx context.Context, claimID string, d audit.Draft) (audit.Entry, error) {
	if err := d.Validate(); err != nil {
		return audit.Entry{}, err
	}

	prev, err := l.repo.Last(ctx, claimID)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("load last audit entry: %w", err)
	}

	entry, err := audit.Seal(audit.Entry{
		ID:        utils.NewID(),
		ClaimID:   claimID,
		Action:    d.Action,
		Actioner:  d.Actioner,
		Timestamp: l.now(),
		Comment:   d.Comment,
	}, prev)
	if err != nil {
		return audit.Entry{}, err
	}

	if err := l.repo.Append(ctx, entry); err != nil {
		return audit.Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	return entry, nil
}

// Query returns the claim's entries ordered by timestamp then insertion.
// Pages are read lazily as the sequence is consumed; every range over the
// result starts again from the first entry.
func (l *Log) Query(ctx context.Context, claimID string) iter.Seq2[audit.Entry, error] {
	return func(yield func(audit.Entry, error) bool) {
		var after uint64
		for {
			page, err := l.repo.ListByClaim(ctx, claimID, after, l.pageSize)
			if err != nil {
				yield(audit.Entry{}, fmt.Errorf("list audit entries: %w", err))
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
				after = e.Seq
			}
			if len(page) < l.pageSize {
				return
			}
		}
	}
}

// Collect drains Query into a slice
func (l *Log) Collect(ctx context.Context, claimID string) ([]audit.Entry, error) {
	var out []audit.Entry
	for e, err := range l.Query(ctx, claimID) {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Verify checks the hash chain of a claim's trail
func (l *Log) Verify(ctx context.Context, claimID string) error {
	entries, err := l.Collect(ctx, claimID)
	if err != nil {
		return err
	}
	return audit.VerifyChain(entries)
}
