// Package memory is an in-process claim store with buffered transactions.
// Writes made inside WithTransaction stay private to the transaction until
// commit, where versions and audit sequences are re-checked.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

type contextKey string

const txKey contextKey = "memory-tx"

// Store holds claims and audit entries
type Store struct {
	mu     sync.RWMutex
	claims map[string]*claim.Claim
	audit  map[string][]audit.Entry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		claims: make(map[string]*claim.Claim),
		audit:  make(map[string][]audit.Entry),
	}
}

// Claims returns the store's ClaimRepository view
func (s *Store) Claims() *ClaimRepository { return &ClaimRepository{store: s} }

// Audit returns the store's AuditRepository view
func (s *Store) Audit() *AuditRepository { return &AuditRepository{store: s} }

type pendingClaim struct {
	claim       *claim.Claim
	baseVersion int64 // 0 for creates
}

type txState struct {
	claims map[string]*pendingClaim
	order  []string
	audit  map[string][]audit.Entry
}

func extractTx(ctx context.Context) *txState {
	if tx, ok := ctx.Value(txKey).(*txState); ok {
		return tx
	}
	return nil
}

// WithTransaction runs fn with a private write buffer and commits it
// atomically. Nested calls join the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if extractTx(ctx) != nil {
		return fn(ctx)
	}

	tx := &txState{
		claims: make(map[string]*pendingClaim),
		audit:  make(map[string][]audit.Entry),
	}
	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range tx.order {
		p := tx.claims[id]
		current, exists := s.claims[id]
		switch {
		case p.baseVersion == 0 && exists:
			return fmt.Errorf("claim %s already exists", id)
		case p.baseVersion != 0 && (!exists || current.Version != p.baseVersion):
			return fmt.Errorf("%w: claim %s", claim.ErrConcurrentUpdate, id)
		}
	}
	for claimID, entries := range tx.audit {
		if want := lastSeq(s.audit[claimID]) + 1; entries[0].Seq != want {
			return fmt.Errorf("%w: audit seq for claim %s", claim.ErrConcurrentUpdate, claimID)
		}
	}

	for _, id := range tx.order {
		s.claims[id] = tx.claims[id].claim
	}
	for claimID, entries := range tx.audit {
		s.audit[claimID] = append(s.audit[claimID], entries...)
	}
	return nil
}

func lastSeq(entries []audit.Entry) uint64 {
	if len(entries) == 0 {
		return 0
	}
	return entries[len(entries)-1].Seq
}

// ClaimRepository implements port.ClaimRepository over a Store
type ClaimRepository struct {
	store *Store
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)

func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	if _, err := r.GetByID(ctx, c.ID); err == nil {
		return fmt.Errorf("claim %s already exists", c.ID)
	}
	c.Version = 1
	stored := c.Clone()

	if tx := extractTx(ctx); tx != nil {
		tx.put(stored, 0)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.claims[c.ID]; exists {
		return fmt.Errorf("claim %s already exists", c.ID)
	}
	r.store.claims[c.ID] = stored
	return nil
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*claim.Claim, error) {
	if tx := extractTx(ctx); tx != nil {
		if p, ok := tx.claims[id]; ok {
			return p.claim.Clone(), nil
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	c, ok := r.store.claims[id]
	if !ok {
		return nil, fmt.Errorf("%w: claim %s", claim.ErrNotFound, id)
	}
	return c.Clone(), nil
}

func (r *ClaimRepository) Update(ctx context.Context, c *claim.Claim) error {
	current, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if current.Version != c.Version {
		return fmt.Errorf("%w: claim %s at version %d, saved from %d", claim.ErrConcurrentUpdate, c.ID, current.Version, c.Version)
	}

	base := c.Version
	c.Version++
	stored := c.Clone()

	if tx := extractTx(ctx); tx != nil {
		if p, ok := tx.claims[c.ID]; ok {
			base = p.baseVersion
		}
		tx.put(stored, base)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.claims[c.ID].Version != base {
		c.Version = base
		return fmt.Errorf("%w: claim %s", claim.ErrConcurrentUpdate, c.ID)
	}
	r.store.claims[c.ID] = stored
	return nil
}

func (r *ClaimRepository) List(ctx context.Context, filter port.ClaimFilter) ([]*claim.Claim, error) {
	r.store.mu.RLock()
	var out []*claim.Claim
	for _, c := range r.store.claims {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.ClaimantID != "" && c.Claimant.ID != filter.ClaimantID {
			continue
		}
		out = append(out, c.Clone())
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (tx *txState) put(c *claim.Claim, base int64) {
	if _, ok := tx.claims[c.ID]; !ok {
		tx.order = append(tx.order, c.ID)
	}
	tx.claims[c.ID] = &pendingClaim{claim: c, baseVersion: base}
}

// AuditRepository implements port.AuditRepository over a Store
type AuditRepository struct {
	store *Store
}

var _ port.AuditRepository = (*AuditRepository)(nil)

func (r *AuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	last, err := r.Last(ctx, entry.ClaimID)
	if err != nil {
		return err
	}
	want := uint64(1)
	if last != nil {
		want = last.Seq + 1
	}
	if entry.Seq != want {
		return fmt.Errorf("%w: audit seq %d, expected %d", claim.ErrConcurrentUpdate, entry.Seq, want)
	}

	if tx := extractTx(ctx); tx != nil {
		tx.audit[entry.ClaimID] = append(tx.audit[entry.ClaimID], entry)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if lastSeq(r.store.audit[entry.ClaimID])+1 != entry.Seq {
		return fmt.Errorf("%w: audit seq %d", claim.ErrConcurrentUpdate, entry.Seq)
	}
	r.store.audit[entry.ClaimID] = append(r.store.audit[entry.ClaimID], entry)
	return nil
}

func (r *AuditRepository) Last(ctx context.Context, claimID string) (*audit.Entry, error) {
	if tx := extractTx(ctx); tx != nil {
		if pending := tx.audit[claimID]; len(pending) > 0 {
			e := pending[len(pending)-1]
			return &e, nil
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	entries := r.store.audit[claimID]
	if len(entries) == 0 {
		return nil, nil
	}
	e := entries[len(entries)-1]
	return &e, nil
}

// ListByClaim reads committed entries only
func (r *AuditRepository) ListByClaim(ctx context.Context, claimID string, afterSeq uint64, limit int) ([]audit.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := r.store.audit[claimID]
	start := sort.Search(len(entries), func(i int) bool { return entries[i].Seq > afterSeq })
	end := len(entries)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	out := make([]audit.Entry, end-start)
	copy(out, entries[start:end])
	return out, nil
}
