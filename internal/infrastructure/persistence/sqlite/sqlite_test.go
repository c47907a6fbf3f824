package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/ledger"
	"github.com/garyjia/claim-review/internal/domain/workflow"
	"github.com/garyjia/claim-review/pkg/database"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(database.Config{
		Path:         filepath.Join(t.TempDir(), "claims.db"),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newClaim(id string) *claim.Claim {
	line, _ := ledger.NewAmountLine(decimal.RequireFromString("5000000.50"))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &claim.Claim{
		ID:           id,
		Claimant:     claim.Claimant{ID: "acme", Name: "Acme Traders"},
		Category:     claim.CategoryOperational,
		Principal:    decimal.RequireFromString("4000000.50"),
		Interest:     decimal.NewFromInt(1_000_000),
		Documents:    []claim.DocumentRef{{ID: "d-1", Kind: claim.DocumentLedger, Name: "ledger.pdf"}},
		Terms:        claim.Terms{TwoStage: true, AIAssistanceOpted: true},
		Status:       workflow.StateVerificationPending,
		Amounts:      line,
		Verification: claim.VerificationRecord{Status: workflow.StatePending},
		Admission:    &claim.AdmissionRecord{Status: workflow.StatePending},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestClaimRepository_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewClaimRepository(db, zap.NewNop())
	ctx := context.Background()

	c := newClaim("c-1")
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, int64(1), c.Version)

	got, err := repo.GetByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.Amounts.AsPerSubmitter.Equal(c.Amounts.AsPerSubmitter))
	assert.False(t, got.Amounts.AsPerVerifier.Valid)
	require.NotNil(t, got.Admission)
	assert.Equal(t, workflow.StatePending, got.Admission.Status)
	assert.Equal(t, c.Documents, got.Documents)

	assert.Error(t, repo.Create(ctx, newClaim("c-1")))

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, claim.ErrNotFound)
}

func TestClaimRepository_OptimisticUpdate(t *testing.T) {
	db := openTestDB(t)
	repo := NewClaimRepository(db, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newClaim("c-1")))

	first, err := repo.GetByID(ctx, "c-1")
	require.NoError(t, err)
	stale, err := repo.GetByID(ctx, "c-1")
	require.NoError(t, err)

	first.Status = workflow.StateAdmissionPending
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	stale.Status = workflow.StateRejected
	err = repo.Update(ctx, stale)
	assert.ErrorIs(t, err, claim.ErrConcurrentUpdate)
	assert.Equal(t, int64(1), stale.Version)

	got, err := repo.GetByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateAdmissionPending, got.Status)

	missing := newClaim("nope")
	missing.Version = 1
	assert.ErrorIs(t, repo.Update(ctx, missing), claim.ErrNotFound)
}

func TestClaimRepository_List(t *testing.T) {
	db := openTestDB(t)
	repo := NewClaimRepository(db, zap.NewNop())
	ctx := context.Background()

	for _, id := range []string{"c-3", "c-1", "c-2"} {
		c := newClaim(id)
		if id == "c-2" {
			c.Status = workflow.StateAccepted
		}
		require.NoError(t, repo.Create(ctx, c))
	}

	all, err := repo.List(ctx, port.ClaimFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c-1", all[0].ID)

	pending, err := repo.List(ctx, port.ClaimFilter{Status: workflow.StateVerificationPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	page, err := repo.List(ctx, port.ClaimFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c-2", page[0].ID)
}

func sealed(t *testing.T, claimID string, prev *audit.Entry, comment string) audit.Entry {
	t.Helper()
	e, err := audit.Seal(audit.Entry{
		ID:        claimID + "-" + comment,
		ClaimID:   claimID,
		Action:    audit.ActionClaimVerification,
		Actioner:  audit.Actioner{Label: "Verifier", ID: "u-1", Name: "Vera"},
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC),
		Comment:   comment,
	}, prev)
	require.NoError(t, err)
	return e
}

func TestAuditRepository_AppendAndList(t *testing.T) {
	db := openTestDB(t)
	claims := NewClaimRepository(db, zap.NewNop())
	repo := NewAuditRepository(db, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, claims.Create(ctx, newClaim("c-1")))

	last, err := repo.Last(ctx, "c-1")
	require.NoError(t, err)
	assert.Nil(t, last)

	first := sealed(t, "c-1", nil, "one")
	second := sealed(t, "c-1", &first, "two")
	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	assert.ErrorIs(t, repo.Append(ctx, first), claim.ErrConcurrentUpdate)

	last, err = repo.Last(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last.Seq)

	entries, err := repo.ListByClaim(ctx, "c-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, first.Timestamp.Equal(entries[0].Timestamp))
	require.NoError(t, audit.VerifyChain(entries), "hashes survive the round trip")

	after, err := repo.ListByClaim(ctx, "c-1", 1, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "two", after[0].Comment)
}

func TestAuditRepository_AppendOnly(t *testing.T) {
	db := openTestDB(t)
	claims := NewClaimRepository(db, zap.NewNop())
	repo := NewAuditRepository(db, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, claims.Create(ctx, newClaim("c-1")))
	require.NoError(t, repo.Append(ctx, sealed(t, "c-1", nil, "one")))

	_, err := db.ExecContext(ctx, `UPDATE audit_entries SET comment = 'forged'`)
	assert.ErrorContains(t, err, "append-only")

	_, err = db.ExecContext(ctx, `DELETE FROM audit_entries`)
	assert.ErrorContains(t, err, "append-only")
}

func TestDB_WithTransactionRollsBack(t *testing.T) {
	db := openTestDB(t)
	repo := NewClaimRepository(db, zap.NewNop())
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, repo.Create(txCtx, newClaim("c-1")))
		// nested calls join the outer transaction
		return db.WithTransaction(txCtx, func(inner context.Context) error {
			_, err := repo.GetByID(inner, "c-1")
			require.NoError(t, err)
			return assert.AnError
		})
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = repo.GetByID(ctx, "c-1")
	assert.ErrorIs(t, err, claim.ErrNotFound)
}
