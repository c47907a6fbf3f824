package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/event"
)

func assigneeDetails() claim.AssigneeDetails {
	return claim.AssigneeDetails{
		Name:     "Beta Capital",
		Identity: claim.IdentityDocument{Type: "PAN", Number: "ABCDE1234F"},
		Bank: claim.BankDetails{
			AccountHolder: "Beta Capital",
			AccountNumber: "1234 5678 9012",
			RoutingCode:   "hdfc0001234",
			BankName:      "HDFC Bank",
		},
		ConfirmAccountNumber: "123456789012",
		AssignmentDate:       time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		Documents:            []claim.DocumentRef{{ID: "deed-1", Kind: claim.DocumentAssignmentDeed, Name: "deed.pdf"}},
	}
}

func (f *fixture) openRow(t *testing.T) (*claim.Claim, string) {
	t.Helper()
	c := f.submit(t, claim.Terms{})
	c, rowID, err := f.engine.CreateAssignmentRow(context.Background(), c.ID, coordinator)
	require.NoError(t, err)
	return c, rowID
}

func TestCreateAssignmentRow(t *testing.T) {
	f := newFixture(t)
	c, rowID := f.openRow(t)

	require.Len(t, c.Assignments, 1)
	row := c.Assignments[0]
	assert.Equal(t, rowID, row.ID)
	assert.Equal(t, claim.AssignmentDraft, row.Status)
	assert.Equal(t, "acme", row.Assignor.ID)

	entries := f.trail(t, c.ID)
	assert.Equal(t, audit.ActionUpdatesInInvite, entries[len(entries)-1].Action)
}

func TestCreateAssignmentRow_InvitedClaim(t *testing.T) {
	f := newFixture(t)
	invited, err := f.engine.Invite(context.Background(), InviteRequest{
		Claimant: claim.Claimant{ID: "acme", Name: "Acme Traders"},
	}, coordinator)
	require.NoError(t, err)

	_, _, err = f.engine.CreateAssignmentRow(context.Background(), invited.ID, coordinator)
	assert.ErrorIs(t, err, claim.ErrPrecondition)
}

func TestSaveAssignee_AccountMismatch(t *testing.T) {
	f := newFixture(t)
	c, rowID := f.openRow(t)
	before := f.trail(t, c.ID)

	details := assigneeDetails()
	details.Bank.AccountNumber = "1234"
	details.ConfirmAccountNumber = "5678"
	_, err := f.engine.SaveAssignee(context.Background(), c.ID, rowID, details, claimant)
	require.ErrorIs(t, err, claim.ErrAccountMismatch)
	assert.Equal(t, "account_mismatch", claim.Kind(err))

	got := f.state(t, c.ID)
	assert.Nil(t, got.Assignments[0].Assignee)
	assert.Equal(t, claim.AssignmentDraft, got.Assignments[0].Status)
	assert.Equal(t, before, f.trail(t, c.ID))
}

func TestSaveAssignee_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *claim.AssigneeDetails)
		field  string
	}{
		{"missing name", func(d *claim.AssigneeDetails) { d.Name = "" }, "name"},
		{"missing date", func(d *claim.AssigneeDetails) { d.AssignmentDate = time.Time{} }, "assignment_date"},
		{"short account", func(d *claim.AssigneeDetails) {
			d.Bank.AccountNumber = "12"
			d.ConfirmAccountNumber = "12"
		}, "bank.account_number"},
		{"bad routing code", func(d *claim.AssigneeDetails) { d.Bank.RoutingCode = "HDFC" }, "bank.routing_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c, rowID := f.openRow(t)
			details := assigneeDetails()
			tt.mutate(&details)

			_, err := f.engine.SaveAssignee(context.Background(), c.ID, rowID, details, claimant)
			var verr *claim.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestSaveAssignee_Stored(t *testing.T) {
	f := newFixture(t)
	c, rowID := f.openRow(t)

	got, err := f.engine.SaveAssignee(context.Background(), c.ID, rowID, assigneeDetails(), claimant)
	require.NoError(t, err)

	row := got.Assignments[0]
	assert.Equal(t, claim.AssignmentSaved, row.Status)
	require.NotNil(t, row.Assignee)
	assert.Equal(t, "123456789012", row.Assignee.Bank.AccountNumber)
	assert.Equal(t, "HDFC0001234", row.Assignee.Bank.RoutingCode)
	assert.Empty(t, row.Warnings)
	assert.Contains(t, f.dispatcher.types(), event.TypeAssigneeSaved)
}

func TestSaveAssignee_QualityIssuesAreWarnings(t *testing.T) {
	validator := &mockValidator{checkFn: func(_ context.Context, doc claim.DocumentRef) (*port.QualityReport, error) {
		if doc.ID == "blurry" {
			return &port.QualityReport{Acceptable: false, Issues: []string{"image too blurry"}}, nil
		}
		return nil, errors.New("vision service timeout")
	}}
	f := newFixture(t, WithDocumentValidator(validator))
	c, rowID := f.openRow(t)

	details := assigneeDetails()
	details.Documents = []claim.DocumentRef{
		{ID: "blurry", Kind: claim.DocumentIdentityProof, Name: "pan.jpg"},
		{ID: "other", Kind: claim.DocumentBankProof, Name: "cheque.jpg"},
	}
	got, err := f.engine.SaveAssignee(context.Background(), c.ID, rowID, details, claimant)
	require.NoError(t, err, "quality issues never block a save")

	row := got.Assignments[0]
	assert.Equal(t, claim.AssignmentPendingCorrection, row.Status)
	assert.Equal(t, []string{
		"pan.jpg: image too blurry",
		"cheque.jpg: quality check unavailable",
	}, row.Warnings)
}

func TestSaveAssignee_UnknownRow(t *testing.T) {
	f := newFixture(t)
	c, _ := f.openRow(t)

	_, err := f.engine.SaveAssignee(context.Background(), c.ID, "nope", assigneeDetails(), claimant)
	assert.ErrorIs(t, err, claim.ErrNotFound)
}

func TestDecideAssignment_Accept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, rowID := f.openRow(t)
	_, err := f.engine.SaveAssignee(ctx, c.ID, rowID, assigneeDetails(), claimant)
	require.NoError(t, err)

	got, err := f.engine.DecideAssignment(ctx, c.ID, rowID, AssignmentDecision{Accepted: true}, coordinator)
	require.NoError(t, err)

	assert.Equal(t, "Beta Capital", got.Claimant.Name)
	assert.Equal(t, []claim.Claimant{{ID: "acme", Name: "Acme Traders"}}, got.ClaimantHistory)
	assert.Equal(t, claim.AssignmentAccepted, got.Assignments[0].Status)
	require.NotNil(t, got.Assignments[0].Decision)
	assert.Equal(t, "u-coord", got.Assignments[0].Decision.DecidedBy)

	entries := f.trail(t, c.ID)
	assert.Equal(t, "Assignment accepted: Acme Traders → Beta Capital", entries[len(entries)-1].Comment)

	_, err = f.engine.DecideAssignment(ctx, c.ID, rowID, AssignmentDecision{Accepted: false, Reason: "late"}, coordinator)
	assert.ErrorIs(t, err, claim.ErrPrecondition)
}

func TestDecideAssignment_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, rowID := f.openRow(t)
	_, err := f.engine.SaveAssignee(ctx, c.ID, rowID, assigneeDetails(), claimant)
	require.NoError(t, err)

	_, err = f.engine.DecideAssignment(ctx, c.ID, rowID, AssignmentDecision{Accepted: false}, coordinator)
	require.ErrorIs(t, err, claim.ErrValidation, "rejection needs a reason")

	got, err := f.engine.DecideAssignment(ctx, c.ID, rowID, AssignmentDecision{Accepted: false, Reason: "deed unsigned"}, coordinator)
	require.NoError(t, err)
	assert.Equal(t, "Acme Traders", got.Claimant.Name)
	assert.Equal(t, claim.AssignmentRejected, got.Assignments[0].Status)
	assert.Equal(t, "deed unsigned", got.Assignments[0].Decision.Reason)
}

func TestDecideAssignment_NeedsSavedAssignee(t *testing.T) {
	f := newFixture(t)
	c, rowID := f.openRow(t)

	_, err := f.engine.DecideAssignment(context.Background(), c.ID, rowID, AssignmentDecision{Accepted: true}, coordinator)
	assert.ErrorIs(t, err, claim.ErrPrecondition)
}

func TestDecideAssignment_RowFromFormerOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, first := f.openRow(t)
	_, second, err := f.engine.CreateAssignmentRow(ctx, c.ID, coordinator)
	require.NoError(t, err)

	_, err = f.engine.SaveAssignee(ctx, c.ID, first, assigneeDetails(), claimant)
	require.NoError(t, err)
	gamma := assigneeDetails()
	gamma.Name = "Gamma Fund"
	_, err = f.engine.SaveAssignee(ctx, c.ID, second, gamma, claimant)
	require.NoError(t, err)

	_, err = f.engine.DecideAssignment(ctx, c.ID, first, AssignmentDecision{Accepted: true}, coordinator)
	require.NoError(t, err)

	_, err = f.engine.DecideAssignment(ctx, c.ID, second, AssignmentDecision{Accepted: true}, coordinator)
	require.ErrorIs(t, err, claim.ErrPrecondition)
	assert.ErrorContains(t, err, "claim now owned by Beta Capital")

	_, err = f.engine.SaveAssignee(ctx, c.ID, second, gamma, claimant)
	assert.ErrorIs(t, err, claim.ErrPrecondition)

	got, err := f.engine.GetState(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beta Capital", got.Claimant.Name)
	assert.Equal(t, []claim.Claimant{{ID: "acme", Name: "Acme Traders"}}, got.ClaimantHistory)
	assert.Equal(t, claim.AssignmentSaved, got.Assignments[1].Status)

	// the stale row can still be closed out
	got, err = f.engine.DecideAssignment(ctx, c.ID, second, AssignmentDecision{Accepted: false, Reason: "claim already assigned"}, coordinator)
	require.NoError(t, err)
	assert.Equal(t, claim.AssignmentRejected, got.Assignments[1].Status)
}

func TestSaveAssignee_UnknownClaim(t *testing.T) {
	calls := 0
	validator := &mockValidator{checkFn: func(context.Context, claim.DocumentRef) (*port.QualityReport, error) {
		calls++
		return &port.QualityReport{Acceptable: true}, nil
	}}
	f := newFixture(t, WithDocumentValidator(validator))

	details := assigneeDetails()
	details.ConfirmAccountNumber = "000000000000"
	_, err := f.engine.SaveAssignee(context.Background(), "missing", "row-1", details, claimant)
	assert.ErrorIs(t, err, claim.ErrNotFound)
	assert.Zero(t, calls)
}
