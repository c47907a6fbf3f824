package claim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claim-review/internal/domain/ledger"
	"github.com/garyjia/claim-review/internal/domain/workflow"
)

func sampleClaim() *Claim {
	line, _ := ledger.NewAmountLine(decimal.NewFromInt(5_000_000))
	return &Claim{
		ID:        "c-1",
		Claimant:  Claimant{ID: "acme", Name: "Acme Traders"},
		Category:  CategoryFinancialSecured,
		Principal: decimal.NewFromInt(4_000_000),
		Interest:  decimal.NewFromInt(1_000_000),
		Documents: []DocumentRef{
			{ID: "d-1", Kind: DocumentLedger, Name: "ledger.pdf"},
			{ID: "d-2", Kind: DocumentAgreement, Name: "loan.pdf"},
		},
		Terms:        Terms{TwoStage: true},
		Status:       workflow.StateVerificationPending,
		Amounts:      line,
		Verification: VerificationRecord{Status: workflow.StatePending},
		Admission:    &AdmissionRecord{Status: workflow.StatePending},
	}
}

func TestClaim_ValidateSubmission(t *testing.T) {
	c := sampleClaim()
	require.NoError(t, c.ValidateSubmission())

	c.Category = ""
	c.Principal = decimal.Zero
	c.Documents = append(c.Documents, DocumentRef{Kind: DocumentInvoice})

	err := c.ValidateSubmission()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"category", "principal", "documents[2].id"}, verr.Fields)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClaim_ReconcilableDocuments(t *testing.T) {
	docs := sampleClaim().ReconcilableDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, "d-1", docs[0].ID)
}

func TestClaim_CheckInvariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Claim)
		ok     bool
	}{
		{"fresh claim", func(*Claim) {}, true},
		{"admission ahead of verification", func(c *Claim) {
			c.Admission.Status = workflow.StateOngoing
		}, false},
		{"admission on single-stage claim", func(c *Claim) {
			c.Terms.TwoStage = false
		}, false},
		{"verification completed without figure", func(c *Claim) {
			c.Verification.Status = workflow.StateCompleted
		}, false},
		{"decided without figure", func(c *Claim) {
			c.Status = workflow.StateAccepted
		}, false},
		{"decided with figure", func(c *Claim) {
			c.Verification.Status = workflow.StateCompleted
			require.NoError(t, c.Amounts.SetVerifier(decimal.NewFromInt(10), ledger.SourceManual, ""))
			c.Status = workflow.StateRejected
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sampleClaim()
			tt.mutate(c)
			err := c.CheckInvariants()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrPrecondition)
			}
		})
	}
}

func TestClaim_CloneIsDeep(t *testing.T) {
	c := sampleClaim()
	c.Assignments = []AssignmentRecord{{ID: "r-1", Assignee: &Assignee{Name: "Beta"}, Warnings: []string{"w"}}}

	cp := c.Clone()
	cp.Documents[0].Name = "changed"
	cp.Admission.Status = workflow.StateOngoing
	cp.Assignments[0].Assignee.Name = "Gamma"
	cp.Assignments[0].Warnings[0] = "x"

	assert.Equal(t, "ledger.pdf", c.Documents[0].Name)
	assert.Equal(t, workflow.StatePending, c.Admission.Status)
	assert.Equal(t, "Beta", c.Assignments[0].Assignee.Name)
	assert.Equal(t, "w", c.Assignments[0].Warnings[0])
}

func TestBreakdown(t *testing.T) {
	b := Breakdown{
		Principal:     decimal.NewFromInt(100),
		Interest:      decimal.NewFromInt(20),
		PenalInterest: decimal.NewFromInt(5),
		Disputed:      decimal.NewFromInt(15),
		SetOff:        decimal.NewFromInt(10),
	}
	assert.True(t, b.Admissible().Equal(decimal.NewFromInt(100)))
	assert.False(t, b.HasNegative())

	b.SetOff = decimal.NewFromInt(500)
	assert.True(t, b.Admissible().IsZero())

	b.Security = decimal.NewFromInt(-1)
	assert.True(t, b.HasNegative())
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{NewValidationError("x"), "validation"},
		{Preconditionf("nope"), "precondition"},
		{fmt.Errorf("wrap: %w", ErrNoPlatformFigure), "no_platform_figure"},
		{fmt.Errorf("wrap: %w", ErrNoVerifierAmount), "no_verifier_amount"},
		{ErrAccountMismatch, "account_mismatch"},
		{ErrAdvisorUnavailable, "advisor_unavailable"},
		{fmt.Errorf("claim x: %w", ErrNotFound), "not_found"},
		{ErrConcurrentUpdate, "concurrent_update"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestAssigneeDetails_Validate(t *testing.T) {
	err := AssigneeDetails{Name: "Beta"}.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "bank.account_number")
	assert.Contains(t, verr.Fields, "assignment_date")
	assert.NotContains(t, verr.Fields, "name")
}
