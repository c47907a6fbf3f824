// Package claim models a financial claim against an entity in insolvency and
// the review records hanging off it.
package claim

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/claim-review/internal/domain/ledger"
	"github.com/garyjia/claim-review/internal/domain/workflow"
)

// Terms are fixed when the invitation is issued
type Terms struct {
	TwoStage          bool `json:"two_stage"`
	AIAssistanceOpted bool `json:"ai_assistance_opted"`
}

// Claimant is a party that owns or owned the claim
type Claimant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Allocation holds the reviewers assigned to each stage. Empty means unallocated.
type Allocation struct {
	Verifier string `json:"verifier,omitempty"`
	Admittor string `json:"admittor,omitempty"`
}

// Claim is the aggregate every review command operates on
type Claim struct {
	ID              string          `json:"id"`
	Claimant        Claimant        `json:"claimant"`
	ClaimantHistory []Claimant      `json:"claimant_history,omitempty"`
	Category        Category        `json:"category"`
	Principal       decimal.Decimal `json:"principal"`
	Interest        decimal.Decimal `json:"interest"`
	Documents       []DocumentRef   `json:"documents,omitempty"`
	Terms           Terms           `json:"terms"`
	Status          workflow.State  `json:"status"`

	Amounts      ledger.AmountLine  `json:"amounts"`
	Verification VerificationRecord `json:"verification"`
	Admission    *AdmissionRecord   `json:"admission,omitempty"`
	Assignments  []AssignmentRecord `json:"assignments,omitempty"`
	Allocation   Allocation         `json:"allocation"`

	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

// ClaimedAmount is principal plus interest
func (c *Claim) ClaimedAmount() decimal.Decimal {
	return c.Principal.Add(c.Interest)
}

// IsSubmitted reports whether the claim has left the invitation phase
func (c *Claim) IsSubmitted() bool {
	return c.Status != workflow.StateInvited && c.Status != ""
}

// ReconcilableDocuments returns the documents the advisor can work from
func (c *Claim) ReconcilableDocuments() []DocumentRef {
	var out []DocumentRef
	for _, d := range c.Documents {
		if d.Kind.Reconcilable() {
			out = append(out, d)
		}
	}
	return out
}

// FindAssignment returns the index of the assignment row with id, or -1
func (c *Claim) FindAssignment(id string) int {
	return slices.IndexFunc(c.Assignments, func(a AssignmentRecord) bool { return a.ID == id })
}

// ValidateSubmission lists missing or malformed submitter input
func (c *Claim) ValidateSubmission() error {
	var fields []string
	if strings.TrimSpace(c.Claimant.ID) == "" {
		fields = append(fields, "claimant.id")
	}
	if strings.TrimSpace(c.Claimant.Name) == "" {
		fields = append(fields, "claimant.name")
	}
	if !c.Category.IsValid() {
		fields = append(fields, "category")
	}
	if !c.Principal.IsPositive() {
		fields = append(fields, "principal")
	}
	if c.Interest.IsNegative() {
		fields = append(fields, "interest")
	}
	if len(c.Documents) == 0 {
		fields = append(fields, "documents")
	}
	for i, d := range c.Documents {
		if strings.TrimSpace(d.ID) == "" {
			fields = append(fields, "documents["+strconv.Itoa(i)+"].id")
		}
	}
	if len(fields) > 0 {
		return NewValidationError(fields...)
	}
	return nil
}

// CheckInvariants verifies the cross-record rules that hold after every
// successful command.
func (c *Claim) CheckInvariants() error {
	if c.Admission != nil && c.Admission.Status != workflow.StatePending &&
		c.Verification.Status != workflow.StateCompleted {
		return Preconditionf("admission %s while verification %s", c.Admission.Status, c.Verification.Status)
	}
	if c.Admission != nil && !c.Terms.TwoStage {
		return Preconditionf("admission record on a single-stage claim")
	}
	if c.Verification.Status == workflow.StateCompleted && !c.Amounts.AsPerVerifier.Valid {
		return Preconditionf("verification completed without verifier figure")
	}
	if c.Status.IsTerminal() && !c.Amounts.Final().Valid {
		return Preconditionf("claim decided without a final figure")
	}
	return nil
}

// Clone returns a deep copy safe to mutate independently
func (c *Claim) Clone() *Claim {
	out := *c
	out.ClaimantHistory = slices.Clone(c.ClaimantHistory)
	out.Documents = slices.Clone(c.Documents)
	out.Amounts = c.Amounts.Clone()
	out.Verification = c.Verification.clone()
	if c.Admission != nil {
		adm := c.Admission.clone()
		out.Admission = &adm
	}
	if c.Assignments != nil {
		out.Assignments = make([]AssignmentRecord, len(c.Assignments))
		for i, a := range c.Assignments {
			out.Assignments[i] = a.clone()
		}
	}
	out.SubmittedAt = cloneTime(c.SubmittedAt)
	out.DecidedAt = cloneTime(c.DecidedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
