package claim

import (
	"slices"
	"strings"
	"time"
)

// AssignmentStatus is the progress of one assignment row
type AssignmentStatus string

const (
	AssignmentDraft             AssignmentStatus = "DRAFT"
	AssignmentSaved             AssignmentStatus = "SAVED"
	AssignmentPendingCorrection AssignmentStatus = "PENDING_CORRECTION"
	AssignmentAccepted          AssignmentStatus = "ACCEPTED"
	AssignmentRejected          AssignmentStatus = "REJECTED"
)

// Decided reports whether the row has a final decision
func (s AssignmentStatus) Decided() bool {
	return s == AssignmentAccepted || s == AssignmentRejected
}

// IdentityDocument identifies the assignee
type IdentityDocument struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// BankDetails is where the assignee is paid
type BankDetails struct {
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
	RoutingCode   string `json:"routing_code"`
	BankName      string `json:"bank_name,omitempty"`
}

// AssigneeDetails is the SaveAssignee input. ConfirmAccountNumber is only
// compared, never stored.
type AssigneeDetails struct {
	Name                 string           `json:"name"`
	Identity             IdentityDocument `json:"identity"`
	Bank                 BankDetails      `json:"bank"`
	ConfirmAccountNumber string           `json:"confirm_account_number"`
	AssignmentDate       time.Time        `json:"assignment_date"`
	Documents            []DocumentRef    `json:"documents"`
}

// Validate lists missing assignee fields
func (d AssigneeDetails) Validate() error {
	var fields []string
	required := []struct {
		name  string
		value string
	}{
		{"name", d.Name},
		{"identity.type", d.Identity.Type},
		{"identity.number", d.Identity.Number},
		{"bank.account_holder", d.Bank.AccountHolder},
		{"bank.account_number", d.Bank.AccountNumber},
		{"bank.routing_code", d.Bank.RoutingCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields = append(fields, r.name)
		}
	}
	if d.AssignmentDate.IsZero() {
		fields = append(fields, "assignment_date")
	}
	if len(fields) > 0 {
		return NewValidationError(fields...)
	}
	return nil
}

// Assignee is the stored form of AssigneeDetails
type Assignee struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Identity  IdentityDocument `json:"identity"`
	Bank      BankDetails      `json:"bank"`
	Documents []DocumentRef    `json:"documents,omitempty"`
}

// Decision is the final call on an assignment row
type Decision struct {
	Accepted  bool      `json:"accepted"`
	Reason    string    `json:"reason,omitempty"`
	DecidedBy string    `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
}

// AssignmentRecord re-attributes the claim from Assignor to Assignee
type AssignmentRecord struct {
	ID             string           `json:"id"`
	Assignor       Claimant         `json:"assignor"`
	Assignee       *Assignee        `json:"assignee,omitempty"`
	AssignmentDate time.Time        `json:"assignment_date,omitzero"`
	Status         AssignmentStatus `json:"status"`
	Warnings       []string         `json:"warnings,omitempty"`
	Decision       *Decision        `json:"decision,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func (a AssignmentRecord) clone() AssignmentRecord {
	if a.Assignee != nil {
		as := *a.Assignee
		as.Documents = slices.Clone(a.Assignee.Documents)
		a.Assignee = &as
	}
	a.Warnings = slices.Clone(a.Warnings)
	if a.Decision != nil {
		d := *a.Decision
		a.Decision = &d
	}
	return a
}
