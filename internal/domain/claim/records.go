package claim

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/claim-review/internal/domain/workflow"
)

// VerificationAction is the path by which verification was taken up
type VerificationAction string

const (
	VerificationActionNone           VerificationAction = ""
	VerificationActionVerify         VerificationAction = "VERIFY"
	VerificationActionAcceptPlatform VerificationAction = "ACCEPT_PLATFORM"
)

// AdmissionAction is the path by which admission was taken up
type AdmissionAction string

const (
	AdmissionActionNone                 AdmissionAction = ""
	AdmissionActionAcceptVerifierFigure AdmissionAction = "ACCEPT_VERIFIER_FIGURE"
	AdmissionActionRecheck              AdmissionAction = "RECHECK"
)

// VerificationRecord tracks the verification stage. Figures and remarks live
// on the claim's amount line.
type VerificationRecord struct {
	Status      workflow.State     `json:"status"`
	Action      VerificationAction `json:"action"`
	CompletedBy string             `json:"completed_by,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

func (r VerificationRecord) clone() VerificationRecord {
	r.CompletedAt = cloneTime(r.CompletedAt)
	return r
}

// Breakdown is the detailed admission review across sub-ledgers
type Breakdown struct {
	Security      decimal.Decimal `json:"security"`
	Principal     decimal.Decimal `json:"principal"`
	Interest      decimal.Decimal `json:"interest"`
	PenalInterest decimal.Decimal `json:"penal_interest"`
	Disputed      decimal.Decimal `json:"disputed"`
	SetOff        decimal.Decimal `json:"set_off"`
}

// Admissible is principal plus interest and penal interest, less disputed and
// set-off amounts, floored at zero
func (b Breakdown) Admissible() decimal.Decimal {
	total := b.Principal.Add(b.Interest).Add(b.PenalInterest).Sub(b.Disputed).Sub(b.SetOff)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// HasNegative reports whether any sub-ledger is below zero
func (b Breakdown) HasNegative() bool {
	for _, v := range []decimal.Decimal{b.Security, b.Principal, b.Interest, b.PenalInterest, b.Disputed, b.SetOff} {
		if v.IsNegative() {
			return true
		}
	}
	return false
}

// AdmissionRecord tracks the admission stage of a two-stage claim
type AdmissionRecord struct {
	Status      workflow.State  `json:"status"`
	Action      AdmissionAction `json:"action"`
	Breakdown   *Breakdown      `json:"breakdown,omitempty"`
	Remarks     string          `json:"remarks,omitempty"`
	Rounds      int             `json:"rounds"`
	CompletedBy string          `json:"completed_by,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func (r AdmissionRecord) clone() AdmissionRecord {
	if r.Breakdown != nil {
		b := *r.Breakdown
		r.Breakdown = &b
	}
	r.CompletedAt = cloneTime(r.CompletedAt)
	return r
}
