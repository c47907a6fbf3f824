package review

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/claim-review/internal/domain/claim"
)

// Stage names a reviewer allocation slot
type Stage string

const (
	StageVerification Stage = "VERIFICATION"
	StageAdmission    Stage = "ADMISSION"
)

// InviteRequest issues an invitation to a claimant
type InviteRequest struct {
	Claimant claim.Claimant
	Category claim.Category
	Terms    claim.Terms
}

// SubmitRequest submits a claim. With ClaimID set it completes an invited
// claim and Terms is ignored; without it a new claim is created directly.
type SubmitRequest struct {
	ClaimID   string
	Claimant  claim.Claimant
	Category  claim.Category
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Documents []claim.DocumentRef
	Terms     claim.Terms
}

// VerificationResult is the manual verification outcome
type VerificationResult struct {
	Amount  decimal.NullDecimal
	Remarks string
}

// AdmissionReview is the detailed admission form. Without Finalize only the
// breakdown and remarks are saved and the stage stays open.
type AdmissionReview struct {
	Breakdown claim.Breakdown
	Amount    decimal.NullDecimal
	Remarks   string
	Finalize  bool
}

// AssignmentDecision is the verdict on an assignment row
type AssignmentDecision struct {
	Accepted bool
	Reason   string
}
