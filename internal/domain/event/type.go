package event

// Type identifies the type of domain event
type Type string

const (
	TypeClaimInvited          Type = "claim.invited"
	TypeClaimSubmitted        Type = "claim.submitted"
	TypeClaimAllocated        Type = "claim.allocated"
	TypeVerificationCompleted Type = "claim.verification_completed"
	TypePlatformFigureApplied Type = "claim.platform_figure_applied"
	TypeClaimDecided          Type = "claim.decided"
	TypeAdmissionReopened     Type = "claim.admission_reopened"
	TypeAssigneeSaved         Type = "assignment.saved"
	TypeAssignmentDecided     Type = "assignment.decided"
)

// Payload keys shared by producers and consumers
const (
	KeyStage     = "stage"
	KeyAssignee  = "assignee"
	KeyStatus    = "status"
	KeyAmount    = "amount"
	KeyRowID     = "row_id"
	KeyAccepted  = "accepted"
	KeyReason    = "reason"
	KeyClaimant  = "claimant"
	KeyPrevOwner = "previous_owner"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeClaimInvited,
		TypeClaimSubmitted,
		TypeClaimAllocated,
		TypeVerificationCompleted,
		TypePlatformFigureApplied,
		TypeClaimDecided,
		TypeAdmissionReopened,
		TypeAssigneeSaved,
		TypeAssignmentDecided:
		return true
	default:
		return false
	}
}

// Notifiable reports whether the event should reach the notification service
func (t Type) Notifiable() bool {
	return t == TypeClaimAllocated || t == TypeAssignmentDecided
}
