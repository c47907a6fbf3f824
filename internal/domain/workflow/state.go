package workflow

// State is a node in one of the review state machines. Claim lifecycle
// states and stage states share the type so one builder serves both.
type State string

// Claim lifecycle states
const (
	StateInvited             State = "INVITED"
	StateSubmitted           State = "SUBMITTED"
	StateAllocationPending   State = "ALLOCATION_PENDING"
	StateVerificationPending State = "VERIFICATION_PENDING"
	StateAdmissionPending    State = "ADMISSION_PENDING"
	StateAccepted            State = "ACCEPTED"
	StateRejected            State = "REJECTED"
)

// Stage states, used by verification and admission records
const (
	StatePending   State = "PENDING"
	StateOngoing   State = "ONGOING"
	StateCompleted State = "COMPLETED"
)

var validStates = map[State]bool{
	StateInvited:             true,
	StateSubmitted:           true,
	StateAllocationPending:   true,
	StateVerificationPending: true,
	StateAdmissionPending:    true,
	StateAccepted:            true,
	StateRejected:            true,
	StatePending:             true,
	StateOngoing:             true,
	StateCompleted:           true,
}

// terminalStates hold a decision. Only an admission recheck reopens them.
var terminalStates = map[State]bool{
	StateAccepted: true,
	StateRejected: true,
}

var claimStates = map[State]bool{
	StateInvited:             true,
	StateSubmitted:           true,
	StateAllocationPending:   true,
	StateVerificationPending: true,
	StateAdmissionPending:    true,
	StateAccepted:            true,
	StateRejected:            true,
}

// IsTerminal reports whether the claim has reached a decision
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsClaimState reports whether s belongs to the claim lifecycle rather than a stage
func (s State) IsClaimState() bool {
	return claimStates[s]
}

func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is known
func (s State) IsValid() bool {
	return validStates[s]
}
