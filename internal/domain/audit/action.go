package audit

import "fmt"

// Action is the closed taxonomy of audited claim actions
type Action string

const (
	ActionCreateInvite      Action = "CREATE_INVITE"
	ActionClaimSubmitted    Action = "CLAIM_SUBMITTED"
	ActionAllocationEdit    Action = "ALLOCATION_EDIT"
	ActionClaimVerification Action = "CLAIM_VERIFICATION"
	ActionClaimAdmission    Action = "CLAIM_ADMISSION"
	ActionUpdatesInInvite   Action = "UPDATES_IN_INVITE"
	ActionViewingOfClaims   Action = "VIEWING_OF_CLAIMS"
)

type display struct {
	category string
	icon     string
}

var displays = map[Action]display{
	ActionCreateInvite:      {category: "Invitation", icon: "mail-plus"},
	ActionClaimSubmitted:    {category: "Submission", icon: "file-check"},
	ActionAllocationEdit:    {category: "Allocation", icon: "user-cog"},
	ActionClaimVerification: {category: "Verification", icon: "shield-check"},
	ActionClaimAdmission:    {category: "Admission", icon: "gavel"},
	ActionUpdatesInInvite:   {category: "Invitation", icon: "file-pen"},
	ActionViewingOfClaims:   {category: "Access", icon: "eye"},
}

// Actions lists the taxonomy in display order
func Actions() []Action {
	return []Action{
		ActionCreateInvite,
		ActionClaimSubmitted,
		ActionAllocationEdit,
		ActionClaimVerification,
		ActionClaimAdmission,
		ActionUpdatesInInvite,
		ActionViewingOfClaims,
	}
}

func (a Action) String() string {
	return string(a)
}

// IsValid reports whether a belongs to the taxonomy
func (a Action) IsValid() bool {
	_, ok := displays[a]
	return ok
}

// Category returns the display category
func (a Action) Category() string {
	return a.mustDisplay().category
}

// Icon returns the display icon name
func (a Action) Icon() string {
	return a.mustDisplay().icon
}

// mustDisplay panics for actions outside the taxonomy. Every caller passes a
// constant, so reaching the panic means a programming error.
func (a Action) mustDisplay() display {
	d, ok := displays[a]
	if !ok {
		panic(fmt.Sprintf("audit: unknown action %q", a))
	}
	return d
}
