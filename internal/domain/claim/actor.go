package claim

// Role is the capacity in which an actor issues a command
type Role string

const (
	RoleClaimant    Role = "CLAIMANT"
	RoleVerifier    Role = "VERIFIER"
	RoleAdmittor    Role = "ADMITTOR"
	RoleCoordinator Role = "COORDINATOR"
	RolePlatform    Role = "PLATFORM"
)

var roleLabels = map[Role]string{
	RoleClaimant:    "Claimant",
	RoleVerifier:    "Verifier",
	RoleAdmittor:    "Admittor",
	RoleCoordinator: "Coordinator",
	RolePlatform:    "Platform AI",
}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Label is the display name used in the audit trail
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// Actor is the role-scoped identity behind a command. Role resolution is done
// by the host before the command reaches the engine.
type Actor struct {
	Role Role   `json:"role"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlatformActor is the identity used for advisor-originated changes
var PlatformActor = Actor{Role: RolePlatform, ID: "platform", Name: "Platform AI"}
