package workflow

// Trigger is an event that can move a machine to another state
type Trigger string

// Claim lifecycle triggers
const (
	TriggerSubmit             Trigger = "SUBMIT"
	TriggerOpenVerification   Trigger = "OPEN_VERIFICATION"
	TriggerAllocate           Trigger = "ALLOCATE"
	TriggerVerificationClosed Trigger = "VERIFICATION_CLOSED"
	TriggerAdmissionClosed    Trigger = "ADMISSION_CLOSED"
	TriggerReopenAdmission    Trigger = "REOPEN_ADMISSION"
)

// Stage triggers
const (
	TriggerVerify               Trigger = "VERIFY"
	TriggerAcceptPlatformFigure Trigger = "ACCEPT_PLATFORM_FIGURE"
	TriggerCompleteManual       Trigger = "COMPLETE_MANUAL"
	TriggerAcceptVerifierFigure Trigger = "ACCEPT_VERIFIER_FIGURE"
	TriggerRecheck              Trigger = "RECHECK"
	TriggerFinalize             Trigger = "FINALIZE"
)

func (t Trigger) String() string {
	return string(t)
}
