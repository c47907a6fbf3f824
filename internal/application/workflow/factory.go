package workflow

import (
	"context"

	"github.com/garyjia/claim-review/internal/domain/claim"
	domainwf "github.com/garyjia/claim-review/internal/domain/workflow"
)

// ClaimOptions tune the claim lifecycle
type ClaimOptions struct {
	// RequireAllocation parks submitted claims until a verifier is allocated
	RequireAllocation bool
}

// BuildClaimStateMachine returns the lifecycle machine of c positioned at
// c.Status. Guards read c when fired, so callers mutate the claim first and
// fire afterwards.
func BuildClaimStateMachine(c *claim.Claim, opts ClaimOptions) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	needsAllocation := func(context.Context) bool {
		return opts.RequireAllocation && c.Allocation.Verifier == ""
	}
	allocated := func(context.Context) bool { return c.Allocation.Verifier != "" }
	twoStage := func(context.Context) bool { return c.Terms.TwoStage }
	positive := func(context.Context) bool {
		final := c.Amounts.Final()
		return final.Valid && final.Decimal.IsPositive()
	}
	decided := func(context.Context) bool { return c.Amounts.Final().Valid }

	builder.Configure(domainwf.StateInvited).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted)

	builder.Configure(domainwf.StateSubmitted).
		PermitIf(domainwf.TriggerOpenVerification, domainwf.StateAllocationPending, needsAllocation).
		Permit(domainwf.TriggerOpenVerification, domainwf.StateVerificationPending)

	builder.Configure(domainwf.StateAllocationPending).
		PermitIf(domainwf.TriggerAllocate, domainwf.StateVerificationPending, allocated)

	// a completed verification either hands over to admission or decides the claim
	builder.Configure(domainwf.StateVerificationPending).
		PermitIf(domainwf.TriggerVerificationClosed, domainwf.StateAdmissionPending, twoStage).
		PermitIf(domainwf.TriggerVerificationClosed, domainwf.StateAccepted, positive).
		PermitIf(domainwf.TriggerVerificationClosed, domainwf.StateRejected, decided)

	builder.Configure(domainwf.StateAdmissionPending).
		PermitIf(domainwf.TriggerAdmissionClosed, domainwf.StateAccepted, positive).
		PermitIf(domainwf.TriggerAdmissionClosed, domainwf.StateRejected, decided)

	builder.Configure(domainwf.StateAccepted).
		PermitIf(domainwf.TriggerReopenAdmission, domainwf.StateAdmissionPending, twoStage)

	builder.Configure(domainwf.StateRejected).
		PermitIf(domainwf.TriggerReopenAdmission, domainwf.StateAdmissionPending, twoStage)

	return builder.Build(c.Status)
}

// BuildVerificationStateMachine returns the verification stage machine of c
func BuildVerificationStateMachine(c *claim.Claim) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	platformReady := func(context.Context) bool {
		return c.Terms.AIAssistanceOpted && c.Amounts.AsPerPlatform.Valid
	}
	figureSet := func(context.Context) bool { return c.Amounts.AsPerVerifier.Valid }

	builder.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerVerify, domainwf.StateOngoing).
		PermitIf(domainwf.TriggerAcceptPlatformFigure, domainwf.StateCompleted, platformReady)

	builder.Configure(domainwf.StateOngoing).
		PermitIf(domainwf.TriggerAcceptPlatformFigure, domainwf.StateCompleted, platformReady).
		PermitIf(domainwf.TriggerCompleteManual, domainwf.StateCompleted, figureSet)

	// COMPLETED has no outgoing transitions

	return builder.Build(c.Verification.Status)
}

// BuildAdmissionStateMachine returns the admission stage machine of c. Every
// transition requires verification to be completed.
func BuildAdmissionStateMachine(c *claim.Claim) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	verified := func(context.Context) bool {
		return c.Verification.Status == domainwf.StateCompleted
	}
	figureSet := func(ctx context.Context) bool {
		return verified(ctx) && c.Amounts.AsPerAdmittor.Valid
	}

	builder.Configure(domainwf.StatePending).
		PermitIf(domainwf.TriggerRecheck, domainwf.StateOngoing, verified).
		PermitIf(domainwf.TriggerAcceptVerifierFigure, domainwf.StateCompleted, figureSet)

	builder.Configure(domainwf.StateOngoing).
		PermitIf(domainwf.TriggerAcceptVerifierFigure, domainwf.StateCompleted, figureSet).
		PermitIf(domainwf.TriggerFinalize, domainwf.StateCompleted, figureSet)

	builder.Configure(domainwf.StateCompleted).
		PermitIf(domainwf.TriggerRecheck, domainwf.StateOngoing, verified)

	initial := domainwf.StatePending
	if c.Admission != nil {
		initial = c.Admission.Status
	}
	return builder.Build(initial)
}
