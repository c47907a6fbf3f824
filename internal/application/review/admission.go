package review

import (
	"context"
	"fmt"
	"strings"

	appwf "github.com/garyjia/claim-review/internal/application/workflow"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/event"
	"github.com/garyjia/claim-review/internal/domain/ledger"
	domainwf "github.com/garyjia/claim-review/internal/domain/workflow"
)

func requireAdmissionStage(c *claim.Claim) error {
	if !c.Terms.TwoStage || c.Admission == nil {
		return claim.Preconditionf("claim %s has no admission stage", c.ID)
	}
	if c.Verification.Status != domainwf.StateCompleted {
		return claim.Preconditionf("verification of claim %s is not completed", c.ID)
	}
	return nil
}

// AcceptVerifierFigure admits the verified amount as is and decides the claim
func (e *Engine) AcceptVerifierFigure(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, error) {
	return e.execute(ctx, "AcceptVerifierFigure", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		if err := requireAdmissionStage(c); err != nil {
			return nil, err
		}
		if c.Admission.Status == domainwf.StateCompleted {
			return nil, claim.Preconditionf("admission of claim %s already completed", c.ID)
		}

		base, source, ok := c.Amounts.VerifiedBase()
		if !ok {
			return nil, fmt.Errorf("%w: claim %s", claim.ErrNoVerifierAmount, c.ID)
		}
		if err := c.Amounts.SetAdmittor(base, source, ""); err != nil {
			return nil, fmt.Errorf("%w: %w", claim.ErrPrecondition, err)
		}
		status, err := appwf.Fire(ctx, appwf.BuildAdmissionStateMachine(c), domainwf.TriggerAcceptVerifierFigure)
		if err != nil {
			return nil, err
		}
		e.completeAdmission(c, status, claim.AdmissionActionAcceptVerifierFigure, actor)

		events, err := e.closeAdmission(ctx, c)
		if err != nil {
			return nil, err
		}
		return &change{
			draft: audit.Draft{
				Action:   audit.ActionClaimAdmission,
				Actioner: actioner(claim.RoleAdmittor.Label(), actor),
				Comment: fmt.Sprintf("Verified amount of %s admitted; claim %s",
					ledger.Format(base), strings.ToLower(c.Status.String())),
			},
			events: events,
		}, nil
	})
}

// ReadmitRecheck opens the detailed admission review. On a decided claim it
// clears the admission outcome and reopens the claim; upstream figures stay.
func (e *Engine) ReadmitRecheck(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, error) {
	return e.execute(ctx, "ReadmitRecheck", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		if err := requireAdmissionStage(c); err != nil {
			return nil, err
		}
		if c.Admission.Status == domainwf.StateOngoing {
			return &change{noop: true}, nil
		}

		var events []*event.Event
		comment := "Admission recheck started"
		if c.Admission.Status == domainwf.StateCompleted {
			previous := c.Amounts.AsPerAdmittor
			c.Amounts.ClearAdmittor()
			status, err := appwf.Fire(ctx, e.claimMachine(c), domainwf.TriggerReopenAdmission)
			if err != nil {
				return nil, err
			}
			c.Status = status
			c.DecidedAt = nil
			c.Admission.CompletedBy = ""
			c.Admission.CompletedAt = nil
			comment = fmt.Sprintf("Admission reopened for recheck (previous figure %s)", ledger.FormatNull(previous))
			events = append(events, newEvent(event.TypeAdmissionReopened, c, nil))
		}

		status, err := appwf.Fire(ctx, appwf.BuildAdmissionStateMachine(c), domainwf.TriggerRecheck)
		if err != nil {
			return nil, err
		}
		c.Admission.Status = status
		c.Admission.Action = claim.AdmissionActionRecheck
		c.Admission.Rounds++
		c.Amounts.Touch()

		return &change{
			draft: audit.Draft{
				Action:   audit.ActionClaimAdmission,
				Actioner: actioner(claim.RoleAdmittor.Label(), actor),
				Comment:  comment,
			},
			events: events,
		}, nil
	})
}

// CompleteAdmission saves the detailed review. With Finalize set it records
// the admitted amount and decides the claim, otherwise the stage stays open.
func (e *Engine) CompleteAdmission(ctx context.Context, claimID string, review AdmissionReview, actor claim.Actor) (*claim.Claim, error) {
	return e.execute(ctx, "CompleteAdmission", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		if err := requireAdmissionStage(c); err != nil {
			return nil, err
		}
		if c.Admission.Status != domainwf.StateOngoing {
			return nil, claim.Preconditionf("admission of claim %s is %s, recheck first", c.ID, c.Admission.Status)
		}

		var fields []string
		if review.Breakdown.HasNegative() {
			fields = append(fields, "breakdown")
		}
		if review.Finalize && !review.Amount.Valid {
			fields = append(fields, "amount")
		}
		if review.Amount.Valid && review.Amount.Decimal.IsNegative() {
			fields = append(fields, "amount")
		}
		if len(fields) > 0 {
			return nil, claim.NewValidationError(fields...)
		}

		breakdown := review.Breakdown
		c.Admission.Breakdown = &breakdown
		c.Admission.Remarks = strings.TrimSpace(review.Remarks)

		if !review.Finalize {
			c.Amounts.Touch()
			return &change{
				draft: audit.Draft{
					Action:   audit.ActionClaimAdmission,
					Actioner: actioner(claim.RoleAdmittor.Label(), actor),
					Comment: fmt.Sprintf("Admission review saved (admissible per breakdown %s)",
						ledger.Format(breakdown.Admissible())),
				},
			}, nil
		}

		amount := review.Amount.Decimal
		if err := c.Amounts.SetAdmittor(amount, ledger.SourceManual, c.Admission.Remarks); err != nil {
			return nil, fmt.Errorf("%w: %w", claim.ErrPrecondition, err)
		}
		status, err := appwf.Fire(ctx, appwf.BuildAdmissionStateMachine(c), domainwf.TriggerFinalize)
		if err != nil {
			return nil, err
		}
		e.completeAdmission(c, status, claim.AdmissionActionRecheck, actor)

		events, err := e.closeAdmission(ctx, c)
		if err != nil {
			return nil, err
		}

		comment := fmt.Sprintf("Admitted amount set to %s; claim %s",
			ledger.Format(amount), strings.ToLower(c.Status.String()))
		if c.Admission.Remarks != "" {
			comment += ": " + c.Admission.Remarks
		}
		return &change{
			draft: audit.Draft{
				Action:   audit.ActionClaimAdmission,
				Actioner: actioner(claim.RoleAdmittor.Label(), actor),
				Comment:  comment,
			},
			events: events,
		}, nil
	})
}

func (e *Engine) completeAdmission(c *claim.Claim, status domainwf.State, action claim.AdmissionAction, actor claim.Actor) {
	now := e.now().UTC()
	c.Admission.Status = status
	c.Admission.Action = action
	c.Admission.CompletedBy = actor.ID
	c.Admission.CompletedAt = &now
}
