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
	"github.com/garyjia/claim-review/pkg/utils"
)

func (e *Engine) claimMachine(c *claim.Claim) domainwf.StateMachine {
	return appwf.BuildClaimStateMachine(c, appwf.ClaimOptions{RequireAllocation: e.requireAllocation})
}

// Invite creates a claim in the invited state with its invitation terms
func (e *Engine) Invite(ctx context.Context, req InviteRequest, actor claim.Actor) (*claim.Claim, error) {
	if err := validateActor(actor); err != nil {
		return nil, e.finish("Invite", "", actor, e.now(), err)
	}
	var fields []string
	if strings.TrimSpace(req.Claimant.ID) == "" {
		fields = append(fields, "claimant.id")
	}
	if strings.TrimSpace(req.Claimant.Name) == "" {
		fields = append(fields, "claimant.name")
	}
	if req.Category != "" && !req.Category.IsValid() {
		fields = append(fields, "category")
	}
	if len(fields) > 0 {
		return nil, e.finish("Invite", "", actor, e.now(), claim.NewValidationError(fields...))
	}

	c := &claim.Claim{
		ID:           utils.NewID(),
		Claimant:     req.Claimant,
		Category:     req.Category,
		Terms:        req.Terms,
		Status:       domainwf.StateInvited,
		Verification: claim.VerificationRecord{Status: domainwf.StatePending},
	}

	mode := "single-stage"
	if req.Terms.TwoStage {
		mode = "two-stage"
	}
	ai := "AI assistance not opted"
	if req.Terms.AIAssistanceOpted {
		ai = "AI assistance opted"
	}

	return e.create(ctx, "Invite", c, actor, &change{
		draft: audit.Draft{
			Action:   audit.ActionCreateInvite,
			Actioner: actioner(actor.Role.Label(), actor),
			Comment:  fmt.Sprintf("Invitation issued to %s (%s, %s)", req.Claimant.Name, mode, ai),
		},
		events: []*event.Event{newEvent(event.TypeClaimInvited, c, map[string]interface{}{
			event.KeyClaimant: req.Claimant.Name,
		})},
	})
}

// Submit completes an invited claim, or creates and submits a new one when
// req.ClaimID is empty. The claim then waits for verification, or for
// allocation when allocation is required and no verifier is set.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest, actor claim.Actor) (*claim.Claim, error) {
	if req.ClaimID == "" {
		if err := validateActor(actor); err != nil {
			return nil, e.finish("Submit", "", actor, e.now(), err)
		}
		c := &claim.Claim{
			ID:           utils.NewID(),
			Claimant:     req.Claimant,
			Terms:        req.Terms,
			Status:       domainwf.StateInvited,
			Verification: claim.VerificationRecord{Status: domainwf.StatePending},
		}
		ch, err := e.submit(ctx, c, req, actor)
		if err != nil {
			return nil, e.finish("Submit", "", actor, e.now(), err)
		}
		return e.create(ctx, "Submit", c, actor, ch)
	}

	return e.execute(ctx, "Submit", req.ClaimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		if c.Status != domainwf.StateInvited {
			return nil, claim.Preconditionf("claim %s already submitted", c.ID)
		}
		return e.submit(ctx, c, req, actor)
	})
}

func (e *Engine) submit(ctx context.Context, c *claim.Claim, req SubmitRequest, actor claim.Actor) (*change, error) {
	if req.Claimant.ID != "" && c.Claimant.ID == "" {
		c.Claimant = req.Claimant
	}
	if req.Claimant.Name != "" && c.Claimant.ID == req.Claimant.ID {
		c.Claimant.Name = req.Claimant.Name
	}
	if req.Category != "" {
		c.Category = req.Category
	}
	c.Principal = req.Principal
	c.Interest = req.Interest
	c.Documents = append([]claim.DocumentRef(nil), req.Documents...)

	if err := c.ValidateSubmission(); err != nil {
		return nil, err
	}

	line, err := ledger.NewAmountLine(c.ClaimedAmount())
	if err != nil {
		return nil, claim.NewValidationError("claimed_amount")
	}
	c.Amounts = line
	if c.Terms.TwoStage {
		c.Admission = &claim.AdmissionRecord{Status: domainwf.StatePending}
	}

	m := e.claimMachine(c)
	if _, err := appwf.Fire(ctx, m, domainwf.TriggerSubmit); err != nil {
		return nil, err
	}
	now := e.now().UTC()
	c.SubmittedAt = &now
	status, err := appwf.Fire(ctx, m, domainwf.TriggerOpenVerification)
	if err != nil {
		return nil, err
	}
	c.Status = status

	comment := fmt.Sprintf("Claim submitted by %s for %s (principal %s, interest %s) with %d document(s)",
		c.Claimant.Name,
		ledger.Format(c.ClaimedAmount()),
		ledger.Format(c.Principal),
		ledger.Format(c.Interest),
		len(c.Documents),
	)
	if status == domainwf.StateAllocationPending {
		comment += "; awaiting verifier allocation"
	}

	return &change{
		draft: audit.Draft{
			Action:   audit.ActionClaimSubmitted,
			Actioner: actioner(claim.RoleClaimant.Label(), actor),
			Comment:  comment,
		},
		events: []*event.Event{newEvent(event.TypeClaimSubmitted, c, map[string]interface{}{
			event.KeyAmount: c.ClaimedAmount().String(),
		})},
	}, nil
}

// Allocate assigns, replaces or removes (empty assignee) the reviewer of a
// stage. It is refused once the stage has completed.
func (e *Engine) Allocate(ctx context.Context, claimID string, stage Stage, assignee string, actor claim.Actor) (*claim.Claim, error) {
	assignee = strings.TrimSpace(assignee)
	return e.execute(ctx, "Allocate", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		var slot *string
		var stageStatus domainwf.State
		switch stage {
		case StageVerification:
			slot, stageStatus = &c.Allocation.Verifier, c.Verification.Status
		case StageAdmission:
			if !c.Terms.TwoStage || c.Admission == nil {
				return nil, claim.Preconditionf("claim %s has no admission stage", c.ID)
			}
			slot, stageStatus = &c.Allocation.Admittor, c.Admission.Status
		default:
			return nil, claim.NewValidationError("stage")
		}

		if stageStatus == domainwf.StateCompleted {
			return nil, claim.Preconditionf("%s stage of claim %s already completed", strings.ToLower(string(stage)), c.ID)
		}
		previous := *slot
		if previous == assignee {
			return &change{noop: true}, nil
		}
		*slot = assignee

		label := "Verifier"
		if stage == StageAdmission {
			label = "Admittor"
		}
		var comment string
		switch {
		case previous == "":
			comment = fmt.Sprintf("%s allocated: %s", label, assignee)
		case assignee == "":
			comment = fmt.Sprintf("%s allocation removed (was %s)", label, previous)
		default:
			comment = fmt.Sprintf("%s re-allocated from %s to %s", label, previous, assignee)
		}
		if stageStatus == domainwf.StateOngoing {
			comment += " after the stage started"
		}

		if c.Status == domainwf.StateAllocationPending && stage == StageVerification && assignee != "" {
			status, err := appwf.Fire(ctx, e.claimMachine(c), domainwf.TriggerAllocate)
			if err != nil {
				return nil, err
			}
			c.Status = status
		}

		return &change{
			draft: audit.Draft{
				Action:   audit.ActionAllocationEdit,
				Actioner: actioner(actor.Role.Label(), actor),
				Comment:  comment,
			},
			events: []*event.Event{newEvent(event.TypeClaimAllocated, c, map[string]interface{}{
				event.KeyStage:    string(stage),
				event.KeyAssignee: assignee,
			})},
		}, nil
	})
}

// RecordView audits that actor opened the claim
func (e *Engine) RecordView(ctx context.Context, claimID string, actor claim.Actor) error {
	_, err := e.execute(ctx, "RecordView", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		who := actor.Name
		if who == "" {
			who = actor.ID
		}
		return &change{
			auditOnly: true,
			draft: audit.Draft{
				Action:   audit.ActionViewingOfClaims,
				Actioner: actioner(actor.Role.Label(), actor),
				Comment:  fmt.Sprintf("Claim viewed by %s", who),
			},
		}, nil
	})
	return err
}

// closeVerification moves the claim past a completed verification stage
func (e *Engine) closeVerification(ctx context.Context, c *claim.Claim) ([]*event.Event, error) {
	status, err := appwf.Fire(ctx, e.claimMachine(c), domainwf.TriggerVerificationClosed)
	if err != nil {
		return nil, err
	}
	c.Status = status

	events := []*event.Event{newEvent(event.TypeVerificationCompleted, c, map[string]interface{}{
		event.KeyAmount: c.Amounts.AsPerVerifier.Decimal.String(),
	})}
	if status.IsTerminal() {
		events = append(events, e.decided(c))
	}
	return events, nil
}

// closeAdmission decides the claim after a completed admission stage
func (e *Engine) closeAdmission(ctx context.Context, c *claim.Claim) ([]*event.Event, error) {
	status, err := appwf.Fire(ctx, e.claimMachine(c), domainwf.TriggerAdmissionClosed)
	if err != nil {
		return nil, err
	}
	c.Status = status
	return []*event.Event{e.decided(c)}, nil
}

func (e *Engine) decided(c *claim.Claim) *event.Event {
	now := e.now().UTC()
	c.DecidedAt = &now
	return newEvent(event.TypeClaimDecided, c, map[string]interface{}{
		event.KeyAmount: c.Amounts.Final().Decimal.String(),
	})
}
