package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/claim-review/internal/application/port"
	appwf "github.com/garyjia/claim-review/internal/application/workflow"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/event"
	"github.com/garyjia/claim-review/internal/domain/ledger"
	domainwf "github.com/garyjia/claim-review/internal/domain/workflow"
)

// Advisor outcomes reported to metrics
const (
	advisorApplied   = "applied"
	advisorDiscarded = "discarded"
	advisorFailed    = "failed"
	advisorCancelled = "cancelled"
)

func (e *Engine) requireVerificationOpen(c *claim.Claim) error {
	if c.Status != domainwf.StateVerificationPending {
		return claim.Preconditionf("claim %s is %s, not awaiting verification", c.ID, c.Status)
	}
	if c.Verification.Status == domainwf.StateCompleted {
		return claim.Preconditionf("verification of claim %s already completed", c.ID)
	}
	return nil
}

// Verify starts manual verification. Repeating it is a no-op.
func (e *Engine) Verify(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, error) {
	return e.execute(ctx, "Verify", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		if c.Verification.Status == domainwf.StateOngoing || c.Verification.Status == domainwf.StateCompleted {
			return &change{noop: true}, nil
		}
		if err := e.requireVerificationOpen(c); err != nil {
			return nil, err
		}

		status, err := appwf.Fire(ctx, appwf.BuildVerificationStateMachine(c), domainwf.TriggerVerify)
		if err != nil {
			return nil, err
		}
		c.Verification.Status = status
		c.Verification.Action = claim.VerificationActionVerify
		// any advisor run started before this point is now stale
		c.Amounts.Touch()

		return &change{
			draft: audit.Draft{
				Action:   audit.ActionClaimVerification,
				Actioner: actioner(claim.RoleVerifier.Label(), actor),
				Comment:  "Verification started",
			},
		}, nil
	})
}

// AcceptPlatformFigure completes verification with the advisor's figure
func (e *Engine) AcceptPlatformFigure(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, error) {
	return e.execute(ctx, "AcceptPlatformFigure", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		if err := e.requireVerificationOpen(c); err != nil {
			return nil, err
		}
		if !c.Terms.AIAssistanceOpted {
			return nil, fmt.Errorf("%w: claim %s did not opt into AI assistance", claim.ErrAdvisorUnavailable, c.ID)
		}
		if !c.Amounts.AsPerPlatform.Valid {
			return nil, fmt.Errorf("%w: claim %s", claim.ErrNoPlatformFigure, c.ID)
		}

		platform := c.Amounts.AsPerPlatform.Decimal
		remarks := strings.Join(c.Amounts.PlatformRemarks, "; ")
		if err := c.Amounts.SetVerifier(platform, ledger.SourcePlatform, remarks); err != nil {
			return nil, fmt.Errorf("%w: %w", claim.ErrPrecondition, err)
		}
		status, err := appwf.Fire(ctx, appwf.BuildVerificationStateMachine(c), domainwf.TriggerAcceptPlatformFigure)
		if err != nil {
			return nil, err
		}
		e.completeVerification(c, status, claim.VerificationActionAcceptPlatform, actor)

		events, err := e.closeVerification(ctx, c)
		if err != nil {
			return nil, err
		}
		return &change{
			draft: audit.Draft{
				Action:   audit.ActionClaimVerification,
				Actioner: actioner(claim.RoleVerifier.Label(), actor),
				Comment:  fmt.Sprintf("Platform figure of %s accepted as verified amount", ledger.Format(platform)),
			},
			events: events,
		}, nil
	})
}

// CompleteVerification records the verifier's own figure and closes the stage
func (e *Engine) CompleteVerification(ctx context.Context, claimID string, result VerificationResult, actor claim.Actor) (*claim.Claim, error) {
	return e.execute(ctx, "CompleteVerification", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		if err := e.requireVerificationOpen(c); err != nil {
			return nil, err
		}
		if c.Verification.Status != domainwf.StateOngoing {
			return nil, claim.Preconditionf("verification of claim %s has not been started", c.ID)
		}
		if !result.Amount.Valid || result.Amount.Decimal.IsNegative() {
			return nil, claim.NewValidationError("amount")
		}

		amount := result.Amount.Decimal
		remarks := strings.TrimSpace(result.Remarks)
		if err := c.Amounts.SetVerifier(amount, ledger.SourceManual, remarks); err != nil {
			return nil, fmt.Errorf("%w: %w", claim.ErrPrecondition, err)
		}
		status, err := appwf.Fire(ctx, appwf.BuildVerificationStateMachine(c), domainwf.TriggerCompleteManual)
		if err != nil {
			return nil, err
		}
		e.completeVerification(c, status, claim.VerificationActionVerify, actor)

		events, err := e.closeVerification(ctx, c)
		if err != nil {
			return nil, err
		}

		comment := fmt.Sprintf("Verified amount set to %s (claimed %s)",
			ledger.Format(amount), ledger.Format(c.Amounts.AsPerSubmitter))
		if remarks != "" {
			comment += ": " + remarks
		}
		return &change{
			draft: audit.Draft{
				Action:   audit.ActionClaimVerification,
				Actioner: actioner(claim.RoleVerifier.Label(), actor),
				Comment:  comment,
			},
			events: events,
		}, nil
	})
}

func (e *Engine) completeVerification(c *claim.Claim, status domainwf.State, action claim.VerificationAction, actor claim.Actor) {
	now := e.now().UTC()
	c.Verification.Status = status
	c.Verification.Action = action
	c.Verification.CompletedBy = actor.ID
	c.Verification.CompletedAt = &now
}

// RequestPlatformFigure starts an advisor run in the background. The claim is
// only touched when the result arrives, and only if no manual action happened
// on the amount line in the meantime.
func (e *Engine) RequestPlatformFigure(ctx context.Context, claimID string, actor claim.Actor) error {
	start := time.Now()
	if err := validateActor(actor); err != nil {
		return e.finish("RequestPlatformFigure", claimID, actor, start, err)
	}
	if e.advisor == nil {
		return e.finish("RequestPlatformFigure", claimID, actor, start,
			fmt.Errorf("%w: no advisor configured", claim.ErrAdvisorUnavailable))
	}

	unlock := e.locks.Lock(claimID)
	c, err := e.claims.GetByID(ctx, claimID)
	if err == nil {
		err = e.requireVerificationOpen(c)
	}
	if err == nil && !c.Terms.AIAssistanceOpted {
		err = fmt.Errorf("%w: claim %s did not opt into AI assistance", claim.ErrAdvisorUnavailable, c.ID)
	}
	if err == nil && len(c.ReconcilableDocuments()) == 0 {
		err = fmt.Errorf("%w: claim %s has no ledger or balance documents", claim.ErrAdvisorUnavailable, c.ID)
	}
	unlock()
	if err != nil {
		return e.finish("RequestPlatformFigure", claimID, actor, start, err)
	}

	req := port.SuggestRequest{
		ClaimID:           c.ID,
		ClaimedAmount:     c.ClaimedAmount(),
		AIAssistanceOpted: c.Terms.AIAssistanceOpted,
		Documents:         c.ReconcilableDocuments(),
	}
	stamp := c.Amounts.Stamp

	if err := e.runner.Go(func(jobCtx context.Context) {
		e.runAdvisor(jobCtx, req, stamp)
	}); err != nil {
		return e.finish("RequestPlatformFigure", claimID, actor, start, err)
	}
	return e.finish("RequestPlatformFigure", claimID, actor, start, nil)
}

func (e *Engine) runAdvisor(ctx context.Context, req port.SuggestRequest, stamp uint64) {
	ctx, cancel := context.WithTimeout(ctx, e.advisorTimeout)
	defer cancel()

	suggestion, err := e.advisor.Suggest(ctx, req)
	if err != nil {
		outcome := advisorFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = advisorCancelled
		}
		e.metrics.AdvisorResult(outcome)
		e.logger.Error("Advisor run failed", "claim_id", req.ClaimID, "outcome", outcome, "error", err)
		return
	}
	if ctx.Err() != nil {
		e.metrics.AdvisorResult(advisorCancelled)
		e.logger.Info("Advisor result dropped after cancellation", "claim_id", req.ClaimID)
		return
	}

	applied := false
	_, err = e.execute(ctx, "ApplyPlatformFigure", req.ClaimID, claim.PlatformActor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		if c.Amounts.Stamp != stamp || c.Verification.Status == domainwf.StateCompleted {
			return &change{noop: true}, nil
		}
		if err := c.Amounts.SetPlatform(suggestion.Amount, suggestion.Remarks); err != nil {
			return &change{noop: true}, nil
		}
		applied = true

		comment := fmt.Sprintf("Platform figure of %s suggested", ledger.Format(suggestion.Amount))
		if len(suggestion.Remarks) > 0 {
			comment += ": " + strings.Join(suggestion.Remarks, "; ")
		}
		return &change{
			draft: audit.Draft{
				Action:   audit.ActionClaimVerification,
				Actioner: actioner(claim.RolePlatform.Label(), claim.PlatformActor),
				Comment:  comment,
			},
			events: []*event.Event{newEvent(event.TypePlatformFigureApplied, c, map[string]interface{}{
				event.KeyAmount: suggestion.Amount.String(),
			})},
		}, nil
	})
	switch {
	case err != nil:
		e.metrics.AdvisorResult(advisorFailed)
	case applied:
		e.metrics.AdvisorResult(advisorApplied)
	default:
		e.metrics.AdvisorResult(advisorDiscarded)
		e.logger.Info("Stale advisor result discarded", "claim_id", req.ClaimID)
	}
}
