package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/event"
	"github.com/garyjia/claim-review/pkg/utils"
)

// CreateAssignmentRow opens a draft assignment of the claim away from its
// current claimant and returns the claim with the new row id.
func (e *Engine) CreateAssignmentRow(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, string, error) {
	rowID := utils.NewID()
	c, err := e.execute(ctx, "CreateAssignmentRow", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		if !c.IsSubmitted() {
			return nil, claim.Preconditionf("claim %s has not been submitted", c.ID)
		}
		c.Assignments = append(c.Assignments, claim.AssignmentRecord{
			ID:        rowID,
			Assignor:  c.Claimant,
			Status:    claim.AssignmentDraft,
			CreatedAt: e.now().UTC(),
		})
		return &change{
			draft: audit.Draft{
				Action:   audit.ActionUpdatesInInvite,
				Actioner: actioner(actor.Role.Label(), actor),
				Comment:  fmt.Sprintf("Assignment row %s opened for %s", rowID, c.Claimant.Name),
			},
		}, nil
	})
	if err != nil {
		return nil, "", err
	}
	return c, rowID, nil
}

// SaveAssignee stores assignee details on a row. The claim must exist before
// account confirmation, format checks and document quality checks run;
// quality issues only become warnings and move the row to pending correction.
func (e *Engine) SaveAssignee(ctx context.Context, claimID, rowID string, details claim.AssigneeDetails, actor claim.Actor) (*claim.Claim, error) {
	if _, err := e.claims.GetByID(ctx, claimID); err != nil {
		return nil, e.finish("SaveAssignee", claimID, actor, e.now(), err)
	}

	account := utils.NormalizeAccountNumber(details.Bank.AccountNumber)
	if account != utils.NormalizeAccountNumber(details.ConfirmAccountNumber) {
		return nil, e.finish("SaveAssignee", claimID, actor, e.now(),
			fmt.Errorf("%w: row %s", claim.ErrAccountMismatch, rowID))
	}
	if err := details.Validate(); err != nil {
		return nil, e.finish("SaveAssignee", claimID, actor, e.now(), err)
	}
	var fields []string
	if err := utils.ValidateAccountNumber(account); err != nil {
		fields = append(fields, "bank.account_number")
	}
	if err := utils.ValidateRoutingCode(details.Bank.RoutingCode); err != nil {
		fields = append(fields, "bank.routing_code")
	}
	for i, d := range details.Documents {
		if strings.TrimSpace(d.ID) == "" {
			fields = append(fields, fmt.Sprintf("documents[%d].id", i))
		}
	}
	if len(fields) > 0 {
		return nil, e.finish("SaveAssignee", claimID, actor, e.now(), claim.NewValidationError(fields...))
	}

	warnings := e.checkDocuments(ctx, claimID, details.Documents)

	return e.execute(ctx, "SaveAssignee", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		idx := c.FindAssignment(rowID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: assignment row %s", claim.ErrNotFound, rowID)
		}
		row := &c.Assignments[idx]
		if row.Status.Decided() {
			return nil, claim.Preconditionf("assignment row %s already %s", rowID, strings.ToLower(string(row.Status)))
		}
		if err := requireCurrentAssignor(c, row); err != nil {
			return nil, err
		}

		assigneeID := utils.NewID()
		if row.Assignee != nil {
			assigneeID = row.Assignee.ID
		}
		row.Assignee = &claim.Assignee{
			ID:       assigneeID,
			Name:     utils.SanitizeString(details.Name),
			Identity: details.Identity,
			Bank: claim.BankDetails{
				AccountHolder: utils.SanitizeString(details.Bank.AccountHolder),
				AccountNumber: account,
				RoutingCode:   strings.ToUpper(strings.TrimSpace(details.Bank.RoutingCode)),
				BankName:      utils.SanitizeString(details.Bank.BankName),
			},
			Documents: append([]claim.DocumentRef(nil), details.Documents...),
		}
		row.AssignmentDate = details.AssignmentDate.UTC()
		row.Warnings = warnings
		row.Status = claim.AssignmentSaved
		if len(warnings) > 0 {
			row.Status = claim.AssignmentPendingCorrection
		}

		comment := fmt.Sprintf("Assignee %s saved on row %s", row.Assignee.Name, rowID)
		if len(warnings) > 0 {
			comment += fmt.Sprintf(" with %d document warning(s)", len(warnings))
		}
		return &change{
			draft: audit.Draft{
				Action:   audit.ActionUpdatesInInvite,
				Actioner: actioner(actor.Role.Label(), actor),
				Comment:  comment,
			},
			events: []*event.Event{newEvent(event.TypeAssigneeSaved, c, map[string]interface{}{
				event.KeyRowID:    rowID,
				event.KeyAssignee: row.Assignee.Name,
			})},
		}, nil
	})
}

// checkDocuments runs the optional quality check outside the claim lock.
// Checker failures are reported as warnings, never as command errors.
func (e *Engine) checkDocuments(ctx context.Context, claimID string, docs []claim.DocumentRef) []string {
	if e.validator == nil {
		return nil
	}
	var warnings []string
	for _, d := range docs {
		report, err := e.validator.Check(ctx, d)
		if err != nil {
			e.logger.Error("Document quality check failed", "claim_id", claimID, "document_id", d.ID, "error", err)
			warnings = append(warnings, fmt.Sprintf("%s: quality check unavailable", d.Name))
			continue
		}
		if report.Acceptable {
			continue
		}
		if len(report.Issues) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s: document not acceptable", d.Name))
		}
		for _, issue := range report.Issues {
			warnings = append(warnings, fmt.Sprintf("%s: %s", d.Name, issue))
		}
	}
	return warnings
}

// DecideAssignment accepts or rejects a saved row. Accepting moves the claim
// to the assignee and keeps the previous claimant in the history.
func (e *Engine) DecideAssignment(ctx context.Context, claimID, rowID string, decision AssignmentDecision, actor claim.Actor) (*claim.Claim, error) {
	reason := strings.TrimSpace(decision.Reason)
	if !decision.Accepted && reason == "" {
		return nil, e.finish("DecideAssignment", claimID, actor, e.now(), claim.NewValidationError("reason"))
	}

	return e.execute(ctx, "DecideAssignment", claimID, actor, func(ctx context.Context, c *claim.Claim) (*change, error) {
		idx := c.FindAssignment(rowID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: assignment row %s", claim.ErrNotFound, rowID)
		}
		row := &c.Assignments[idx]
		if row.Status.Decided() {
			return nil, claim.Preconditionf("assignment row %s already %s", rowID, strings.ToLower(string(row.Status)))
		}
		if row.Assignee == nil {
			return nil, claim.Preconditionf("assignment row %s has no saved assignee", rowID)
		}
		if decision.Accepted {
			if err := requireCurrentAssignor(c, row); err != nil {
				return nil, err
			}
		}

		row.Decision = &claim.Decision{
			Accepted:  decision.Accepted,
			Reason:    reason,
			DecidedBy: actor.ID,
			DecidedAt: e.now().UTC(),
		}

		payload := map[string]interface{}{
			event.KeyRowID:    rowID,
			event.KeyAccepted: decision.Accepted,
			event.KeyAssignee: row.Assignee.Name,
		}
		var comment string
		if decision.Accepted {
			row.Status = claim.AssignmentAccepted
			previous := c.Claimant
			c.ClaimantHistory = append(c.ClaimantHistory, previous)
			c.Claimant = claim.Claimant{ID: row.Assignee.ID, Name: row.Assignee.Name}
			payload[event.KeyPrevOwner] = previous.Name
			comment = fmt.Sprintf("Assignment accepted: %s → %s", previous.Name, c.Claimant.Name)
		} else {
			row.Status = claim.AssignmentRejected
			payload[event.KeyReason] = reason
			comment = fmt.Sprintf("Assignment to %s rejected: %s", row.Assignee.Name, reason)
		}

		return &change{
			draft: audit.Draft{
				Action:   audit.ActionUpdatesInInvite,
				Actioner: actioner(actor.Role.Label(), actor),
				Comment:  comment,
			},
			events: []*event.Event{newEvent(event.TypeAssignmentDecided, c, payload)},
		}, nil
	})
}

// requireCurrentAssignor rejects rows opened by a claimant who has since
// assigned the claim away
func requireCurrentAssignor(c *claim.Claim, row *claim.AssignmentRecord) error {
	if row.Assignor.ID != c.Claimant.ID {
		return claim.Preconditionf("assignment row %s was opened by %s, claim now owned by %s",
			row.ID, row.Assignor.Name, c.Claimant.Name)
	}
	return nil
}
