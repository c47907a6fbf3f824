package service

import (
	"context"
	"fmt"

	"github.com/garyjia/claim-review/internal/application/dispatcher"
	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/event"
	"github.com/garyjia/claim-review/internal/domain/ledger"
)

// NotificationService tells participants about allocations and assignment
// decisions. Delivery is fire-and-forget; failures are logged by the
// dispatcher and never affect the claim.
type NotificationService struct {
	claims   ClaimReader
	notifier port.Notifier
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(claims ClaimReader, notifier port.Notifier, logger Logger) *NotificationService {
	return &NotificationService{
		claims:   claims,
		notifier: notifier,
		logger:   logger,
	}
}

// Register subscribes the service to the events it reacts to
func (s *NotificationService) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeClaimAllocated, "notify-allocation", s.NotifyAllocation)
	d.SubscribeNamed(event.TypeAssignmentDecided, "notify-assignment", s.NotifyAssignmentDecision)
}

// NotifyAllocation tells the new reviewer about the claim
func (s *NotificationService) NotifyAllocation(ctx context.Context, evt *event.Event) error {
	assignee := evt.GetPayloadString(event.KeyAssignee)
	if assignee == "" {
		// allocation removed, nobody to tell
		return nil
	}

	c, err := s.claims.GetState(ctx, evt.ClaimID)
	if err != nil {
		return fmt.Errorf("get claim: %w", err)
	}

	stage := evt.GetPayloadString(event.KeyStage)
	n := port.Notification{
		ClaimID:   c.ID,
		Recipient: assignee,
		Title:     fmt.Sprintf("Claim allocated for %s", stageName(stage)),
		Body: fmt.Sprintf("Claim %s by %s for %s has been allocated to you for %s.",
			c.ID, c.Claimant.Name, ledger.Format(c.ClaimedAmount()), stageName(stage)),
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("notify %s: %w", assignee, err)
	}

	s.logger.Info("Allocation notification sent",
		"claim_id", c.ID,
		"recipient", assignee,
		"stage", stage,
	)
	return nil
}

// NotifyAssignmentDecision tells the claim owners how an assignment ended
func (s *NotificationService) NotifyAssignmentDecision(ctx context.Context, evt *event.Event) error {
	c, err := s.claims.GetState(ctx, evt.ClaimID)
	if err != nil {
		return fmt.Errorf("get claim: %w", err)
	}

	accepted := evt.GetPayloadBool(event.KeyAccepted)
	assignee := evt.GetPayloadString(event.KeyAssignee)

	var n port.Notification
	if accepted {
		n = port.Notification{
			ClaimID:   c.ID,
			Recipient: c.Claimant.ID,
			Title:     "Claim assignment accepted",
			Body: fmt.Sprintf("Claim %s has been assigned from %s to %s.",
				c.ID, evt.GetPayloadString(event.KeyPrevOwner), assignee),
		}
	} else {
		n = port.Notification{
			ClaimID:   c.ID,
			Recipient: c.Claimant.ID,
			Title:     "Claim assignment rejected",
			Body: fmt.Sprintf("The assignment of claim %s to %s was rejected: %s",
				c.ID, assignee, evt.GetPayloadString(event.KeyReason)),
		}
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("notify %s: %w", n.Recipient, err)
	}

	s.logger.Info("Assignment notification sent",
		"claim_id", c.ID,
		"recipient", n.Recipient,
		"accepted", accepted,
	)
	return nil
}

func stageName(stage string) string {
	switch stage {
	case "ADMISSION":
		return "admission"
	default:
		return "verification"
	}
}
