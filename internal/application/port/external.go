package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/event"
)

// SuggestRequest is the input of a reconciliation run
type SuggestRequest struct {
	ClaimID           string
	ClaimedAmount     decimal.Decimal
	AIAssistanceOpted bool
	Documents         []claim.DocumentRef
}

// Suggestion is a platform figure with its remarks
type Suggestion struct {
	Amount  decimal.Decimal
	Remarks []string
}

// Advisor computes a platform figure. It returns claim.ErrAdvisorUnavailable
// when assistance was not opted into or no qualifying document exists.
type Advisor interface {
	Suggest(ctx context.Context, req SuggestRequest) (*Suggestion, error)
}

// QualityReport is the outcome of a document quality check
type QualityReport struct {
	Acceptable bool
	Issues     []string
}

// DocumentValidator checks a supporting document's quality. Its verdict is
// advisory.
type DocumentValidator interface {
	Check(ctx context.Context, doc claim.DocumentRef) (*QualityReport, error)
}

// Notification is a fire-and-forget message to a participant
type Notification struct {
	ClaimID   string
	Recipient string
	Title     string
	Body      string
}

// Notifier delivers notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ReportGenerator renders the admission report of a decided claim and returns
// the stored document id
type ReportGenerator interface {
	Generate(ctx context.Context, c *claim.Claim, trail []audit.Entry) (string, error)
}

// EventPublisher forwards committed events to external subscribers
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event) error
}

// Metrics records engine activity
type Metrics interface {
	CommandExecuted(command, outcome string, elapsed time.Duration)
	AdvisorResult(outcome string)
}
