// Package review is the claim review engine. Every command locks its claim,
// runs in one transaction that saves the claim together with exactly one
// audit entry, and publishes events only after commit.
package review

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/claim-review/internal/application/auditlog"
	"github.com/garyjia/claim-review/internal/application/dispatcher"
	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Runner executes background advisor jobs
type Runner interface {
	Go(job func(ctx context.Context)) error
}

// Engine executes review commands against claims
type Engine struct {
	claims     port.ClaimRepository
	trail      *auditlog.Log
	tx         port.TransactionManager
	advisor    port.Advisor
	validator  port.DocumentValidator
	dispatcher dispatcher.Dispatcher
	metrics    port.Metrics
	runner     Runner
	logger     Logger
	locks      *claimLocks
	now        func() time.Time

	requireAllocation bool
	advisorTimeout    time.Duration

	background *goRunner
}

// Option configures the engine
type Option func(*Engine)

// WithAdvisor enables platform figure suggestions
func WithAdvisor(a port.Advisor) Option {
	return func(e *Engine) { e.advisor = a }
}

// WithDocumentValidator enables assignment document quality checks
func WithDocumentValidator(v port.DocumentValidator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithDispatcher sets the dispatcher that receives committed events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithMetrics sets the metrics sink
func WithMetrics(m port.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRunner sets the executor of advisor jobs
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithLogger sets the engine logger
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source of claims and audit entries
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRequireAllocation parks submitted claims until a verifier is allocated
func WithRequireAllocation(v bool) Option {
	return func(e *Engine) { e.requireAllocation = v }
}

// WithAdvisorTimeout bounds a single advisor run
func WithAdvisorTimeout(d time.Duration) Option {
	return func(e *Engine) { e.advisorTimeout = d }
}

// NewEngine creates an engine over the given repositories
func NewEngine(
	claims port.ClaimRepository,
	auditRepo port.AuditRepository,
	tx port.TransactionManager,
	opts ...Option,
) *Engine {
	e := &Engine{
		claims:         claims,
		tx:             tx,
		metrics:        nopMetrics{},
		logger:         nopLogger{},
		locks:          newClaimLocks(),
		now:            time.Now,
		advisorTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.background = &goRunner{}
		e.runner = e.background
	}
	e.trail = auditlog.New(auditRepo, auditlog.WithClock(e.now))
	return e
}

// Close waits for advisor jobs started on the built-in runner
func (e *Engine) Close() {
	if e.background != nil {
		e.background.wait()
	}
}

// change is what a command wants persisted
type change struct {
	draft     audit.Draft
	events    []*event.Event
	noop      bool // nothing to save and nothing to audit
	auditOnly bool // audit entry without a claim save
}

type mutation func(ctx context.Context, c *claim.Claim) (*change, error)

// execute runs fn on a private copy of the claim and commits the copy with
// one audit entry. A failing fn leaves the stored claim untouched.
func (e *Engine) execute(ctx context.Context, command, claimID string, actor claim.Actor, fn mutation) (*claim.Claim, error) {
	start := time.Now()
	if err := validateActor(actor); err != nil {
		return nil, e.finish(command, claimID, actor, start, err)
	}
	if strings.TrimSpace(claimID) == "" {
		return nil, e.finish(command, claimID, actor, start, claim.NewValidationError("claim_id"))
	}

	unlock := e.locks.Lock(claimID)
	defer unlock()

	var result *claim.Claim
	var ch *change
	err := e.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := e.claims.GetByID(txCtx, claimID)
		if err != nil {
			return err
		}
		work := current.Clone()
		ch, err = fn(txCtx, work)
		if err != nil {
			return err
		}
		if ch.noop {
			result = current
			return nil
		}
		if ch.auditOnly {
			result = current
			return e.appendAudit(txCtx, claimID, ch.draft)
		}
		if err := e.persist(txCtx, work, ch.draft, false); err != nil {
			return err
		}
		result = work
		return nil
	})
	if err != nil {
		return nil, e.finish(command, claimID, actor, start, err)
	}

	e.publish(ctx, ch, actor)
	e.finish(command, claimID, actor, start, nil)
	return result.Clone(), nil
}

// create stores a new claim with its first audit entry
func (e *Engine) create(ctx context.Context, command string, c *claim.Claim, actor claim.Actor, ch *change) (*claim.Claim, error) {
	start := time.Now()

	unlock := e.locks.Lock(c.ID)
	defer unlock()

	err := e.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return e.persist(txCtx, c, ch.draft, true)
	})
	if err != nil {
		return nil, e.finish(command, c.ID, actor, start, err)
	}

	e.publish(ctx, ch, actor)
	e.finish(command, c.ID, actor, start, nil)
	return c.Clone(), nil
}

func (e *Engine) persist(ctx context.Context, c *claim.Claim, draft audit.Draft, isNew bool) error {
	c.UpdatedAt = e.now().UTC()
	if err := c.CheckInvariants(); err != nil {
		return fmt.Errorf("refusing to save claim %s: %w", c.ID, err)
	}

	if isNew {
		c.CreatedAt = c.UpdatedAt
		if err := e.claims.Create(ctx, c); err != nil {
			return fmt.Errorf("create claim: %w", err)
		}
	} else if err := e.claims.Update(ctx, c); err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	return e.appendAudit(ctx, c.ID, draft)
}

func (e *Engine) appendAudit(ctx context.Context, claimID string, draft audit.Draft) error {
	_, err := e.trail.Append(ctx, claimID, draft)
	return err
}

func (e *Engine) publish(ctx context.Context, ch *change, actor claim.Actor) {
	if e.dispatcher == nil || ch == nil {
		return
	}
	for _, evt := range ch.events {
		e.dispatcher.DispatchAsync(ctx, evt.WithActor(actor.Role.Label()))
	}
}

func (e *Engine) finish(command, claimID string, actor claim.Actor, start time.Time, err error) error {
	kind := claim.Kind(err)
	e.metrics.CommandExecuted(command, kind, time.Since(start))
	if err != nil {
		e.logger.Error("Claim command failed",
			"command", command,
			"claim_id", claimID,
			"actor_role", actor.Role,
			"kind", kind,
			"error", err,
		)
		return err
	}
	e.logger.Info("Claim command executed",
		"command", command,
		"claim_id", claimID,
		"actor_role", actor.Role,
	)
	return nil
}

// GetState returns a snapshot of the claim with all nested records
func (e *Engine) GetState(ctx context.Context, claimID string) (*claim.Claim, error) {
	c, err := e.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// ListClaims returns claim snapshots matching filter
func (e *Engine) ListClaims(ctx context.Context, filter port.ClaimFilter) ([]*claim.Claim, error) {
	return e.claims.List(ctx, filter)
}

// QueryAuditLog returns the claim's lazy, restartable audit sequence
func (e *Engine) QueryAuditLog(ctx context.Context, claimID string) (iter.Seq2[audit.Entry, error], error) {
	if _, err := e.claims.GetByID(ctx, claimID); err != nil {
		return nil, err
	}
	return e.trail.Query(ctx, claimID), nil
}

// AuditTrail returns every audit entry of the claim
func (e *Engine) AuditTrail(ctx context.Context, claimID string) ([]audit.Entry, error) {
	if _, err := e.claims.GetByID(ctx, claimID); err != nil {
		return nil, err
	}
	return e.trail.Collect(ctx, claimID)
}

// VerifyAuditTrail checks the claim's audit hash chain
func (e *Engine) VerifyAuditTrail(ctx context.Context, claimID string) error {
	return e.trail.Verify(ctx, claimID)
}

func validateActor(a claim.Actor) error {
	var fields []string
	if !a.Role.IsValid() {
		fields = append(fields, "actor.role")
	}
	if strings.TrimSpace(a.ID) == "" {
		fields = append(fields, "actor.id")
	}
	if len(fields) > 0 {
		return claim.NewValidationError(fields...)
	}
	return nil
}

func actioner(label string, a claim.Actor) audit.Actioner {
	return audit.Actioner{Label: label, ID: a.ID, Name: a.Name}
}

func newEvent(t event.Type, c *claim.Claim, payload map[string]interface{}) *event.Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload[event.KeyStatus] = c.Status.String()
	return event.NewEvent(t, c.ID, payload)
}

type goRunner struct {
	wg sync.WaitGroup
}

func (r *goRunner) Go(job func(ctx context.Context)) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		job(context.Background())
	}()
	return nil
}

func (r *goRunner) wait() { r.wg.Wait() }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type nopMetrics struct{}

func (nopMetrics) CommandExecuted(string, string, time.Duration) {}
func (nopMetrics) AdvisorResult(string)                          {}
