package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/review"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

var (
	// ErrPoolFull is returned when the job queue has no free slot
	ErrPoolFull = fmt.Errorf("%w: advisor queue full", claim.ErrAdvisorUnavailable)

	// ErrPoolStopped is returned for jobs submitted outside Start and Stop
	ErrPoolStopped = fmt.Errorf("%w: advisor pool stopped", claim.ErrAdvisorUnavailable)
)

// PoolConfig sizes the advisor pool
type PoolConfig struct {
	Workers   int
	QueueSize int
}

// AdvisorPool runs advisor jobs on a fixed set of goroutines. Jobs receive
// the pool context, which is cancelled on Stop; queued jobs still run so that
// they can observe the cancellation.
type AdvisorPool struct {
	config PoolConfig
	logger *zap.Logger

	mu      sync.Mutex
	queue   chan func(ctx context.Context)
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var (
	_ review.Runner = (*AdvisorPool)(nil)
	_ Worker        = (*AdvisorPool)(nil)
)

// NewAdvisorPool creates a stopped pool
func NewAdvisorPool(cfg PoolConfig, logger *zap.Logger) *AdvisorPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &AdvisorPool{config: cfg, logger: logger}
}

// Name implements Worker
func (p *AdvisorPool) Name() string { return "advisor-pool" }

// Start launches the workers
func (p *AdvisorPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("advisor pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.queue = make(chan func(ctx context.Context), p.config.QueueSize)
	p.running = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, p.queue)
	}
	return nil
}

// Stop cancels running jobs and waits for the queue to drain
func (p *AdvisorPool) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.cancel()
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Go queues job without blocking
func (p *AdvisorPool) Go(job func(ctx context.Context)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return ErrPoolStopped
	}
	select {
	case p.queue <- job:
		return nil
	default:
		p.logger.Warn("Advisor queue full", zap.Int("queue_size", p.config.QueueSize))
		return ErrPoolFull
	}
}

func (p *AdvisorPool) loop(ctx context.Context, queue <-chan func(ctx context.Context)) {
	defer p.wg.Done()
	for job := range queue {
		p.run(ctx, job)
	}
}

func (p *AdvisorPool) run(ctx context.Context, job func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Advisor job panicked", zap.Any("panic", r))
		}
	}()
	job(ctx)
}
