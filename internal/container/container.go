// Package container wires the claim review service: it builds components in
// dependency order and tears them down in reverse.
package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/dispatcher"
	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/application/review"
	"github.com/garyjia/claim-review/internal/application/service"
	"github.com/garyjia/claim-review/internal/config"
	"github.com/garyjia/claim-review/internal/infrastructure/external/kafka"
	"github.com/garyjia/claim-review/internal/infrastructure/metrics"
	"github.com/garyjia/claim-review/internal/infrastructure/report"
	"github.com/garyjia/claim-review/internal/infrastructure/worker"
)

// Container manages all application dependencies and lifecycle
type Container struct {
	config *config.Config
	logger *zap.Logger

	store     *StoreBundle
	documents *DocumentBundle
	validator port.DocumentValidator
	advisor   port.Advisor
	notifier  port.Notifier
	publisher *kafka.Publisher
	metrics   *metrics.EngineMetrics

	dispatcher dispatcher.Dispatcher
	engine     *review.Engine
	pool       *worker.AdvisorPool
	workers    *worker.Manager

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// New creates a container from configuration. Call Start to build it.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Container{config: cfg, logger: logger}, nil
}

// Start builds every component and starts the workers. Order: store,
// documents, external clients, dispatcher, engine, services, workers.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	steps := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"store", c.initStore},
		{"documents", c.initDocuments},
		{"external clients", c.initExternalClients},
		{"engine", c.initEngine},
		{"services", c.initServices},
		{"workers", c.initWorkers},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Component initialized", zap.String("component", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started")
	return nil
}

// Close shuts components down in reverse order
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}
	err := c.teardown()
	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}
	c.logger.Info("Container closed")
	return nil
}

// teardown stops whatever was built. Advisor jobs finish before the
// dispatcher closes because they publish events.
func (c *Container) teardown() error {
	var errs []error

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}
	if c.engine != nil {
		c.engine.Close()
	}
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka publisher: %w", err))
		}
	}
	if c.store != nil && c.store.DB != nil {
		if err := c.store.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ready returns true when all components are initialized
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{Overall: true, Components: make(map[string]ComponentHealth)}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.store == nil:
		set("database", false, "not initialized")
	case c.store.DB == nil:
		set("database", true, "in-memory")
	default:
		if err := c.store.DB.Ping(); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.workers != nil {
		set("workers", c.workers.IsRunning(), "")
	} else {
		set("workers", false, "not initialized")
	}

	if c.dispatcher != nil {
		set("dispatcher", true, "")
	} else {
		set("dispatcher", false, "not initialized")
	}

	return status
}

func (c *Container) initStore(ctx context.Context) error {
	store, err := ProvideStore(c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.store = store
	return nil
}

func (c *Container) initDocuments(ctx context.Context) error {
	docs, err := ProvideDocuments(ctx, c.config.Documents, c.logger)
	if err != nil {
		return err
	}
	c.documents = docs
	return nil
}

func (c *Container) initExternalClients(ctx context.Context) error {
	validator, err := ProvideValidator(c.config.OpenAI, c.documents.Store, c.logger)
	if err != nil {
		return err
	}
	c.validator = validator

	advisor, err := ProvideAdvisor(c.config.Advisor, c.documents.Store)
	if err != nil {
		return err
	}
	c.advisor = advisor

	c.notifier = ProvideNotifier(c.config.Lark, c.logger)
	c.publisher = ProvidePublisher(c.config.Kafka, c.logger)
	c.metrics = metrics.New()
	return nil
}

func (c *Container) initEngine(ctx context.Context) error {
	c.dispatcher = ProvideDispatcher(c.logger)
	c.pool = worker.NewAdvisorPool(worker.PoolConfig{
		Workers:   c.config.Engine.AdvisorWorkers,
		QueueSize: c.config.Engine.AdvisorQueueSize,
	}, c.logger)

	opts := []review.Option{
		review.WithDispatcher(c.dispatcher),
		review.WithMetrics(c.metrics),
		review.WithRunner(c.pool),
		review.WithLogger(NewLoggerAdapter(c.logger)),
		review.WithRequireAllocation(c.config.Engine.RequireAllocation),
		review.WithAdvisorTimeout(c.config.Engine.AdvisorTimeout),
	}
	if c.advisor != nil {
		opts = append(opts, review.WithAdvisor(c.advisor))
	}
	if c.validator != nil {
		opts = append(opts, review.WithDocumentValidator(c.validator))
	}

	c.engine = review.NewEngine(c.store.Claims, c.store.Audit, c.store.Tx, opts...)
	return nil
}

func (c *Container) initServices(ctx context.Context) error {
	logger := NewLoggerAdapter(c.logger)

	if c.notifier != nil {
		service.NewNotificationService(c.engine, c.notifier, logger).Register(c.dispatcher)
	}
	if c.config.Report.Enabled {
		generator := report.NewExcelGenerator(c.documents.Writer, c.config.Report.Prefix, c.logger)
		service.NewReportService(c.engine, generator, logger).Register(c.dispatcher)
	}
	if c.publisher != nil {
		service.NewEventForwarder(c.publisher).Register(c.dispatcher)
	}
	return nil
}

func (c *Container) initWorkers(ctx context.Context) error {
	c.workers = worker.NewManager(c.logger)
	c.workers.Register(c.pool)
	return c.workers.StartAll(ctx)
}

// Engine returns the claim review engine
func (c *Container) Engine() *review.Engine {
	return c.engine
}

// Metrics returns the Prometheus metrics
func (c *Container) Metrics() *metrics.EngineMetrics {
	return c.metrics
}

// Dispatcher returns the event dispatcher
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Logger returns the container's logger
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration
func (c *Container) Config() *config.Config {
	return c.config
}
