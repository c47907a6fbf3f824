package container

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/advisor"
	"github.com/garyjia/claim-review/internal/application/dispatcher"
	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/config"
	"github.com/garyjia/claim-review/internal/infrastructure/external/kafka"
	"github.com/garyjia/claim-review/internal/infrastructure/external/lark"
	"github.com/garyjia/claim-review/internal/infrastructure/external/openai"
	"github.com/garyjia/claim-review/internal/infrastructure/persistence/memory"
	"github.com/garyjia/claim-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/claim-review/internal/infrastructure/storage"
	"github.com/garyjia/claim-review/pkg/database"
)

// StoreBundle groups the claim store ports
type StoreBundle struct {
	Claims port.ClaimRepository
	Audit  port.AuditRepository
	Tx     port.TransactionManager

	// DB is set for the sqlite driver only
	DB *sqlite.DB
}

// ProvideStore opens the configured claim store and migrates it
func ProvideStore(cfg config.DatabaseConfig, logger *zap.Logger) (*StoreBundle, error) {
	if cfg.Driver == "memory" {
		s := memory.NewStore()
		return &StoreBundle{Claims: s.Claims(), Audit: s.Audit(), Tx: s}, nil
	}

	db, err := sqlite.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return &StoreBundle{
		Claims: sqlite.NewClaimRepository(db, logger),
		Audit:  sqlite.NewAuditRepository(db, logger),
		Tx:     db,
		DB:     db,
	}, nil
}

// DocumentBundle groups document access
type DocumentBundle struct {
	Store  port.DocumentStore
	Writer port.DocumentWriter
}

// ProvideDocuments creates the configured document backend
func ProvideDocuments(ctx context.Context, cfg config.DocumentsConfig, logger *zap.Logger) (*DocumentBundle, error) {
	switch cfg.Backend {
	case "s3":
		client, err := storage.NewS3Client(ctx, storage.S3Config{
			Region:   cfg.Region,
			Bucket:   cfg.Bucket,
			Prefix:   cfg.Prefix,
			Endpoint: cfg.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		s := storage.NewS3DocumentStore(client, cfg.Bucket, cfg.Prefix, logger)
		return &DocumentBundle{Store: s, Writer: s}, nil
	default:
		s := storage.NewLocalDocumentStore(cfg.BaseDir, logger)
		return &DocumentBundle{Store: s, Writer: s}, nil
	}
}

// ProvideAdvisor creates the rule-based advisor, or nil when disabled
func ProvideAdvisor(cfg config.AdvisorConfig, docs port.DocumentStore) (port.Advisor, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opts := []advisor.Option{advisor.WithDocumentStore(docs)}
	if cfg.Factor != "" {
		factor, err := decimal.NewFromString(cfg.Factor)
		if err != nil {
			return nil, fmt.Errorf("advisor.factor: %w", err)
		}
		if factor.IsNegative() || factor.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("advisor.factor must be between 0 and 1, got %s", factor)
		}
		opts = append(opts, advisor.WithFactor(factor))
	}
	if cfg.VocabularyPath != "" {
		vocab, err := advisor.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, advisor.WithVocabulary(vocab))
	}
	return advisor.NewRuleBased(opts...), nil
}

// ProvideValidator creates the vision document validator, or nil when disabled
func ProvideValidator(cfg config.OpenAIConfig, docs port.DocumentStore, logger *zap.Logger) (port.DocumentValidator, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var prompts *openai.PromptConfig
	if cfg.PromptsPath != "" {
		p, err := openai.LoadPrompts(cfg.PromptsPath)
		if err != nil {
			return nil, err
		}
		prompts = p
	}

	clientCfg := openai.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		MaxPages: cfg.MaxPages,
	}
	return openai.NewDocumentValidator(openai.NewClient(clientCfg), docs, clientCfg, prompts, logger), nil
}

// ProvideNotifier creates the Lark notifier, or nil when disabled
func ProvideNotifier(cfg config.LarkConfig, logger *zap.Logger) port.Notifier {
	if !cfg.Enabled {
		return nil
	}
	larkCfg := lark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveIDType: cfg.ReceiveIDType,
		Recipients:    cfg.Recipients,
	}
	return lark.NewNotifier(lark.NewMessageAPI(larkCfg, logger), larkCfg, logger)
}

// ProvidePublisher creates the Kafka event publisher, or nil when disabled
func ProvidePublisher(cfg config.KafkaConfig, logger *zap.Logger) *kafka.Publisher {
	if !cfg.Enabled {
		return nil
	}
	writer := kafka.NewWriter(kafka.Config{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	})
	return kafka.NewPublisher(writer, logger)
}

// ProvideDispatcher creates the event dispatcher
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(NewLoggerAdapter(logger)))
}

// LoggerAdapter adapts zap.Logger to the key-value Logger interfaces of the
// application and interface layers
type LoggerAdapter struct {
	logger *zap.Logger
}

// NewLoggerAdapter wraps logger
func NewLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{logger: logger}
}

func (a *LoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *LoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
