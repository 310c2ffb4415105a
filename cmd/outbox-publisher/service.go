package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fleetops-backend/pkg/config"
	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
	"github.com/angelmondragon/fleetops-backend/pkg/metrics"
	"github.com/angelmondragon/fleetops-backend/pkg/outbox/registry"
)

const maxIdleBackoff = 10 * time.Second

type (
	txRunner interface {
		Ping(context.Context) error
		WithTx(context.Context, func(tx *gorm.DB) error) error
	}
	topicSource interface {
		Ping(context.Context) error
		Publisher(name string) *gcppubsub.Publisher
	}
	outboxRepository interface {
		FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
		MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
		MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
		MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
	}
	dlqWriter interface {
		InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
	}
	eventResolver interface {
		Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
	}
	publisher interface {
		Publish(context.Context, *gcppubsub.Message) publishResult
	}
	publishResult interface {
		Get(context.Context) (string, error)
	}
)

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         txRunner
	PubSub     topicSource
	Repository outboxRepository
	Registry   eventResolver
	// PublisherFactory overrides topic lookup on PubSub; tests use it.
	PublisherFactory func(topic string) publisher
	DLQRepository    dlqWriter
	Metrics          *metrics.OutboxMetrics
}

// Service relays committed outbox rows to Pub/Sub. Journey events are keyed
// by truck and notification events by ledger so subscribers apply them in
// commit order. Rows that can never publish are copied to the DLQ.
type Service struct {
	logg             *logger.Logger
	db               txRunner
	pubsub           topicSource
	repo             outboxRepository
	registry         eventResolver
	dlq              dlqWriter
	metrics          *metrics.OutboxMetrics
	publisherFactory func(topic string) publisher

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	required := []struct {
		ok   bool
		name string
	}{
		{p.Config != nil, "config"},
		{p.Logger != nil, "logger"},
		{p.DB != nil, "database client"},
		{p.PubSub != nil, "pubsub client"},
		{p.Repository != nil, "outbox repository"},
		{p.Registry != nil, "event registry"},
		{p.DLQRepository != nil, "dlq repository"},
	}
	for _, r := range required {
		if !r.ok {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	factory := p.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			if pub := p.PubSub.Publisher(topic); pub != nil {
				return gcpPublisher{pub}
			}
			return nil
		}
	}

	cfg := p.Config.Outbox
	return &Service{
		logg:             p.Logger,
		db:               p.DB,
		pubsub:           p.PubSub,
		repo:             p.Repository,
		registry:         p.Registry,
		dlq:              p.DLQRepository,
		metrics:          p.Metrics,
		publisherFactory: factory,
		batchSize:        positiveOr(cfg.BatchSize, 50),
		maxAttempts:      positiveOr(cfg.MaxAttempts, 10),
		pollInterval:     time.Duration(positiveOr(cfg.PollIntervalMS, 500)) * time.Millisecond,
	}, nil
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// Run polls until ctx is cancelled. Full batches are drained back to back;
// failing batches back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	delay := newBackoff(s.pollInterval, maxIdleBackoff)
	for ctx.Err() == nil {
		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = delay.fail()
		case processed:
			delay.reset()
			continue
		default:
			wait = delay.reset()
		}
		if err := sleepCtx(ctx, wait); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher stopping")
	return ctx.Err()
}

// processBatch locks up to batchSize rows and relays each one.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var processed bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		processed = len(events) > 0
		for _, event := range events {
			outcome, err := s.relay(ctx, tx, event)
			if err != nil {
				return err
			}
			s.metrics.Inc(string(event.EventType), outcome)
		}
		return nil
	})
	return processed, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.pub.Publish(ctx, msg)
}
