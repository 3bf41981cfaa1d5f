package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/telhawk-systems/telhawk-reviews/common/database"
	"github.com/telhawk-systems/telhawk-reviews/common/logging"
	"github.com/telhawk-systems/telhawk-reviews/common/middleware"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/dlq"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/followup"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/metrics"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/models"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/repository"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/validator"
	"github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"
)

// Delivery is one inbound webhook as received. Payload holds the exact
// bytes of the request body; the signature is checked against them.
type Delivery struct {
	Payload    []byte
	Signature  string
	ReceivedAt time.Time
	ClientIP   string
}

// Outcome of an accepted delivery.
type Outcome string

const (
	OutcomeScheduled Outcome = "scheduled"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

// Result describes an accepted delivery. ReviewRequest is set only when
// Outcome is OutcomeScheduled.
type Result struct {
	Outcome       Outcome
	EventType     string
	SourceEventID string
	ReviewRequest *models.ReviewRequest
}

// ScheduledPublisher announces persisted review requests.
type ScheduledPublisher interface {
	PublishScheduled(ctx context.Context, req *models.ReviewRequest) error
}

// DeadLetterWriter parks deliveries that could not be stored.
type DeadLetterWriter interface {
	Write(ctx context.Context, f dlq.FailedDelivery) error
}

// Config holds the pipeline settings.
type Config struct {
	Secret        string
	EventType     string
	MaxSkew       time.Duration
	FollowUpDelay time.Duration
	WriteTimeout  time.Duration
}

// IngestService verifies, filters and schedules webhook deliveries.
// It is safe for concurrent use.
type IngestService struct {
	verifier   *nexhealth.Verifier
	classifier validator.Classifier
	guard      *validator.FreshnessGuard
	scheduler  *followup.Scheduler
	repo       repository.Repository
	publisher  ScheduledPublisher
	deadLetter DeadLetterWriter
	logger     *logging.Logger

	writeTimeout time.Duration
	now          func() time.Time

	stats      models.DeliveryStats
	statsMutex sync.RWMutex
}

func NewIngestService(cfg Config, repo repository.Repository, logger *logging.Logger) *IngestService {
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestService{
		verifier:     nexhealth.NewVerifier(cfg.Secret),
		classifier:   validator.NewClassifier(cfg.EventType),
		guard:        validator.NewFreshnessGuard(cfg.MaxSkew),
		scheduler:    followup.NewScheduler(cfg.FollowUpDelay),
		repo:         repo,
		logger:       logger,
		writeTimeout: cfg.WriteTimeout,
		now:          time.Now,
	}
}

// WithPublisher sets the publisher used after a record is stored.
func (s *IngestService) WithPublisher(p ScheduledPublisher) *IngestService {
	s.publisher = p
	return s
}

// WithDeadLetter sets where deliveries go when the store fails.
func (s *IngestService) WithDeadLetter(w DeadLetterWriter) *IngestService {
	s.deadLetter = w
	return s
}

// WithClock replaces the clock used for deliveries without ReceivedAt.
func (s *IngestService) WithClock(now func() time.Time) *IngestService {
	s.now = now
	s.guard.Now = now
	return s
}

// Process runs a delivery through signature check, classification,
// freshness check, validation, scheduling and persistence, in that order.
// Rejections are returned as *Error.
func (s *IngestService) Process(ctx context.Context, d Delivery) (*Result, error) {
	res, err := s.process(ctx, d)
	s.recordStats(len(d.Payload), res, err)
	return res, err
}

func (s *IngestService) process(ctx context.Context, d Delivery) (*Result, error) {
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = s.now()
	}

	if !s.verifier.Verify(d.Payload, d.Signature) {
		s.logger.WarnContext(ctx, "Webhook signature rejected",
			slog.Bool("signature_present", d.Signature != ""),
			logging.IP(d.ClientIP),
		)
		return nil, &Error{Kind: KindInvalidSignature, Err: errSignatureMismatch}
	}

	webhook, err := nexhealth.ParseWebhook(d.Payload)
	if err != nil {
		s.logger.WarnContext(ctx, "Webhook payload rejected", logging.Error(err), logging.IP(d.ClientIP))
		return nil, &Error{Kind: KindInvalidPayload, Err: err}
	}

	if !s.classifier.IsRelevant(webhook.Type) {
		s.logger.DebugContext(ctx, "Ignoring webhook event", logging.EventType(webhook.Type))
		return &Result{Outcome: OutcomeIgnored, EventType: webhook.Type}, nil
	}

	if skew, ok := validator.Skew(webhook.Timestamp, d.ReceivedAt); ok {
		metrics.TimestampSkew.Observe(skew.Seconds())
	}
	if err := s.guard.CheckAt(webhook.Timestamp, d.ReceivedAt); err != nil {
		var stale *validator.StaleTimestampError
		attrs := []any{logging.ClaimedTimestamp(webhook.Timestamp), logging.IP(d.ClientIP)}
		if errors.As(err, &stale) && stale.Err == nil {
			attrs = append(attrs, logging.Skew(stale.Skew))
		}
		s.logger.WarnContext(ctx, "Webhook timestamp rejected", attrs...)
		return nil, &Error{Kind: KindStaleTimestamp, Err: err}
	}

	appt, err := webhook.DecodeAppointment()
	if err != nil {
		s.logger.WarnContext(ctx, "Webhook payload rejected", logging.Error(err), logging.EventType(webhook.Type))
		return nil, &Error{Kind: KindInvalidPayload, Err: err}
	}

	ev, err := validator.ValidateAppointment(webhook.Type, appt, d.Payload)
	if err != nil {
		s.logValidation(ctx, err)
		return nil, &Error{Kind: KindInvalidPayload, Err: err}
	}

	record, err := s.scheduler.BuildRecord(ev)
	if err != nil {
		s.logValidation(ctx, err)
		return nil, &Error{Kind: KindInvalidPayload, Err: err}
	}

	return s.persist(ctx, record)
}

// persist stores record on a context detached from the caller, so a
// client hanging up mid-insert does not abort the write.
func (s *IngestService) persist(ctx context.Context, record *models.ReviewRequest) (*Result, error) {
	writeCtx, cancel := database.DetachedWriteContext(ctx, s.writeTimeout)
	defer cancel()

	start := time.Now()
	err := s.repo.CreateReviewRequest(writeCtx, record)
	metrics.StoreDuration.Observe(time.Since(start).Seconds())

	if errors.Is(err, repository.ErrReviewRequestExists) {
		s.logger.InfoContext(ctx, "Review request already scheduled",
			logging.SourceEventID(record.SourceEventID),
			logging.OwnerID(record.OwnerID),
		)
		return &Result{
			Outcome:       OutcomeDuplicate,
			EventType:     s.classifier.EventType,
			SourceEventID: record.SourceEventID,
		}, nil
	}
	if err != nil {
		metrics.StoreErrors.Inc()
		s.logger.ErrorContext(ctx, "Failed to store review request",
			logging.SourceEventID(record.SourceEventID),
			logging.OwnerID(record.OwnerID),
			logging.Error(err),
		)
		s.writeDeadLetter(writeCtx, record, err)
		return nil, &Error{Kind: KindPersistence, Err: err}
	}

	s.logger.InfoContext(ctx, "Review request scheduled",
		logging.ReviewRequestID(record.ID),
		logging.SourceEventID(record.SourceEventID),
		logging.OwnerID(record.OwnerID),
		slog.Time("scheduled_send_time", record.ScheduledSendTime),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishScheduled(writeCtx, record); err != nil {
			// Best effort: the stored record is the source of truth.
			metrics.PublishErrors.Inc()
			s.logger.WarnContext(ctx, "Failed to publish scheduled event",
				logging.ReviewRequestID(record.ID),
				logging.Error(err),
			)
		}
	}

	return &Result{
		Outcome:       OutcomeScheduled,
		EventType:     s.classifier.EventType,
		SourceEventID: record.SourceEventID,
		ReviewRequest: record,
	}, nil
}

func (s *IngestService) writeDeadLetter(ctx context.Context, record *models.ReviewRequest, cause error) {
	if s.deadLetter == nil {
		return
	}
	err := s.deadLetter.Write(ctx, dlq.FailedDelivery{
		Reason:        dlq.ReasonPersistence,
		Error:         cause.Error(),
		SourceEventID: record.SourceEventID,
		OwnerID:       record.OwnerID,
		RequestID:     middleware.GetRequestID(ctx),
		Payload:       record.RawWebhookData,
	})
	if err != nil {
		metrics.DeadLettered.WithLabelValues("error").Inc()
		s.logger.ErrorContext(ctx, "Failed to dead-letter delivery",
			logging.SourceEventID(record.SourceEventID),
			logging.Error(err),
		)
		return
	}
	metrics.DeadLettered.WithLabelValues("written").Inc()
	s.logger.WarnContext(ctx, "Delivery dead-lettered",
		logging.SourceEventID(record.SourceEventID),
		slog.String("subject", dlq.Subject(dlq.ReasonPersistence)),
	)
}

func (s *IngestService) logValidation(ctx context.Context, err error) {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		s.logger.WarnContext(ctx, "Webhook payload rejected",
			slog.String("field", verr.Field),
			slog.String("reason", verr.Reason),
		)
		return
	}
	s.logger.WarnContext(ctx, "Webhook payload rejected", logging.Error(err))
}

// Ready reports whether the store is reachable.
func (s *IngestService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *IngestService) recordStats(n int, res *Result, err error) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TotalDeliveries++
	s.stats.TotalBytes += int64(n)
	s.stats.LastDelivery = s.now()

	switch {
	case err != nil:
		if k := KindOf(err); k == KindPersistence || k == KindInternal {
			s.stats.Failed++
		} else {
			s.stats.Rejected++
		}
	case res.Outcome == OutcomeScheduled:
		s.stats.Scheduled++
	case res.Outcome == OutcomeIgnored:
		s.stats.Ignored++
	case res.Outcome == OutcomeDuplicate:
		s.stats.Duplicates++
	}
}

func (s *IngestService) GetStats() models.DeliveryStats {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()
	return s.stats
}
