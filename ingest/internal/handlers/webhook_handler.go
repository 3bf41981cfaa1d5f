package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/telhawk-systems/telhawk-reviews/common/httputil"
	"github.com/telhawk-systems/telhawk-reviews/common/logging"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/metrics"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/models"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/ratelimit"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/service"
	"github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"
)

// DefaultMaxBodyBytes bounds webhook bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// Response bodies. Rejections never say more than these.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgTooManyRequests  = "Too many requests"
	msgInvalidSignature = "Invalid signature"
	msgInvalidBody      = "Invalid request body"
	msgInvalidTimestamp = "Invalid timestamp"
	msgInvalidPayload   = "Invalid payload"
	msgStoreFailed      = "Failed to store review request"
	msgInternal         = "Internal server error"

	msgScheduled = "Review request scheduled"
	msgIgnored   = "Event type not relevant"
	msgDuplicate = "Review request already scheduled"
)

// WebhookService is the part of service.IngestService the handlers use.
type WebhookService interface {
	Process(ctx context.Context, d service.Delivery) (*service.Result, error)
	Ready(ctx context.Context) error
	GetStats() models.DeliveryStats
}

type Options struct {
	SignatureHeader string
	MaxBodyBytes    int64
	RateLimiter     ratelimit.RateLimiter
	// TrustProxyHeaders keys rate limiting and logs on X-Forwarded-For /
	// X-Real-IP. Leave off unless a proxy in front overwrites them.
	TrustProxyHeaders bool
}

type WebhookHandler struct {
	service         WebhookService
	signatureHeader string
	maxBodyBytes    int64
	limiter         ratelimit.RateLimiter
	trustProxy      bool
	logger          *logging.Logger
}

func NewWebhookHandler(svc WebhookService, opts Options, logger *logging.Logger) *WebhookHandler {
	if opts.SignatureHeader == "" {
		opts.SignatureHeader = nexhealth.HeaderSignature
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = &ratelimit.NoOpRateLimiter{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		service:         svc,
		signatureHeader: http.CanonicalHeaderKey(opts.SignatureHeader),
		maxBodyBytes:    opts.MaxBodyBytes,
		limiter:         opts.RateLimiter,
		trustProxy:      opts.TrustProxyHeaders,
		logger:          logger,
	}
}

// HandleWebhook receives one NexHealth delivery and writes exactly one
// JSON response.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	receivedAt := time.Now()
	ctx := r.Context()

	if r.Method != http.MethodPost {
		metrics.RecordOutcome(metrics.OutcomeMethodNotAllowed)
		w.Header().Set("Allow", http.MethodPost)
		httputil.WriteError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	clientIP := httputil.ClientIP(r, h.trustProxy)

	allowed, err := h.limiter.Allow(ctx, clientIP)
	if err != nil {
		// Fail open when the limiter backend is unavailable.
		h.logger.WarnContext(ctx, "Rate limit check failed", logging.Error(err), logging.IP(clientIP))
	} else if !allowed {
		metrics.RecordOutcome(metrics.OutcomeRateLimited)
		h.logger.WarnContext(ctx, "Webhook rate limited", logging.IP(clientIP))
		httputil.WriteError(w, http.StatusTooManyRequests, msgTooManyRequests)
		return
	}

	signature, ok := h.signature(r)
	if !ok {
		metrics.RecordOutcome(metrics.OutcomeInvalidSignature)
		h.logger.WarnContext(ctx, "Webhook signature header missing or malformed",
			slog.Bool("signature_present", len(r.Header.Values(h.signatureHeader)) > 0),
			logging.IP(clientIP),
		)
		httputil.WriteError(w, http.StatusBadRequest, msgInvalidSignature)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		metrics.RecordOutcome(metrics.OutcomeBadRequest)
		var tooLarge *http.MaxBytesError
		h.logger.DebugContext(ctx, "Failed to read webhook body",
			logging.Error(err),
			slog.Bool("too_large", errors.As(err, &tooLarge)),
		)
		httputil.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	metrics.DeliveryBytesTotal.Add(float64(len(body)))

	res, err := h.service.Process(ctx, service.Delivery{
		Payload:    body,
		Signature:  signature,
		ReceivedAt: receivedAt,
		ClientIP:   clientIP,
	})
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	switch res.Outcome {
	case service.OutcomeScheduled:
		metrics.RecordOutcome(metrics.OutcomeScheduled)
		httputil.WriteMessage(w, http.StatusOK, msgScheduled)
	case service.OutcomeDuplicate:
		metrics.RecordOutcome(metrics.OutcomeDuplicate)
		httputil.WriteMessage(w, http.StatusOK, msgDuplicate)
	case service.OutcomeIgnored:
		metrics.RecordOutcome(metrics.OutcomeIgnored)
		httputil.WriteMessage(w, http.StatusOK, msgIgnored)
	default:
		metrics.RecordOutcome(metrics.OutcomeInternalError)
		httputil.WriteError(w, http.StatusInternalServerError, msgInternal)
	}
}

// signature returns the single signature header value if it is well formed.
func (h *WebhookHandler) signature(r *http.Request) (string, bool) {
	values := r.Header.Values(h.signatureHeader)
	if len(values) != 1 {
		return "", false
	}
	if !nexhealth.IsWellFormedSignature(values[0]) {
		return "", false
	}
	return values[0], true
}

func (h *WebhookHandler) writeProcessError(w http.ResponseWriter, err error) {
	switch service.KindOf(err) {
	case service.KindInvalidSignature:
		metrics.RecordOutcome(metrics.OutcomeInvalidSignature)
		httputil.WriteError(w, http.StatusUnauthorized, msgInvalidSignature)
	case service.KindStaleTimestamp:
		metrics.RecordOutcome(metrics.OutcomeStaleTimestamp)
		httputil.WriteError(w, http.StatusBadRequest, msgInvalidTimestamp)
	case service.KindInvalidPayload:
		metrics.RecordOutcome(metrics.OutcomeInvalidPayload)
		httputil.WriteError(w, http.StatusBadRequest, msgInvalidPayload)
	case service.KindPersistence:
		metrics.RecordOutcome(metrics.OutcomePersistenceError)
		httputil.WriteError(w, http.StatusInternalServerError, msgStoreFailed)
	default:
		metrics.RecordOutcome(metrics.OutcomeInternalError)
		httputil.WriteError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *WebhookHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ready(ctx); err != nil {
		h.logger.WarnContext(ctx, "Readiness check failed", logging.Error(err))
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"stats":  h.service.GetStats(),
	})
}
