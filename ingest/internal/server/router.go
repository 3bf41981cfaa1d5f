package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/telhawk-reviews/common/middleware"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/handlers"
)

// DefaultWebhookPath is where NexHealth delivers events.
const DefaultWebhookPath = "/api/nexhealth/webhook"

// NewRouter constructs a ServeMux with the webhook and operational routes.
func NewRouter(h *handlers.WebhookHandler, webhookPath string, logger *slog.Logger) http.Handler {
	if webhookPath == "" {
		webhookPath = DefaultWebhookPath
	}

	mux := http.NewServeMux()

	// NexHealth webhook
	mux.HandleFunc(webhookPath, h.HandleWebhook)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.Recover(logger)(handler)
	handler = middleware.AccessLog(logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
