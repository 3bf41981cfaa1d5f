package server

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-reviews/common/logging"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/handlers"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/models"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/service"
)

type stubService struct {
	panicOnProcess bool
}

func (s *stubService) Process(ctx context.Context, d service.Delivery) (*service.Result, error) {
	if s.panicOnProcess {
		panic("boom")
	}
	return &service.Result{Outcome: service.OutcomeIgnored}, nil
}

func (s *stubService) Ready(ctx context.Context) error { return nil }

func (s *stubService) GetStats() models.DeliveryStats { return models.DeliveryStats{} }

func newTestRouter(svc *stubService, logBuf *bytes.Buffer) http.Handler {
	logger := logging.NewWithWriter(logBuf, slog.LevelDebug, "json")
	h := handlers.NewWebhookHandler(svc, handlers.Options{}, logger)
	return NewRouter(h, "", logger.Logger)
}

func TestRouter_Endpoints(t *testing.T) {
	var logs bytes.Buffer
	router := newTestRouter(&stubService{}, &logs)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, DefaultWebhookPath, http.StatusMethodNotAllowed},
		{http.MethodPost, DefaultWebhookPath, http.StatusBadRequest}, // no signature header
		{http.MethodGet, "/services/collector/event", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRouter_RequestIDAndAccessLog(t *testing.T) {
	var logs bytes.Buffer
	router := newTestRouter(&stubService{}, &logs)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "req-abc", rr.Header().Get("X-Request-ID"))
	assert.Contains(t, logs.String(), `"request_id":"req-abc"`)
	assert.Contains(t, logs.String(), `"path":"/healthz"`)
}

func TestRouter_PanicRecovered(t *testing.T) {
	var logs bytes.Buffer
	router := newTestRouter(&stubService{panicOnProcess: true}, &logs)

	body := []byte(`{}`)
	req := httptest.NewRequest(http.MethodPost, DefaultWebhookPath, bytes.NewReader(body))
	req.Header.Set("X-Nexhealth-Signature", "0000000000000000000000000000000000000000000000000000000000000000")
	rr := httptest.NewRecorder()

	require.NotPanics(t, func() { router.ServeHTTP(rr, req) })
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
	assert.Contains(t, logs.String(), `"status":500`)
}
