package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"
)

// NexHealthClient talks to the NexHealth management API to register
// webhook endpoints and subscriptions.
type NexHealthClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewNexHealthClient(baseURL, apiKey string) *NexHealthClient {
	return &NexHealthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WebhookEndpoint is a registered delivery target. SecretKey is only
// returned on creation and must be stored as the receiver's secret.
type WebhookEndpoint struct {
	ID        nexhealth.ID `json:"id"`
	TargetURL string       `json:"target_url"`
	SecretKey string       `json:"secret_key"`
}

type WebhookSubscription struct {
	ID                nexhealth.ID `json:"id"`
	WebhookEndpointID nexhealth.ID `json:"webhook_endpoint_id"`
	EventType         string       `json:"event_type"`
}

// Responses wrap records in a data array; error is a list of messages.
type envelope[T any] struct {
	Code  bool     `json:"code"`
	Data  []T      `json:"data"`
	Error []string `json:"error,omitempty"`
}

// CreateWebhookEndpoint registers targetURL and returns the endpoint with
// its signing secret.
func (c *NexHealthClient) CreateWebhookEndpoint(targetURL string) (*WebhookEndpoint, error) {
	var env envelope[WebhookEndpoint]
	if err := c.post("/webhook_endpoints", map[string]string{"target_url": targetURL}, &env); err != nil {
		return nil, fmt.Errorf("create webhook endpoint: %w", err)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("create webhook endpoint: empty response%s", describeErrors(env.Error))
	}
	ep := env.Data[0]
	if ep.ID == "" {
		return nil, fmt.Errorf("create webhook endpoint: response has no id")
	}
	return &ep, nil
}

// Subscribe subscribes an endpoint to eventType.
func (c *NexHealthClient) Subscribe(endpointID nexhealth.ID, eventType string) (*WebhookSubscription, error) {
	body := map[string]any{
		"webhook_endpoint_id": idValue(endpointID),
		"event_type":          eventType,
	}
	var env envelope[WebhookSubscription]
	if err := c.post("/webhook_subscriptions", body, &env); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", eventType, err)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("subscribe %s: empty response%s", eventType, describeErrors(env.Error))
	}
	return &env.Data[0], nil
}

func (c *NexHealthClient) post(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.Nexhealth+json;version=2")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// idValue sends numeric ids as JSON numbers, the form the API issues them in.
func idValue(id nexhealth.ID) any {
	if n, err := strconv.ParseInt(id.String(), 10, 64); err == nil {
		return n
	}
	return id.String()
}

func describeErrors(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	return ": " + strings.Join(errs, "; ")
}
