package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"
)

// WebhookSender posts signed deliveries to a receiver, the way NexHealth
// would. Used for smoke tests against a running ingest service.
type WebhookSender struct {
	url    string
	signer *nexhealth.Verifier
	client *http.Client
}

func NewWebhookSender(url, secret string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		signer: nexhealth.NewVerifier(secret),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendOptions alter a delivery for negative testing.
type SendOptions struct {
	// Tamper flips the first hex digit of the signature.
	Tamper bool
	// Signature overrides the computed signature when non-empty.
	Signature string
}

// SendResult is the receiver's reply.
type SendResult struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Signature  string `json:"signature"`
}

// Send signs payload and posts it. Non-2xx statuses are reported in the
// result, not as errors.
func (s *WebhookSender) Send(payload []byte, opts SendOptions) (*SendResult, error) {
	sig := s.signer.Sign(payload)
	if opts.Signature != "" {
		sig = opts.Signature
	}
	if opts.Tamper {
		sig = tamper(sig)
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(nexhealth.HeaderSignature, sig)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	result := &SendResult{StatusCode: resp.StatusCode, Signature: sig}
	var reply struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &reply); err == nil {
		result.Message = reply.Message
		result.Error = reply.Error
	} else {
		result.Error = strings.TrimSpace(string(body))
	}
	return result, nil
}

func tamper(sig string) string {
	if sig == "" {
		return sig
	}
	b := []byte(sig)
	if b[0] == '0' {
		b[0] = '1'
	} else {
		b[0] = '0'
	}
	return string(b)
}
