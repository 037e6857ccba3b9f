package hawk

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// maxResponseBody bounds how much of an error response body is read for
// the diagnostic log line.
const maxResponseBody = 4 << 10

// TransportError classifies a failed delivery attempt.
type TransportError struct {
	StatusCode  int
	Retryable   bool
	RateLimited bool
	Message     string
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// isRetryable reports whether the worker may attempt the batch again.
// Unclassified errors (marshaling bugs, request construction) are treated
// as fatal — retrying them wastes the retry budget.
func isRetryable(err error) bool {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.Retryable
	}
	return false
}

// HTTPTransport delivers serialized event batches to the collector.
// It is stateless per call: one Send is one network attempt, classification
// of the outcome is left to the caller's retry policy.
type HTTPTransport struct {
	config      *TransportConfig
	endpoint    string
	client      *http.Client
	logger      *zap.Logger
	rateLimiter *RateLimiter
}

// NewHTTPTransport creates a new HTTP transport for the given collector
// endpoint.
func NewHTTPTransport(config *TransportConfig, endpoint string, rateLimiter *RateLimiter, logger *zap.Logger) (*HTTPTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid collector endpoint %q", endpoint)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: config.ConnectTimeout,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !config.SSLVerify,
		},
	}

	// Configure proxy if specified
	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}

	return &HTTPTransport{
		config:      config,
		endpoint:    endpoint,
		client:      client,
		logger:      logger,
		rateLimiter: rateLimiter,
	}, nil
}

// Send performs a single delivery attempt for the batch.
//
// Batch envelope shape: a single event is POSTed as one JSON envelope
// object — the exact shape the collector documents; a multi-event batch is
// POSTed as a JSON array of envelopes. One request per batch keeps retries
// idempotent: a retried batch is resent as-is, never half-delivered.
//
// Returns nil on 2xx, a retryable TransportError on network failure, 429
// or 5xx, and a fatal TransportError on other 4xx responses.
func (t *HTTPTransport) Send(ctx context.Context, batch []*HawkEvent) error {
	if len(batch) == 0 {
		return nil
	}

	req, err := t.createRequest(ctx, batch)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("collector request failed",
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		return &TransportError{Retryable: true, Message: err.Error()}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		t.logger.Debug("batch delivered",
			zap.Int("batch_size", len(batch)),
			zap.Int("status_code", resp.StatusCode))
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode == http.StatusTooManyRequests {
		t.rateLimiter.HandleRetryAfter(resp.Header)
		return &TransportError{
			StatusCode:  resp.StatusCode,
			Retryable:   true,
			RateLimited: true,
			Message:     "rate limited by collector",
		}
	}

	retryable := resp.StatusCode >= 500

	t.logger.Error("collector rejected batch",
		zap.Int("batch_size", len(batch)),
		zap.Int("status_code", resp.StatusCode),
		zap.Bool("retryable", retryable),
		zap.ByteString("response", body))

	return &TransportError{
		StatusCode: resp.StatusCode,
		Retryable:  retryable,
		Message:    string(body),
	}
}

// createRequest serializes the batch and builds the POST request.
func (t *HTTPTransport) createRequest(ctx context.Context, batch []*HawkEvent) (*http.Request, error) {
	var payload any = batch
	if len(batch) == 1 {
		payload = batch[0]
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		// Marshal failure is a bug in event construction, not a network
		// condition — classified fatal.
		return nil, &TransportError{Message: fmt.Sprintf("failed to serialize batch: %v", err)}
	}

	var body io.Reader
	var contentEncoding string

	if t.config.Compression {
		var buf bytes.Buffer
		gzipWriter := gzip.NewWriter(&buf)
		if _, err := gzipWriter.Write(encoded); err != nil {
			return nil, &TransportError{Message: fmt.Sprintf("failed to compress payload: %v", err)}
		}
		if err := gzipWriter.Close(); err != nil {
			return nil, &TransportError{Message: fmt.Sprintf("failed to close gzip writer: %v", err)}
		}
		body = &buf
		contentEncoding = "gzip"
	} else {
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", CatcherVersion)
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}

	return req, nil
}

// Close closes the transport
func (t *HTTPTransport) Close() error {
	if t.client != nil {
		t.client.CloseIdleConnections()
	}
	return nil
}
