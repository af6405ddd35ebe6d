package httpremote

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/c0deZ3R0/go-mutation-kit/codec"
	mutErrors "github.com/c0deZ3R0/go-mutation-kit/errors"
	"github.com/c0deZ3R0/go-mutation-kit/logging"
	"github.com/c0deZ3R0/go-mutation-kit/mutationkit"
)

// Limits defines size and compression limits for the HTTP client
type Limits struct {
	MaxBodyBytes int64 // Maximum response body size in bytes
	EnableGzip   bool  // Whether to gzip request bodies
	GzipMinBytes int   // Minimum bytes before applying gzip compression
}

// Client submits mutations to an HTTP endpoint and classifies the result.
type Client struct {
	endpoint string
	http     *http.Client
	limits   Limits
	retry    RetryConfig
	codecs   *codec.Registry
	logger   *logging.Logger
}

// ClientOption configures a Client using the functional options pattern
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(cl *http.Client) ClientOption {
	return func(c *Client) {
		c.http = cl
	}
}

// WithLimits sets the size and compression limits
func WithLimits(l Limits) ClientOption {
	return func(c *Client) {
		c.limits = l
	}
}

// WithRetryConfig sets the retry policy for retryable submit failures
func WithRetryConfig(rc RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = rc
	}
}

// WithCodecRegistry sets the registry used to decode canonical entities
func WithCodecRegistry(r *codec.Registry) ClientOption {
	return func(c *Client) {
		c.codecs = r
	}
}

// WithClientLogger sets the structured logger
func WithClientLogger(l *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates an HTTP mutation client posting to endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		limits: Limits{
			MaxBodyBytes: 8 << 20, // 8MB
			EnableGzip:   false,
			GzipMinBytes: 1024, // 1KB
		},
		retry:  DefaultRetryConfig,
		codecs: codec.DefaultRegistry,
		logger: logging.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoint returns the mutation endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Submit implements mutationkit.Remote. The final outcome is always one of
// confirmed, rejected or unknown; errors are returned only when the request
// could not be encoded at all.
func (c *Client) Submit(ctx context.Context, req mutationkit.MutationRequest) (mutationkit.Outcome, error) {
	wire, err := EncodeMutation(req)
	if err != nil {
		return mutationkit.Outcome{}, mutErrors.E(
			mutErrors.OpSubmit,
			mutErrors.Component("httpremote"),
			mutErrors.KindInvalid,
			err,
		)
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return mutationkit.Outcome{}, mutErrors.E(
			mutErrors.OpSubmit,
			mutErrors.Component("httpremote"),
			mutErrors.KindInvalid,
			err,
		)
	}

	var outcome mutationkit.Outcome
	retryErr := withRetry(ctx, c.retry, func() (bool, error) {
		o, retryable, err := c.post(ctx, body)
		if err != nil {
			return retryable, err
		}
		outcome = o
		return false, nil
	})

	if retryErr != nil {
		c.logger.DebugContext(ctx, "mutation submit degraded to unknown",
			slog.String("entity_id", req.EntityID),
			slog.String("kind", string(req.Kind)),
			slog.String("error", retryErr.Error()),
		)
		return mutationkit.Unknown(retryErr.Error()), nil
	}

	return outcome, nil
}

// post performs one HTTP exchange. The bool return marks failures worth
// retrying (transport errors and 5xx responses).
func (c *Client) post(ctx context.Context, body []byte) (mutationkit.Outcome, bool, error) {
	reqBody, encoding, err := c.compress(body)
	if err != nil {
		return mutationkit.Outcome{}, false, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, reqBody)
	if err != nil {
		return mutationkit.Outcome{}, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if encoding != "" {
		httpReq.Header.Set("Content-Encoding", encoding)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return mutationkit.Outcome{}, true, fmt.Errorf("mutation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.limits.MaxBodyBytes))
	if err != nil {
		return mutationkit.Outcome{}, true, fmt.Errorf("failed to read mutation response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if len(respBody) == 0 {
			return mutationkit.Confirmed(nil), false, nil
		}
		var wire WireOutcome
		if err := json.Unmarshal(respBody, &wire); err != nil {
			// The server accepted the mutation but the confirmation is
			// unreadable. Not retryable: resubmitting would double-apply.
			return mutationkit.Unknown(fmt.Sprintf("malformed confirmation: %v", err)), false, nil
		}
		outcome, err := DecodeOutcome(wire, c.codecs)
		if err != nil {
			return mutationkit.Unknown(fmt.Sprintf("malformed confirmation: %v", err)), false, nil
		}
		return outcome, false, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return mutationkit.Rejected(rejectionReason(respBody, resp.StatusCode)), false, nil

	default:
		return mutationkit.Outcome{}, true,
			fmt.Errorf("mutation endpoint returned status %d", resp.StatusCode)
	}
}

// compress gzips the request body when it exceeds the configured threshold.
func (c *Client) compress(body []byte) (io.Reader, string, error) {
	if !c.limits.EnableGzip || len(body) < c.limits.GzipMinBytes {
		return bytes.NewReader(body), "", nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		return nil, "", fmt.Errorf("failed to compress mutation body: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to compress mutation body: %w", err)
	}
	return &buf, "gzip", nil
}

// rejectionReason extracts the server's reason from a 4xx body.
func rejectionReason(body []byte, statusCode int) string {
	var wire WireOutcome
	if err := json.Unmarshal(body, &wire); err == nil && wire.Reason != "" {
		return wire.Reason
	}
	var fallback map[string]string
	if err := json.Unmarshal(body, &fallback); err == nil && fallback["error"] != "" {
		return fallback["error"]
	}
	return http.StatusText(statusCode)
}

// Close implements mutationkit.Remote.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
