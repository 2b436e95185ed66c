// Package transport performs admitted queue requests against the analytics runtime.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harun/profiler/internal/observability"
	"github.com/harun/profiler/internal/tracing"
	"github.com/harun/profiler/pkg/priority"
	"github.com/harun/profiler/pkg/requestqueue"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// PriorityParam is the query parameter the runtime reads request priority from
const PriorityParam = "priority"

// DefaultTimeout bounds a single runtime call
const DefaultTimeout = 30 * time.Second

// StatusError is returned for non-2xx runtime responses
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("runtime error (status %d): %s", e.StatusCode, e.Message)
}

// Option configures an HTTP transport
type Option func(*HTTP)

// WithTimeout sets the per-call deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) {
		h.timeout = d
	}
}

// WithHTTPClient replaces the underlying client
func WithHTTPClient(client *http.Client) Option {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithHeader adds a static header to every request
func WithHeader(key, value string) Option {
	return func(h *HTTP) {
		h.headers.Set(key, value)
	}
}

// WithBearerToken sets the Authorization header
func WithBearerToken(token string) Option {
	return func(h *HTTP) {
		if token != "" {
			h.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithLogger sets the transport logger
func WithLogger(logger zerolog.Logger) Option {
	return func(h *HTTP) {
		h.logger = logger
	}
}

// HTTP is a requestqueue.Transport backed by net/http
type HTTP struct {
	baseURL string
	client  *http.Client
	headers http.Header
	timeout time.Duration
	logger  zerolog.Logger
}

var _ requestqueue.Transport = (*HTTP)(nil)

// NewHTTP creates a transport rooted at baseURL. An empty or malformed base
// URL is not rejected here; every call then fails with a transport error.
func NewHTTP(baseURL string, opts ...Option) *HTTP {
	h := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		headers: make(http.Header),
		timeout: DefaultTimeout,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With().Str("component", "transport").Logger()
	return h
}

// BaseURL returns the runtime root the transport resolves paths against
func (h *HTTP) BaseURL() string {
	return h.baseURL
}

// Do implements requestqueue.Transport
func (h *HTTP) Do(ctx context.Context, call requestqueue.Call) (*requestqueue.Response, error) {
	target, err := h.resolve(call)
	if err != nil {
		observability.RecordHTTPStatus(0)
		return nil, err
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	var body io.Reader
	if b := call.Spec.Body(); b != nil {
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, call.Spec.Method(), target, body)
	if err != nil {
		observability.RecordHTTPStatus(0)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range h.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if id := tracing.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	logger := tracing.LoggerFromContext(ctx, h.logger)
	start := time.Now()

	resp, err := h.client.Do(req)
	if err != nil {
		observability.RecordHTTPStatus(0)
		logger.Debug().Err(err).Str("method", req.Method).Str("url", target).Msg("Runtime call failed")
		return nil, fmt.Errorf("failed to call runtime: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.RecordHTTPStatus(0)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	observability.RecordHTTPStatus(resp.StatusCode)

	logger.Debug().
		Str("method", req.Method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Runtime call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
			Body:       data,
		}
	}

	return &requestqueue.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (h *HTTP) resolve(call requestqueue.Call) (string, error) {
	if h.baseURL == "" {
		return "", fmt.Errorf("runtime base URL is not configured")
	}

	base, err := url.Parse(h.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid runtime base URL %q: %w", h.baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid runtime base URL %q: missing scheme or host", h.baseURL)
	}

	path := call.Spec.Path()
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	query := call.Spec.Query()
	if query.Get(PriorityParam) == "" {
		query.Set(PriorityParam, strconv.Itoa(priority.Backend(call.Priority)))
	}

	u := *base
	u.Path = strings.TrimRight(base.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// errorMessage extracts the runtime's error text, falling back to the status text.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, field := range []string{"message", "error", "error.message"} {
			if r := gjson.GetBytes(body, field); r.Exists() && r.Type == gjson.String && r.String() != "" {
				return r.String()
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 && !gjson.ValidBytes(body) {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unexpected status"
}
