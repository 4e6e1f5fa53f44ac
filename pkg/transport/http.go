package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/xrmkit/xrmsoap/pkg/logging"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// ServicePath is the SOAP endpoint below the organization URL.
const ServicePath = "/XRMServices/2011/Organization.svc/web"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 2 * time.Minute

const acceptHeader = "application/xml, text/xml, */*"

// HTTP posts envelopes to the organization's SOAP endpoint.
type HTTP struct {
	endpoint   string
	httpClient *http.Client
	headers    http.Header
	logger     *slog.Logger
}

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithHTTPClient replaces the underlying HTTP client, for custom auth or TLS.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTP) {
		h.httpClient = c
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(h *HTTP) {
		h.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(h *HTTP) {
		h.headers.Add(key, value)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *HTTP) {
		h.logger = logging.Component(l, "transport")
	}
}

// NewHTTP creates a transport for the organization at orgURL, for example
// https://crm.contoso.com/contoso.
func NewHTTP(orgURL string, opts ...Option) *HTTP {
	h := &HTTP{
		endpoint: strings.TrimRight(orgURL, "/") + ServicePath,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		headers: make(http.Header),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Endpoint returns the URL requests are posted to.
func (h *HTTP) Endpoint() string {
	return h.endpoint
}

// Send posts the envelope and parses the response. Non-2xx responses and
// SOAP faults are returned as *Error.
func (h *HTTP) Send(ctx context.Context, envelope, operation string) (*etree.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range h.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Content-Type", soap.SOAP11ContentType)
	req.Header.Set("SOAPAction", soap.ActionFor(operation))

	h.logger.Debug("sending request",
		"operation", operation,
		"bytes", len(envelope),
		"envelope", logging.TruncateBody(envelope, 0))

	start := time.Now()
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	h.logger.Debug("received response",
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := newError(resp.StatusCode, resp.Status, body)
		h.logger.Debug("request failed", "status", resp.StatusCode, "message", e.Message,
			"body", logging.TruncateBody(string(body), 0))
		return nil, e
	}

	doc, err := soap.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if fault := soap.ParseFault(doc); fault != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Status: resp.Status, Message: fault.Message, Fault: fault}
	}
	return doc, nil
}

// SendAsync runs Send on its own goroutine and hands the result to
// onComplete.
func (h *HTTP) SendAsync(ctx context.Context, envelope, operation string, onComplete func(*etree.Document, error)) {
	go func() {
		onComplete(h.Send(ctx, envelope, operation))
	}()
}
