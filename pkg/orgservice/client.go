package orgservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/beevik/etree"

	"github.com/xrmkit/xrmsoap/pkg/fetchxml"
	"github.com/xrmkit/xrmsoap/pkg/logging"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
	"github.com/xrmkit/xrmsoap/pkg/transport"
)

// ErrNoResult is returned when a response lacks the node an operation reads
// its result from.
var ErrNoResult = errors.New("no result in response")

// PageError reports a failed follow-up page of a fetch-all call.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Client executes requests against an Organization service.
type Client struct {
	transport transport.Transport
	logger    *slog.Logger
	pageSize  int
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.Component(l, "orgservice")
	}
}

// WithPageSize sets the record count requested for follow-up pages of a
// fetch-all call. Values below one keep the default.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New creates a client sending requests through t.
func New(t transport.Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		logger:    logging.Nop(),
		pageSize:  fetchxml.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// operation pairs a request with the mapping of its response.
type operation[T any] struct {
	build func() (*request.Request, error)
	parse func(*etree.Document) (T, error)
}

func execute[T any](ctx context.Context, c *Client, op operation[T]) (T, error) {
	var zero T
	req, err := op.build()
	if err != nil {
		return zero, err
	}
	doc, err := c.send(ctx, req)
	if err != nil {
		return zero, err
	}
	return op.parse(doc)
}

func executeAsync[T any](ctx context.Context, c *Client, op operation[T], onComplete func(T, error)) error {
	req, err := op.build()
	if err != nil {
		return err
	}
	return c.sendAsync(ctx, req, func(doc *etree.Document, err error) {
		if err != nil {
			var zero T
			onComplete(zero, err)
			return
		}
		onComplete(op.parse(doc))
	})
}

func (c *Client) envelope(req *request.Request) (string, error) {
	envelope, err := req.Envelope()
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", req.Name, err)
	}
	c.logger.Debug("executing request", "request", req.Name, "bytes", len(envelope))
	return envelope, nil
}

func (c *Client) send(ctx context.Context, req *request.Request) (*etree.Document, error) {
	envelope, err := c.envelope(req)
	if err != nil {
		return nil, err
	}
	return c.transport.Send(ctx, envelope, soap.OperationExecute)
}

func (c *Client) sendAsync(ctx context.Context, req *request.Request, onComplete func(*etree.Document, error)) error {
	envelope, err := c.envelope(req)
	if err != nil {
		return err
	}
	if at, ok := c.transport.(transport.AsyncTransport); ok {
		at.SendAsync(ctx, envelope, soap.OperationExecute, onComplete)
		return nil
	}
	go func() {
		onComplete(c.transport.Send(ctx, envelope, soap.OperationExecute))
	}()
	return nil
}

// Execute sends a hand-built request body and returns the raw response.
func (c *Client) Execute(ctx context.Context, body string) (*etree.Document, error) {
	c.logger.Debug("executing raw request", "bytes", len(body))
	return c.transport.Send(ctx, soap.WrapExecute(body), soap.OperationExecute)
}

// ExecuteRequest sends req and returns the raw response, for requests the
// client has no typed method for.
func (c *Client) ExecuteRequest(ctx context.Context, req *request.Request) (*etree.Document, error) {
	return execute(ctx, c, operation[*etree.Document]{
		build: func() (*request.Request, error) { return req, nil },
		parse: rawDocument,
	})
}

// ExecuteRequestAsync is the asynchronous form of ExecuteRequest.
func (c *Client) ExecuteRequestAsync(ctx context.Context, req *request.Request, onComplete func(*etree.Document, error)) error {
	return executeAsync(ctx, c, operation[*etree.Document]{
		build: func() (*request.Request, error) { return req, nil },
		parse: rawDocument,
	}, onComplete)
}

func rawDocument(doc *etree.Document) (*etree.Document, error) {
	return doc, nil
}

// Response readers shared by the operations.

func nodeText(path string) func(*etree.Document) (string, error) {
	return func(doc *etree.Document) (string, error) {
		return soap.Decode(soap.SelectSingleNodeText(doc, path)), nil
	}
}

func requiredText(path string) func(*etree.Document) (string, error) {
	return func(doc *etree.Document) (string, error) {
		node := soap.SelectSingleNode(doc, path)
		if node == nil {
			return "", fmt.Errorf("%w: %s", ErrNoResult, path)
		}
		return soap.Decode(soap.NodeText(node)), nil
	}
}
