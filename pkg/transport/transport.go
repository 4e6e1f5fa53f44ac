// Package transport sends Execute envelopes to an Organization service.
//
// Transport is the contract the client consumes: one envelope in, one parsed
// response document out. HTTP is the implementation used against a real
// server or the mock in pkg/orgmock. Nothing here retries; callers wanting
// retries or deadlines wrap the transport or use the context.
package transport

import (
	"context"

	"github.com/beevik/etree"
)

// Transport sends one envelope and returns the parsed response.
type Transport interface {
	Send(ctx context.Context, envelope, operation string) (*etree.Document, error)
}

// AsyncTransport can deliver a response to a completion callback instead of
// blocking the caller. onComplete is called exactly once.
type AsyncTransport interface {
	Transport
	SendAsync(ctx context.Context, envelope, operation string, onComplete func(*etree.Document, error))
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, envelope, operation string) (*etree.Document, error)

// Send calls f.
func (f Func) Send(ctx context.Context, envelope, operation string) (*etree.Document, error) {
	return f(ctx, envelope, operation)
}
