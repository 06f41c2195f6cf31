// Package transport defines the boundary between the dispatcher and a
// provider. A Transport performs exactly one round trip per call; retry,
// classification and idempotency belong to the dispatcher.
package transport

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"

	"github.com/imamik/computectl/internal/apierr"
)

// Request is one attempt of one operation.
type Request struct {
	Operation string
	Endpoint  string
	Region    string
	Input     any
	// ClientToken is the idempotency token, stable across attempts.
	ClientToken string
	// Attempt starts at 1.
	Attempt int
}

// Response is a successful round trip.
type Response struct {
	Output     any
	RequestID  string
	StatusCode int
}

// Transport performs a single round trip.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Mux routes requests to per-operation handlers.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Transport
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Transport)}
}

// Handle registers h for operation. It panics on duplicates.
func (m *Mux) Handle(operation string, h Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.handlers[operation]; dup {
		panic(fmt.Sprintf("transport: duplicate handler for %s", operation))
	}
	m.handlers[operation] = h
}

// HandleFunc registers f for operation.
func (m *Mux) HandleFunc(operation string, f func(ctx context.Context, req *Request) (*Response, error)) {
	m.Handle(operation, Func(f))
}

// Operations lists the registered operations, sorted.
func (m *Mux) Operations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.handlers))
}

// RoundTrip dispatches to the handler for req.Operation. An unregistered
// operation fails with ClientError/UnknownOperation before anything is sent.
func (m *Mux) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	m.mu.RLock()
	h, ok := m.handlers[req.Operation]
	m.mu.RUnlock()
	if !ok {
		return nil, apierr.New(apierr.KindUnknownOperation, req.Operation, "no transport handler registered")
	}
	return h.RoundTrip(ctx, req)
}

// Typed wraps a handler with concrete input and output types. A mismatched
// input type is a misuse error. Successful responses report status 200.
func Typed[In, Out any](f func(ctx context.Context, req *Request, in In) (Out, string, error)) Transport {
	return Func(func(ctx context.Context, req *Request) (*Response, error) {
		in, ok := req.Input.(In)
		if !ok {
			var want In
			return nil, apierr.Newf(apierr.KindMisuse, req.Operation, "input has type %T, want %T", req.Input, want)
		}
		out, requestID, err := f(ctx, req, in)
		if err != nil {
			return nil, err
		}
		return &Response{Output: out, RequestID: requestID, StatusCode: http.StatusOK}, nil
	})
}
