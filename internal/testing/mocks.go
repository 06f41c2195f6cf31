package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/computectl/internal/transport"
)

// MockTransport is a mock implementation of transport.Transport.
type MockTransport struct {
	mock.Mock
}

// RoundTrip records the call and returns the configured response.
func (m *MockTransport) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transport.Response), args.Error(1)
}

// OnOperation matches requests for op.
func (m *MockTransport) OnOperation(op string) *mock.Call {
	return m.On("RoundTrip", mock.Anything, mock.MatchedBy(func(req *transport.Request) bool {
		return req.Operation == op
	}))
}

// OnAttempt matches attempt n of op.
func (m *MockTransport) OnAttempt(op string, n int) *mock.Call {
	return m.On("RoundTrip", mock.Anything, mock.MatchedBy(func(req *transport.Request) bool {
		return req.Operation == op && req.Attempt == n
	}))
}
