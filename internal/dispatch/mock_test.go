package dispatch_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/computectl/internal/apierr"
	"github.com/imamik/computectl/internal/dispatch"
	"github.com/imamik/computectl/internal/operation"
	testutil "github.com/imamik/computectl/internal/testing"
	"github.com/imamik/computectl/internal/transport"
	"github.com/imamik/computectl/internal/util/retry"
)

const mockDescriptors = `
defaults:
  maxAttempts: 3
  baseBackoff: 1ms
  maxBackoff: 2ms
operations:
  - name: Describe
    paginated: true
  - name: Create
    mutating: true
    idempotent: true
  - name: Import
    mutating: true
`

func newMockClient(t *testing.T, m *testutil.MockTransport) *dispatch.Client {
	t.Helper()
	table, err := operation.LoadTable(strings.NewReader(mockDescriptors))
	require.NoError(t, err)
	return dispatch.New(m,
		dispatch.WithTable(table),
		dispatch.WithConfig(dispatch.Config{Endpoint: "https://compute.test", Region: "fsn1"}),
		dispatch.WithTokenSource(func() string { return "tok-generated" }),
		dispatch.WithRetryOptions(retry.WithJitter(retry.NoJitter)),
	)
}

func TestInvoke_AttemptsCarryTokenAndConfig(t *testing.T) {
	t.Parallel()
	m := &testutil.MockTransport{}
	m.OnAttempt("Create", 1).
		Return(nil, &apierr.RemoteError{StatusCode: 503, Code: "ServiceUnavailable"}).Once()
	m.OnAttempt("Create", 2).
		Return(&transport.Response{Output: "created", RequestID: "req-2", StatusCode: 200}, nil).Once()

	c := newMockClient(t, m)
	out, err := c.Invoke(context.Background(), "Create", &struct{ Name string }{Name: "web"})
	require.NoError(t, err)
	assert.Equal(t, "created", out)

	m.AssertExpectations(t)
	require.Len(t, m.Calls, 2)
	for i, call := range m.Calls {
		req := call.Arguments.Get(1).(*transport.Request)
		assert.Equal(t, i+1, req.Attempt)
		assert.Equal(t, "tok-generated", req.ClientToken, "token must be stable across attempts")
		assert.Equal(t, "https://compute.test", req.Endpoint)
		assert.Equal(t, "fsn1", req.Region)
	}
}

func TestInvoke_ReadOnlyCallsCarryNoToken(t *testing.T) {
	t.Parallel()
	m := &testutil.MockTransport{}
	m.OnOperation("Describe").Return(&transport.Response{Output: []string{"a"}, StatusCode: 200}, nil).Once()

	c := newMockClient(t, m)
	_, err := c.Invoke(context.Background(), "Describe", &struct{}{})
	require.NoError(t, err)

	m.AssertNumberOfCalls(t, "RoundTrip", 1)
	m.AssertCalled(t, "RoundTrip", mock.Anything, mock.MatchedBy(func(req *transport.Request) bool {
		return req.ClientToken == "" && req.Attempt == 1
	}))
}

func TestInvoke_SentNonIdempotentMutationIsNotReplayed(t *testing.T) {
	t.Parallel()
	m := &testutil.MockTransport{}
	m.OnOperation("Import").Return(nil, &apierr.RemoteError{StatusCode: 503, Code: "ServiceUnavailable"})

	c := newMockClient(t, m)
	_, err := c.Invoke(context.Background(), "Import", &struct{}{})
	require.Error(t, err)

	m.AssertNumberOfCalls(t, "RoundTrip", 1)
	ce, ok := apierr.As(err)
	require.True(t, ok)
	assert.True(t, ce.Retryable)
	assert.True(t, ce.Sent)
}
