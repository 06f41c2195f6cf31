package operation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/computectl/internal/apierr"
)

func TestDefaultTable(t *testing.T) {
	t.Parallel()
	table, err := DefaultTable()
	require.NoError(t, err)

	tests := []struct {
		name        string
		mutating    bool
		idempotent  bool
		paginated   bool
		longRunning bool
		batch       bool
	}{
		{RunInstances, true, true, false, true, false},
		{DescribeInstances, false, false, true, false, false},
		{TerminateInstances, true, false, false, false, true},
		{CopyImage, true, true, false, true, false},
		{DescribeImages, false, false, true, false, false},
		{CreateKeyPair, true, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := table.Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, d.Name)
			assert.Equal(t, tt.mutating, d.Mutating)
			assert.Equal(t, tt.idempotent, d.Idempotent)
			assert.Equal(t, tt.paginated, d.Paginated)
			assert.Equal(t, tt.longRunning, d.LongRunning)
			assert.Equal(t, tt.batch, d.Batch)
		})
	}
}

func TestDefaultTable_ReplayAfterSend(t *testing.T) {
	t.Parallel()
	table := MustDefaultTable()
	tests := []struct {
		name string
		want bool
	}{
		{StartInstances, true},
		{StopInstances, true},
		{TerminateInstances, true},
		{DeregisterImage, true},
		{RebootInstances, false},
		{CreateImage, false},
		{CreateKeyPair, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := table.Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.ReplayAllowed(false))
		})
	}
}

func TestDefaultTable_NoConflictCodesRetried(t *testing.T) {
	t.Parallel()
	table := MustDefaultTable()
	for _, name := range table.Names() {
		d, err := table.Lookup(name)
		require.NoError(t, err)
		assert.False(t, d.RetryableCode("conflict"), name)
		assert.False(t, d.RetryableCode("locked"), name)
	}
}

func TestDefaultTable_CoversEveryName(t *testing.T) {
	t.Parallel()
	table := MustDefaultTable()
	names := []string{
		RunInstances, DescribeInstances, StartInstances, StopInstances, RebootInstances,
		TerminateInstances, CreateImage, CopyImage, DescribeImages, DeregisterImage,
		CreateKeyPair, DeleteKeyPair, DescribeKeyPairs, DescribeRegions,
	}
	assert.ElementsMatch(t, names, table.Names())
	assert.Equal(t, len(names), table.Len())
	assert.IsIncreasing(t, table.Names())
}

func TestDefaultTable_ParsedOnce(t *testing.T) {
	t.Parallel()
	a, err := DefaultTable()
	require.NoError(t, err)
	b, err := DefaultTable()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestLookup_Unknown(t *testing.T) {
	t.Parallel()
	_, err := MustDefaultTable().Lookup("LaunchRocket")
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindUnknownOperation))
	assert.ErrorIs(t, err, apierr.ErrUnknownOperation)

	ce, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.CategoryClient, ce.Category)
	assert.Equal(t, "LaunchRocket", ce.Operation)
}

func TestLoadTable_Defaults(t *testing.T) {
	t.Parallel()
	table, err := LoadTable(strings.NewReader(`
defaults:
  maxAttempts: 3
  baseBackoff: 100ms
  maxBackoff: 2s
  idempotencyTTL: 10m
  retryableErrorCodes: [Throttling]
operations:
  - name: Ping
  - name: Create
    mutating: true
    idempotent: true
    maxAttempts: 7
    retryableErrorCodes: [locked]
`))
	require.NoError(t, err)

	ping, err := table.Lookup("Ping")
	require.NoError(t, err)
	assert.Equal(t, 3, ping.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, ping.BaseBackoff)
	assert.Equal(t, 2*time.Second, ping.MaxBackoff)
	assert.Equal(t, 10*time.Minute, ping.IdempotencyTTL)
	assert.True(t, ping.RetryableCode("Throttling"))
	assert.False(t, ping.RetryableCode("locked"))

	create, err := table.Lookup("Create")
	require.NoError(t, err)
	assert.Equal(t, 7, create.MaxAttempts)
	assert.Equal(t, []string{"Throttling", "locked"}, create.RetryableErrorCodes())
	assert.Equal(t, "Create", create.OperationName())
}

func TestLoadTable_Invalid(t *testing.T) {
	t.Parallel()
	base := "defaults: {maxAttempts: 2, baseBackoff: 1s, maxBackoff: 5s}\noperations:\n"
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", base + "  - mutating: true\n", "without name"},
		{"duplicate", base + "  - name: A\n  - name: A\n", "duplicate"},
		{"idempotent read", base + "  - name: A\n    idempotent: true\n", "must be mutating"},
		{"zero attempts", "defaults: {baseBackoff: 1s, maxBackoff: 5s}\noperations:\n  - name: A\n", "maxAttempts"},
		{"base above max", base + "  - name: A\n    baseBackoff: 10s\n", "exceeds"},
		{"unknown field", base + "  - name: A\n    retries: 3\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadTable(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReplayAllowed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		d        Descriptor
		hasToken bool
		want     bool
	}{
		{"read", Descriptor{}, false, true},
		{"replay safe", Descriptor{Mutating: true, ReplaySafe: true}, false, true},
		{"idempotent with token", Descriptor{Mutating: true, Idempotent: true}, true, true},
		{"idempotent without token", Descriptor{Mutating: true, Idempotent: true}, false, false},
		{"plain mutation", Descriptor{Mutating: true}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.d.ReplayAllowed(tt.hasToken))
		})
	}
}
