package diag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

type describeRequest struct {
	IDs []string
}

func TestStore_RecordAndExpire(t *testing.T) {
	t.Parallel()
	clk := clocktesting.NewFakeClock(time.Now())
	s := NewStoreWithClock(time.Minute, clk)
	req := &describeRequest{IDs: []string{"i-1"}}
	md := Metadata{Operation: "DescribeInstances", RequestID: "req-1", Attempts: 2}

	require.True(t, s.Record(req, md))
	got, ok := s.Lookup(req)
	require.True(t, ok)
	assert.Equal(t, md, got)

	_, ok = s.Lookup(&describeRequest{IDs: []string{"i-1"}})
	assert.False(t, ok, "keyed by request identity, not content")

	clk.Step(2 * time.Minute)
	_, ok = s.Lookup(req)
	assert.False(t, ok)
}

func TestStore_LatestCallWins(t *testing.T) {
	t.Parallel()
	s := NewStore(0)
	req := &describeRequest{}
	s.Record(req, Metadata{RequestID: "first"})
	s.Record(req, Metadata{RequestID: "second"})

	got, ok := s.Lookup(req)
	require.True(t, ok)
	assert.Equal(t, "second", got.RequestID)
	assert.Equal(t, 1, s.Len())
}

func TestKeyable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		req  any
		want bool
	}{
		{"nil", nil, false},
		{"pointer", &describeRequest{}, true},
		{"struct with slice", describeRequest{}, false},
		{"string", "DescribeRegions", true},
		{"comparable struct", struct{ Name string }{"x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Keyable(tt.req))
		})
	}
}

func TestStore_SkipsUnkeyable(t *testing.T) {
	t.Parallel()
	s := NewStore(time.Minute)
	assert.False(t, s.Record(describeRequest{}, Metadata{}))
	_, ok := s.Lookup(describeRequest{})
	assert.False(t, ok)
}
