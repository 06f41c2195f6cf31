package apierr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	e := &Error{
		Category:   CategoryService,
		Kind:       KindThrottling,
		Operation:  "DescribeImages",
		Code:       "Throttling",
		HTTPStatus: 400,
		Message:    "Rate exceeded",
		RequestID:  "abc",
	}

	assert.Equal(t, "ServiceError/Throttling DescribeImages [Throttling] (status 400): Rate exceeded (request id abc)", e.Error())
}

func TestError_IsSentinel(t *testing.T) {
	err := fmt.Errorf("call failed: %w", New(KindResourceNotFound, "DescribeImages", "gone"))

	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.NotErrorIs(t, err, ErrThrottling)
	assert.True(t, IsKind(err, KindResourceNotFound))
	assert.False(t, IsRetryable(err))
}

func TestKind_Category(t *testing.T) {
	tests := []struct {
		kind Kind
		want Category
	}{
		{KindNetwork, CategoryClient},
		{KindMisuse, CategoryClient},
		{KindCancelled, CategoryClient},
		{KindThrottling, CategoryService},
		{KindUnknown, CategoryService},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Category())
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	assert.True(t, New(KindServerFault, "op", "").Retryable)
	assert.False(t, New(KindValidation, "op", "").Retryable)
	assert.False(t, New(KindUnknownOperation, "op", "").Sent)
	assert.True(t, New(KindConflict, "op", "").Permanent())
	assert.False(t, New(KindThrottling, "op", "").Permanent())
}

func TestCancelled(t *testing.T) {
	err := Cancelled("CopyImage", nil)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, CategoryClient, err.Category)
}
