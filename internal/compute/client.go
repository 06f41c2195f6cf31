// Package compute is the typed facade over the dispatcher: one method per
// remote operation, plus paginators and waiters. It holds no call logic of
// its own.
package compute

import (
	"context"
	"time"

	"github.com/imamik/computectl/internal/diag"
	"github.com/imamik/computectl/internal/dispatch"
	"github.com/imamik/computectl/internal/operation"
	"github.com/imamik/computectl/internal/waiter"
)

// Client is safe for concurrent use.
type Client struct {
	d         *dispatch.Client
	waitSpecs map[string]waiter.Spec
	waitOpts  []waiter.Option
}

// Option configures a Client.
type Option func(*Client)

// WithWaiterTiming overrides poll interval and attempt budget of every waiter.
func WithWaiterTiming(interval time.Duration, maxAttempts int) Option {
	return func(c *Client) {
		for name, spec := range c.waitSpecs {
			spec.PollInterval = interval
			spec.MaxAttempts = maxAttempts
			c.waitSpecs[name] = spec
		}
	}
}

// WithWaiterOptions passes options to every waiter, for example an observer.
func WithWaiterOptions(opts ...waiter.Option) Option {
	return func(c *Client) {
		c.waitOpts = append(c.waitOpts, opts...)
	}
}

// New wraps d.
func New(d *dispatch.Client, opts ...Option) *Client {
	c := &Client{d: d, waitSpecs: defaultWaitSpecs()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dispatcher returns the underlying dispatcher.
func (c *Client) Dispatcher() *dispatch.Client {
	return c.d
}

// Metadata returns diagnostics of the most recent call made with input.
func (c *Client) Metadata(input any) (diag.Metadata, bool) {
	return c.d.Metadata(input)
}

func call[In, Out any](ctx context.Context, c *Client, name string, in *In) (*Out, error) {
	if in == nil {
		in = new(In)
	}
	return dispatch.Call[*Out](ctx, c.d, name, in)
}

func (c *Client) RunInstances(ctx context.Context, in *RunInstancesInput) (*RunInstancesOutput, error) {
	return call[RunInstancesInput, RunInstancesOutput](ctx, c, operation.RunInstances, in)
}

func (c *Client) DescribeInstances(ctx context.Context, in *DescribeInstancesInput) (*DescribeInstancesOutput, error) {
	return call[DescribeInstancesInput, DescribeInstancesOutput](ctx, c, operation.DescribeInstances, in)
}

func (c *Client) StartInstances(ctx context.Context, in *StartInstancesInput) (*StartInstancesOutput, error) {
	return call[StartInstancesInput, StartInstancesOutput](ctx, c, operation.StartInstances, in)
}

func (c *Client) StopInstances(ctx context.Context, in *StopInstancesInput) (*StopInstancesOutput, error) {
	return call[StopInstancesInput, StopInstancesOutput](ctx, c, operation.StopInstances, in)
}

func (c *Client) RebootInstances(ctx context.Context, in *RebootInstancesInput) (*RebootInstancesOutput, error) {
	return call[RebootInstancesInput, RebootInstancesOutput](ctx, c, operation.RebootInstances, in)
}

func (c *Client) TerminateInstances(ctx context.Context, in *TerminateInstancesInput) (*TerminateInstancesOutput, error) {
	return call[TerminateInstancesInput, TerminateInstancesOutput](ctx, c, operation.TerminateInstances, in)
}

func (c *Client) CreateImage(ctx context.Context, in *CreateImageInput) (*CreateImageOutput, error) {
	return call[CreateImageInput, CreateImageOutput](ctx, c, operation.CreateImage, in)
}

func (c *Client) CopyImage(ctx context.Context, in *CopyImageInput) (*CopyImageOutput, error) {
	return call[CopyImageInput, CopyImageOutput](ctx, c, operation.CopyImage, in)
}

func (c *Client) DescribeImages(ctx context.Context, in *DescribeImagesInput) (*DescribeImagesOutput, error) {
	return call[DescribeImagesInput, DescribeImagesOutput](ctx, c, operation.DescribeImages, in)
}

func (c *Client) DeregisterImage(ctx context.Context, in *DeregisterImageInput) (*DeregisterImageOutput, error) {
	return call[DeregisterImageInput, DeregisterImageOutput](ctx, c, operation.DeregisterImage, in)
}

func (c *Client) CreateKeyPair(ctx context.Context, in *CreateKeyPairInput) (*CreateKeyPairOutput, error) {
	return call[CreateKeyPairInput, CreateKeyPairOutput](ctx, c, operation.CreateKeyPair, in)
}

func (c *Client) DeleteKeyPair(ctx context.Context, in *DeleteKeyPairInput) (*DeleteKeyPairOutput, error) {
	return call[DeleteKeyPairInput, DeleteKeyPairOutput](ctx, c, operation.DeleteKeyPair, in)
}

func (c *Client) DescribeKeyPairs(ctx context.Context, in *DescribeKeyPairsInput) (*DescribeKeyPairsOutput, error) {
	return call[DescribeKeyPairsInput, DescribeKeyPairsOutput](ctx, c, operation.DescribeKeyPairs, in)
}

func (c *Client) DescribeRegions(ctx context.Context, in *DescribeRegionsInput) (*DescribeRegionsOutput, error) {
	return call[DescribeRegionsInput, DescribeRegionsOutput](ctx, c, operation.DescribeRegions, in)
}
