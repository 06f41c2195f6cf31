package hcloud

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/computectl/internal/operation"
	"github.com/imamik/computectl/internal/transport"
)

// ClientTokenLabel is the server label holding the RunInstances client token.
const ClientTokenLabel = "computectl/client-token"

// maxPerPage is the largest page size the API accepts.
const maxPerPage = 50

// Transport implements transport.Transport against the Hetzner Cloud API.
type Transport struct {
	client *hcloud.Client
	logger logr.Logger
	mux    *transport.Mux

	// imageActions maps snapshot image IDs to their create_image action.
	imageActions sync.Map
}

// Option configures a Transport.
type Option func(*Transport)

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) Option {
	return func(t *Transport) {
		t.client = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// NewTransport creates a Transport authenticated with token.
func NewTransport(token string, opts ...Option) *Transport {
	t := &Transport{logger: logr.Discard()}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = NewClient(token)
	}

	t.mux = transport.NewMux()
	t.mux.Handle(operation.RunInstances, transport.Typed(t.runInstances))
	t.mux.Handle(operation.DescribeInstances, transport.Typed(t.describeInstances))
	t.mux.Handle(operation.StartInstances, transport.Typed(t.startInstances))
	t.mux.Handle(operation.StopInstances, transport.Typed(t.stopInstances))
	t.mux.Handle(operation.RebootInstances, transport.Typed(t.rebootInstances))
	t.mux.Handle(operation.TerminateInstances, transport.Typed(t.terminateInstances))
	t.mux.Handle(operation.CreateImage, transport.Typed(t.createImage))
	t.mux.Handle(operation.DescribeImages, transport.Typed(t.describeImages))
	t.mux.Handle(operation.DeregisterImage, transport.Typed(t.deregisterImage))
	t.mux.Handle(operation.CreateKeyPair, transport.Typed(t.createKeyPair))
	t.mux.Handle(operation.DeleteKeyPair, transport.Typed(t.deleteKeyPair))
	t.mux.Handle(operation.DescribeKeyPairs, transport.Typed(t.describeKeyPairs))
	t.mux.Handle(operation.DescribeRegions, transport.Typed(t.describeRegions))
	return t
}

// NewClient builds an hcloud client with its built-in retries disabled.
func NewClient(token string, opts ...hcloud.ClientOption) *hcloud.Client {
	base := []hcloud.ClientOption{
		hcloud.WithToken(token),
		hcloud.WithApplication("computectl", ""),
		hcloud.WithRetryOpts(hcloud.RetryOpts{
			BackoffFunc: hcloud.ConstantBackoff(0),
			MaxRetries:  0,
		}),
	}
	return hcloud.NewClient(append(base, opts...)...)
}

// HCloudClient returns the underlying hcloud.Client.
func (t *Transport) HCloudClient() *hcloud.Client {
	return t.client
}

// Operations lists the operations this transport serves.
func (t *Transport) Operations() []string {
	return t.mux.Operations()
}

// RoundTrip implements transport.Transport.
func (t *Transport) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := t.mux.RoundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	t.logger.V(2).Info("hcloud round trip", "operation", req.Operation, "requestID", resp.RequestID)
	return resp, nil
}
