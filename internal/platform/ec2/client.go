package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go/middleware"
	"github.com/go-logr/logr"

	"github.com/imamik/computectl/internal/operation"
	"github.com/imamik/computectl/internal/transport"
)

// API is the subset of *ec2.Client the transport uses.
type API interface {
	RunInstances(ctx context.Context, in *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, in *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, in *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	RebootInstances(ctx context.Context, in *ec2.RebootInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RebootInstancesOutput, error)
	TerminateInstances(ctx context.Context, in *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	CreateImage(ctx context.Context, in *ec2.CreateImageInput, optFns ...func(*ec2.Options)) (*ec2.CreateImageOutput, error)
	CopyImage(ctx context.Context, in *ec2.CopyImageInput, optFns ...func(*ec2.Options)) (*ec2.CopyImageOutput, error)
	DescribeImages(ctx context.Context, in *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
	DeregisterImage(ctx context.Context, in *ec2.DeregisterImageInput, optFns ...func(*ec2.Options)) (*ec2.DeregisterImageOutput, error)
	CreateKeyPair(ctx context.Context, in *ec2.CreateKeyPairInput, optFns ...func(*ec2.Options)) (*ec2.CreateKeyPairOutput, error)
	DeleteKeyPair(ctx context.Context, in *ec2.DeleteKeyPairInput, optFns ...func(*ec2.Options)) (*ec2.DeleteKeyPairOutput, error)
	DescribeKeyPairs(ctx context.Context, in *ec2.DescribeKeyPairsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeKeyPairsOutput, error)
	DescribeRegions(ctx context.Context, in *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// Transport implements transport.Transport against EC2.
type Transport struct {
	api    API
	logger logr.Logger
	mux    *transport.Mux
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// NewTransport wraps api.
func NewTransport(api API, opts ...Option) *Transport {
	t := &Transport{api: api, logger: logr.Discard()}
	for _, opt := range opts {
		opt(t)
	}
	t.mux = transport.NewMux()
	t.mux.Handle(operation.RunInstances, transport.Typed(t.runInstances))
	t.mux.Handle(operation.DescribeInstances, transport.Typed(t.describeInstances))
	t.mux.Handle(operation.StartInstances, transport.Typed(t.startInstances))
	t.mux.Handle(operation.StopInstances, transport.Typed(t.stopInstances))
	t.mux.Handle(operation.RebootInstances, transport.Typed(t.rebootInstances))
	t.mux.Handle(operation.TerminateInstances, transport.Typed(t.terminateInstances))
	t.mux.Handle(operation.CreateImage, transport.Typed(t.createImage))
	t.mux.Handle(operation.CopyImage, transport.Typed(t.copyImage))
	t.mux.Handle(operation.DescribeImages, transport.Typed(t.describeImages))
	t.mux.Handle(operation.DeregisterImage, transport.Typed(t.deregisterImage))
	t.mux.Handle(operation.CreateKeyPair, transport.Typed(t.createKeyPair))
	t.mux.Handle(operation.DeleteKeyPair, transport.Typed(t.deleteKeyPair))
	t.mux.Handle(operation.DescribeKeyPairs, transport.Typed(t.describeKeyPairs))
	t.mux.Handle(operation.DescribeRegions, transport.Typed(t.describeRegions))
	return t
}

// Credentials are optional static credentials. Empty values fall back to
// the SDK's default chain.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewClient loads the AWS configuration for region and builds an EC2 client
// with SDK retries disabled.
func NewClient(ctx context.Context, region string, creds Credentials) (*ec2.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if creds.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return ec2.NewFromConfig(cfg), nil
}

// Operations lists the operations this transport serves.
func (t *Transport) Operations() []string {
	return t.mux.Operations()
}

// RoundTrip implements transport.Transport.
func (t *Transport) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return t.mux.RoundTrip(ctx, req)
}

// requestOptions applies the request's endpoint and region to one call.
func requestOptions(req *transport.Request) func(*ec2.Options) {
	return func(o *ec2.Options) {
		if req.Region != "" {
			o.Region = req.Region
		}
		if req.Endpoint != "" {
			o.BaseEndpoint = aws.String(req.Endpoint)
		}
	}
}

func requestID(md middleware.Metadata) string {
	id, _ := awsmiddleware.GetRequestIDMetadata(md)
	return id
}
