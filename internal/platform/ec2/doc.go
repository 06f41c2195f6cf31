// Package ec2 maps the compute operations onto the AWS EC2 API.
//
// EC2 has native NextToken pagination, ClientToken idempotency and batch
// state changes, so the mapping is direct. The SDK's own retryer is replaced
// with aws.NopRetryer; the dispatcher owns retry and backoff.
package ec2
