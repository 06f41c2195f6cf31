package ec2

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/operation"
	"github.com/imamik/computectl/internal/transport"
)

func (t *Transport) runInstances(ctx context.Context, req *transport.Request, in *compute.RunInstancesInput) (*compute.RunInstancesOutput, string, error) {
	if in.ImageID == "" {
		return nil, "", missingParameter(req.Operation, "ImageId")
	}
	count := int32(max(in.Count, 1))
	input := &ec2.RunInstancesInput{
		ImageId:           aws.String(in.ImageID),
		InstanceType:      types.InstanceType(in.InstanceType),
		MinCount:          aws.Int32(count),
		MaxCount:          aws.Int32(count),
		KeyName:           nonEmpty(in.KeyName),
		ClientToken:       nonEmpty(req.ClientToken),
		TagSpecifications: toTagSpecs(types.ResourceTypeInstance, in.Tags),
	}
	if in.UserData != "" {
		input.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(in.UserData)))
	}
	res, err := t.api.RunInstances(ctx, input, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	out := &compute.RunInstancesOutput{}
	for _, i := range res.Instances {
		out.Instances = append(out.Instances, toInstance(i))
	}
	t.logger.V(1).Info("instances launched", "count", len(out.Instances))
	return out, requestID(res.ResultMetadata), nil
}

func (t *Transport) describeInstances(ctx context.Context, req *transport.Request, in *compute.DescribeInstancesInput) (*compute.DescribeInstancesOutput, string, error) {
	input := &ec2.DescribeInstancesInput{
		InstanceIds: in.InstanceIDs,
		Filters:     toFilters(in.Filters),
		NextToken:   nonEmpty(in.NextToken),
	}
	// EC2 rejects MaxResults together with instance IDs.
	if len(in.InstanceIDs) == 0 {
		input.MaxResults = maxResults(in.MaxResults)
	}
	res, err := t.api.DescribeInstances(ctx, input, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	out := &compute.DescribeInstancesOutput{NextToken: aws.ToString(res.NextToken)}
	for _, r := range res.Reservations {
		for _, i := range r.Instances {
			out.Instances = append(out.Instances, toInstance(i))
		}
	}
	return out, requestID(res.ResultMetadata), nil
}

func (t *Transport) startInstances(ctx context.Context, req *transport.Request, in *compute.StartInstancesInput) (*compute.StartInstancesOutput, string, error) {
	if len(in.InstanceIDs) == 0 {
		return nil, "", missingParameter(req.Operation, "InstanceIds")
	}
	res, err := t.api.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: in.InstanceIDs}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	return &compute.StartInstancesOutput{Outcomes: toOutcomes(operation.StartInstances, in.InstanceIDs, res.StartingInstances)}, requestID(res.ResultMetadata), nil
}

func (t *Transport) stopInstances(ctx context.Context, req *transport.Request, in *compute.StopInstancesInput) (*compute.StopInstancesOutput, string, error) {
	if len(in.InstanceIDs) == 0 {
		return nil, "", missingParameter(req.Operation, "InstanceIds")
	}
	input := &ec2.StopInstancesInput{InstanceIds: in.InstanceIDs}
	if in.Force {
		input.Force = aws.Bool(true)
	}
	res, err := t.api.StopInstances(ctx, input, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	return &compute.StopInstancesOutput{Outcomes: toOutcomes(operation.StopInstances, in.InstanceIDs, res.StoppingInstances)}, requestID(res.ResultMetadata), nil
}

// rebootInstances has no per-instance answer; success covers every ID.
func (t *Transport) rebootInstances(ctx context.Context, req *transport.Request, in *compute.RebootInstancesInput) (*compute.RebootInstancesOutput, string, error) {
	if len(in.InstanceIDs) == 0 {
		return nil, "", missingParameter(req.Operation, "InstanceIds")
	}
	res, err := t.api.RebootInstances(ctx, &ec2.RebootInstancesInput{InstanceIds: in.InstanceIDs}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	out := &compute.RebootInstancesOutput{}
	for _, id := range in.InstanceIDs {
		out.Outcomes = append(out.Outcomes, transport.Outcome{ResourceID: id, CurrentState: compute.InstanceStateRunning})
	}
	return out, requestID(res.ResultMetadata), nil
}

func (t *Transport) terminateInstances(ctx context.Context, req *transport.Request, in *compute.TerminateInstancesInput) (*compute.TerminateInstancesOutput, string, error) {
	if len(in.InstanceIDs) == 0 {
		return nil, "", missingParameter(req.Operation, "InstanceIds")
	}
	res, err := t.api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: in.InstanceIDs}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	return &compute.TerminateInstancesOutput{Outcomes: toOutcomes(operation.TerminateInstances, in.InstanceIDs, res.TerminatingInstances)}, requestID(res.ResultMetadata), nil
}
