package ec2

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/transport"
)

func (t *Transport) createImage(ctx context.Context, req *transport.Request, in *compute.CreateImageInput) (*compute.CreateImageOutput, string, error) {
	if in.InstanceID == "" {
		return nil, "", missingParameter(req.Operation, "InstanceId")
	}
	res, err := t.api.CreateImage(ctx, &ec2.CreateImageInput{
		InstanceId:        aws.String(in.InstanceID),
		Name:              aws.String(in.Name),
		Description:       nonEmpty(in.Description),
		TagSpecifications: toTagSpecs(types.ResourceTypeImage, in.Tags),
	}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	return &compute.CreateImageOutput{ImageID: aws.ToString(res.ImageId)}, requestID(res.ResultMetadata), nil
}

// copyImage runs in the destination region, the client's configured one.
func (t *Transport) copyImage(ctx context.Context, req *transport.Request, in *compute.CopyImageInput) (*compute.CopyImageOutput, string, error) {
	if in.SourceImageID == "" || in.SourceRegion == "" {
		return nil, "", missingParameter(req.Operation, "SourceImageId and SourceRegion")
	}
	res, err := t.api.CopyImage(ctx, &ec2.CopyImageInput{
		SourceImageId: aws.String(in.SourceImageID),
		SourceRegion:  aws.String(in.SourceRegion),
		Name:          aws.String(in.Name),
		Description:   nonEmpty(in.Description),
		ClientToken:   nonEmpty(req.ClientToken),
	}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	return &compute.CopyImageOutput{ImageID: aws.ToString(res.ImageId)}, requestID(res.ResultMetadata), nil
}

func (t *Transport) describeImages(ctx context.Context, req *transport.Request, in *compute.DescribeImagesInput) (*compute.DescribeImagesOutput, string, error) {
	input := &ec2.DescribeImagesInput{
		ImageIds:  in.ImageIDs,
		Owners:    in.Owners,
		Filters:   toFilters(in.Filters),
		NextToken: nonEmpty(in.NextToken),
	}
	if len(in.ImageIDs) == 0 {
		input.MaxResults = maxResults(in.MaxResults)
	}
	res, err := t.api.DescribeImages(ctx, input, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	out := &compute.DescribeImagesOutput{NextToken: aws.ToString(res.NextToken)}
	for _, img := range res.Images {
		out.Images = append(out.Images, toImage(img, req.Region))
	}
	return out, requestID(res.ResultMetadata), nil
}

func (t *Transport) deregisterImage(ctx context.Context, req *transport.Request, in *compute.DeregisterImageInput) (*compute.DeregisterImageOutput, string, error) {
	if in.ImageID == "" {
		return nil, "", missingParameter(req.Operation, "ImageId")
	}
	res, err := t.api.DeregisterImage(ctx, &ec2.DeregisterImageInput{ImageId: aws.String(in.ImageID)}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	return &compute.DeregisterImageOutput{}, requestID(res.ResultMetadata), nil
}
