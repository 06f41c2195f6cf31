package ec2

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/transport"
	"github.com/imamik/computectl/internal/util/keygen"
)

// createKeyPair lets EC2 generate the key. The private key is only ever
// returned from this call.
func (t *Transport) createKeyPair(ctx context.Context, req *transport.Request, in *compute.CreateKeyPairInput) (*compute.CreateKeyPairOutput, string, error) {
	if in.KeyName == "" {
		return nil, "", missingParameter(req.Operation, "KeyName")
	}
	keyType := types.KeyTypeEd25519
	switch strings.ToLower(in.KeyType) {
	case "", keygen.TypeED25519:
	case keygen.TypeRSA:
		keyType = types.KeyTypeRsa
	default:
		return nil, "", invalidParameter(req.Operation, "KeyType", in.KeyType)
	}
	res, err := t.api.CreateKeyPair(ctx, &ec2.CreateKeyPairInput{
		KeyName:           aws.String(in.KeyName),
		KeyType:           keyType,
		TagSpecifications: toTagSpecs(types.ResourceTypeKeyPair, in.Tags),
	}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	return &compute.CreateKeyPairOutput{
		KeyPair: compute.KeyPair{
			KeyName:     aws.ToString(res.KeyName),
			KeyPairID:   aws.ToString(res.KeyPairId),
			KeyType:     string(keyType),
			Fingerprint: aws.ToString(res.KeyFingerprint),
			Tags:        fromTags(res.Tags),
		},
		KeyMaterial: aws.ToString(res.KeyMaterial),
	}, requestID(res.ResultMetadata), nil
}

func (t *Transport) deleteKeyPair(ctx context.Context, req *transport.Request, in *compute.DeleteKeyPairInput) (*compute.DeleteKeyPairOutput, string, error) {
	if in.KeyName == "" && in.KeyPairID == "" {
		return nil, "", missingParameter(req.Operation, "KeyName or KeyPairId")
	}
	res, err := t.api.DeleteKeyPair(ctx, &ec2.DeleteKeyPairInput{
		KeyName:   nonEmpty(in.KeyName),
		KeyPairId: nonEmpty(in.KeyPairID),
	}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	return &compute.DeleteKeyPairOutput{}, requestID(res.ResultMetadata), nil
}

func (t *Transport) describeKeyPairs(ctx context.Context, req *transport.Request, in *compute.DescribeKeyPairsInput) (*compute.DescribeKeyPairsOutput, string, error) {
	res, err := t.api.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{
		KeyNames:         in.KeyNames,
		Filters:          toFilters(in.Filters),
		IncludePublicKey: aws.Bool(true),
	}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	out := &compute.DescribeKeyPairsOutput{}
	for _, k := range res.KeyPairs {
		out.KeyPairs = append(out.KeyPairs, toKeyPair(k))
	}
	return out, requestID(res.ResultMetadata), nil
}

func (t *Transport) describeRegions(ctx context.Context, req *transport.Request, in *compute.DescribeRegionsInput) (*compute.DescribeRegionsOutput, string, error) {
	res, err := t.api.DescribeRegions(ctx, &ec2.DescribeRegionsInput{RegionNames: in.RegionNames}, requestOptions(req))
	if err != nil {
		return nil, "", err
	}
	out := &compute.DescribeRegionsOutput{}
	for _, r := range res.Regions {
		out.Regions = append(out.Regions, compute.Region{
			Name:        aws.ToString(r.RegionName),
			Endpoint:    aws.ToString(r.Endpoint),
			Description: aws.ToString(r.OptInStatus),
		})
	}
	return out, requestID(res.ResultMetadata), nil
}
