package ec2

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/transport"
)

func toFilters(in []compute.Filter) []types.Filter {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.Filter, 0, len(in))
	for _, f := range in {
		out = append(out, types.Filter{Name: aws.String(f.Name), Values: f.Values})
	}
	return out
}

func toTagSpecs(resource types.ResourceType, tags map[string]string) []types.TagSpecification {
	if len(tags) == 0 {
		return nil
	}
	spec := types.TagSpecification{ResourceType: resource}
	for k, v := range tags {
		spec.Tags = append(spec.Tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return []types.TagSpecification{spec}
}

func fromTags(tags []types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		out[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return out
}

func maxResults(n int) *int32 {
	if n <= 0 {
		return nil
	}
	return aws.Int32(int32(min(n, 1000)))
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

func toInstance(i types.Instance) compute.Instance {
	out := compute.Instance{
		InstanceID:   aws.ToString(i.InstanceId),
		ImageID:      aws.ToString(i.ImageId),
		InstanceType: string(i.InstanceType),
		KeyName:      aws.ToString(i.KeyName),
		PrivateIP:    aws.ToString(i.PrivateIpAddress),
		PublicIP:     aws.ToString(i.PublicIpAddress),
		LaunchTime:   aws.ToTime(i.LaunchTime),
		Tags:         fromTags(i.Tags),
	}
	if i.State != nil {
		out.State = string(i.State.Name)
	}
	if i.StateReason != nil {
		out.StateReason = aws.ToString(i.StateReason.Message)
	}
	if i.Placement != nil {
		out.Region = aws.ToString(i.Placement.AvailabilityZone)
	}
	return out
}

// imageStates folds the EC2 image states onto the compute ones.
var imageStates = map[types.ImageState]string{
	types.ImageStatePending:      compute.ImageStatePending,
	types.ImageStateTransient:    compute.ImageStatePending,
	types.ImageStateAvailable:    compute.ImageStateAvailable,
	types.ImageStateInvalid:      compute.ImageStateFailed,
	types.ImageStateFailed:       compute.ImageStateFailed,
	types.ImageStateError:        compute.ImageStateError,
	types.ImageStateDeregistered: compute.ImageStateDeregistered,
}

func imageState(s types.ImageState) string {
	if st, ok := imageStates[s]; ok {
		return st
	}
	return string(s)
}

func toImage(img types.Image, region string) compute.Image {
	out := compute.Image{
		ImageID:     aws.ToString(img.ImageId),
		Name:        aws.ToString(img.Name),
		Description: aws.ToString(img.Description),
		State:       imageState(img.State),
		Region:      region,
		Tags:        fromTags(img.Tags),
	}
	if img.StateReason != nil {
		out.StateReason = aws.ToString(img.StateReason.Message)
	}
	if created, err := time.Parse(time.RFC3339, aws.ToString(img.CreationDate)); err == nil {
		out.CreationDate = created
	}
	return out
}

func toKeyPair(k types.KeyPairInfo) compute.KeyPair {
	return compute.KeyPair{
		KeyName:     aws.ToString(k.KeyName),
		KeyPairID:   aws.ToString(k.KeyPairId),
		KeyType:     string(k.KeyType),
		Fingerprint: aws.ToString(k.KeyFingerprint),
		PublicKey:   aws.ToString(k.PublicKey),
		Tags:        fromTags(k.Tags),
	}
}

// toOutcomes reports one outcome per requested ID. EC2 answers the whole
// batch or fails it; an ID absent from the answer is reported as failed.
func toOutcomes(op string, requested []string, changes []types.InstanceStateChange) transport.Outcomes {
	byID := make(map[string]types.InstanceStateChange, len(changes))
	for _, c := range changes {
		byID[aws.ToString(c.InstanceId)] = c
	}
	out := make(transport.Outcomes, 0, len(requested))
	for _, id := range requested {
		c, ok := byID[id]
		if !ok {
			out = append(out, transport.Failure(id, missingFromBatch(op, id)))
			continue
		}
		o := transport.Outcome{ResourceID: id}
		if c.PreviousState != nil {
			o.PreviousState = string(c.PreviousState.Name)
		}
		if c.CurrentState != nil {
			o.CurrentState = string(c.CurrentState.Name)
		}
		out = append(out, o)
	}
	return out
}
