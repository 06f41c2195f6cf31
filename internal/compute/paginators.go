package compute

import (
	"github.com/imamik/computectl/internal/paginate"
)

// DescribeInstancesPaginator pages through DescribeInstances.
type DescribeInstancesPaginator = paginate.Pager[*DescribeInstancesInput, *DescribeInstancesOutput, Instance]

// NewDescribeInstancesPaginator returns a lazy pager. in is copied per page.
func NewDescribeInstancesPaginator(c *Client, in *DescribeInstancesInput, opts ...paginate.Option) *DescribeInstancesPaginator {
	if in == nil {
		in = &DescribeInstancesInput{}
	}
	return paginate.New(c.DescribeInstances, in, paginate.Spec[*DescribeInstancesInput, *DescribeInstancesOutput, Instance]{
		SetToken: func(in *DescribeInstancesInput, token string) *DescribeInstancesInput {
			cp := *in
			cp.NextToken = token
			return &cp
		},
		Extract: func(out *DescribeInstancesOutput) ([]Instance, string) {
			return out.Instances, out.NextToken
		},
	}, opts...)
}

// DescribeImagesPaginator pages through DescribeImages.
type DescribeImagesPaginator = paginate.Pager[*DescribeImagesInput, *DescribeImagesOutput, Image]

// NewDescribeImagesPaginator returns a lazy pager. in is copied per page.
func NewDescribeImagesPaginator(c *Client, in *DescribeImagesInput, opts ...paginate.Option) *DescribeImagesPaginator {
	if in == nil {
		in = &DescribeImagesInput{}
	}
	return paginate.New(c.DescribeImages, in, paginate.Spec[*DescribeImagesInput, *DescribeImagesOutput, Image]{
		SetToken: func(in *DescribeImagesInput, token string) *DescribeImagesInput {
			cp := *in
			cp.NextToken = token
			return &cp
		},
		Extract: func(out *DescribeImagesOutput) ([]Image, string) {
			return out.Images, out.NextToken
		},
	}, opts...)
}
