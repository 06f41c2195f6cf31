package hcloud

import (
	"context"
	"slices"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/transport"
)

func (t *Transport) describeRegions(ctx context.Context, _ *transport.Request, in *compute.DescribeRegionsInput) (*compute.DescribeRegionsOutput, string, error) {
	locations, resp, err := t.client.Location.List(ctx, hcloud.LocationListOpts{
		ListOpts: hcloud.ListOpts{PerPage: maxPerPage},
	})
	if err != nil {
		return nil, requestID(resp), apiError(resp, err)
	}
	out := &compute.DescribeRegionsOutput{}
	for _, loc := range locations {
		if len(in.RegionNames) > 0 && !slices.Contains(in.RegionNames, loc.Name) {
			continue
		}
		out.Regions = append(out.Regions, compute.Region{
			Name:        loc.Name,
			Description: loc.Description,
			NetworkZone: string(loc.NetworkZone),
		})
	}
	return out, requestID(resp), nil
}
