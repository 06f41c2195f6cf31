package handlers

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/imamik/computectl/internal/compute"
)

// ListRegions prints the provider's regions.
func ListRegions(ctx context.Context, g *Globals, names []string) error {
	s, err := newSession(ctx, g)
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.Compute.DescribeRegions(ctx, &compute.DescribeRegionsInput{RegionNames: names})
	if err != nil {
		return fmt.Errorf("failed to list regions: %w", err)
	}
	return s.render(orEmpty(out.Regions), func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "NAME\tDESCRIPTION\tNETWORK ZONE\tENDPOINT")
		for _, r := range out.Regions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, dash(r.Description), dash(r.NetworkZone), dash(r.Endpoint))
		}
	})
}
