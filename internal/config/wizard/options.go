package wizard

import (
	"github.com/charmbracelet/huh"

	"github.com/imamik/computectl/internal/config"
)

// RegionOption is a selectable region.
type RegionOption struct {
	Value       string
	Description string
}

// HCloudLocations are the Hetzner Cloud locations.
var HCloudLocations = []RegionOption{
	{Value: "fsn1", Description: "Falkenstein, Germany"},
	{Value: "nbg1", Description: "Nuremberg, Germany"},
	{Value: "hel1", Description: "Helsinki, Finland"},
	{Value: "ash", Description: "Ashburn, USA"},
	{Value: "hil", Description: "Hillsboro, USA"},
	{Value: "sin", Description: "Singapore"},
}

// EC2Regions are commonly used AWS regions.
var EC2Regions = []RegionOption{
	{Value: "eu-central-1", Description: "Frankfurt"},
	{Value: "eu-west-1", Description: "Ireland"},
	{Value: "us-east-1", Description: "N. Virginia"},
	{Value: "us-west-2", Description: "Oregon"},
	{Value: "ap-southeast-1", Description: "Singapore"},
}

// ProviderOptions are the supported providers.
var ProviderOptions = []huh.Option[string]{
	huh.NewOption("Hetzner Cloud", config.ProviderHCloud),
	huh.NewOption("AWS EC2", config.ProviderEC2),
}

// CheckpointOptions are the cursor checkpoint backends.
var CheckpointOptions = []huh.Option[string]{
	huh.NewOption("None - listings always start from the first page", config.CheckpointNone),
	huh.NewOption("Local files", config.CheckpointFile),
	huh.NewOption("S3-compatible bucket", config.CheckpointS3),
}

// RegionsFor returns the region choices of provider.
func RegionsFor(provider string) []RegionOption {
	if provider == config.ProviderEC2 {
		return EC2Regions
	}
	return HCloudLocations
}

// RegionsToOptions converts regions to huh options.
func RegionsToOptions(regions []RegionOption) []huh.Option[string] {
	opts := make([]huh.Option[string], len(regions))
	for i, r := range regions {
		opts[i] = huh.NewOption(r.Value+" - "+r.Description, r.Value)
	}
	return opts
}
