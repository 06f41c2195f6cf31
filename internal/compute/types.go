package compute

import (
	"time"

	"github.com/imamik/computectl/internal/transport"
)

// Instance states.
const (
	InstanceStatePending      = "pending"
	InstanceStateRunning      = "running"
	InstanceStateStopping     = "stopping"
	InstanceStateStopped      = "stopped"
	InstanceStateShuttingDown = "shutting-down"
	InstanceStateTerminated   = "terminated"
)

// Image states.
const (
	ImageStatePending      = "pending"
	ImageStateAvailable    = "available"
	ImageStateFailed       = "failed"
	ImageStateError        = "error"
	ImageStateDeregistered = "deregistered"
)

// Filter narrows describe calls. Names are provider filter names such as
// "tag:Name" or "instance-state-name".
type Filter struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type Instance struct {
	InstanceID   string            `json:"instanceId"`
	ImageID      string            `json:"imageId,omitempty"`
	InstanceType string            `json:"instanceType,omitempty"`
	KeyName      string            `json:"keyName,omitempty"`
	State        string            `json:"state"`
	StateReason  string            `json:"stateReason,omitempty"`
	PrivateIP    string            `json:"privateIp,omitempty"`
	PublicIP     string            `json:"publicIp,omitempty"`
	Region       string            `json:"region,omitempty"`
	LaunchTime   time.Time         `json:"launchTime,omitzero"`
	Tags         map[string]string `json:"tags,omitempty"`
}

type Image struct {
	ImageID       string            `json:"imageId"`
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	State         string            `json:"state"`
	StateReason   string            `json:"stateReason,omitempty"`
	SourceImageID string            `json:"sourceImageId,omitempty"`
	Region        string            `json:"region,omitempty"`
	CreationDate  time.Time         `json:"creationDate,omitzero"`
	Tags          map[string]string `json:"tags,omitempty"`
}

type KeyPair struct {
	KeyName     string            `json:"keyName"`
	KeyPairID   string            `json:"keyPairId,omitempty"`
	KeyType     string            `json:"keyType,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	PublicKey   string            `json:"publicKey,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

type Region struct {
	Name        string `json:"name"`
	Endpoint    string `json:"endpoint,omitempty"`
	Description string `json:"description,omitempty"`
	NetworkZone string `json:"networkZone,omitempty"`
}

type RunInstancesInput struct {
	ClientToken  string            `json:"clientToken,omitempty"`
	ImageID      string            `json:"imageId"`
	InstanceType string            `json:"instanceType"`
	KeyName      string            `json:"keyName,omitempty"`
	Count        int               `json:"count,omitempty"`
	UserData     string            `json:"userData,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

func (in *RunInstancesInput) IdempotencyToken() string { return in.ClientToken }

type RunInstancesOutput struct {
	Instances []Instance `json:"instances"`
}

type DescribeInstancesInput struct {
	InstanceIDs []string `json:"instanceIds,omitempty"`
	Filters     []Filter `json:"filters,omitempty"`
	MaxResults  int      `json:"maxResults,omitempty"`
	NextToken   string   `json:"nextToken,omitempty"`
}

type DescribeInstancesOutput struct {
	Instances []Instance `json:"instances"`
	NextToken string     `json:"nextToken,omitempty"`
}

// InstanceStateChangeInput targets several instances.
type InstanceStateChangeInput struct {
	InstanceIDs []string `json:"instanceIds"`
	// Force applies to StopInstances: power off without a graceful shutdown.
	Force bool `json:"force,omitempty"`
}

type (
	StartInstancesInput     = InstanceStateChangeInput
	StopInstancesInput      = InstanceStateChangeInput
	RebootInstancesInput    = InstanceStateChangeInput
	TerminateInstancesInput = InstanceStateChangeInput
)

// InstanceStateChangeOutput reports one outcome per requested instance.
type InstanceStateChangeOutput struct {
	Outcomes transport.Outcomes `json:"outcomes"`
}

type (
	StartInstancesOutput     = InstanceStateChangeOutput
	StopInstancesOutput      = InstanceStateChangeOutput
	RebootInstancesOutput    = InstanceStateChangeOutput
	TerminateInstancesOutput = InstanceStateChangeOutput
)

type CreateImageInput struct {
	InstanceID  string            `json:"instanceId"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

type CreateImageOutput struct {
	ImageID string `json:"imageId"`
}

type CopyImageInput struct {
	ClientToken   string `json:"clientToken,omitempty"`
	SourceImageID string `json:"sourceImageId"`
	SourceRegion  string `json:"sourceRegion"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
}

func (in *CopyImageInput) IdempotencyToken() string { return in.ClientToken }

type CopyImageOutput struct {
	ImageID string `json:"imageId"`
}

type DescribeImagesInput struct {
	ImageIDs   []string `json:"imageIds,omitempty"`
	Owners     []string `json:"owners,omitempty"`
	Filters    []Filter `json:"filters,omitempty"`
	MaxResults int      `json:"maxResults,omitempty"`
	NextToken  string   `json:"nextToken,omitempty"`
}

type DescribeImagesOutput struct {
	Images    []Image `json:"images"`
	NextToken string  `json:"nextToken,omitempty"`
}

type DeregisterImageInput struct {
	ImageID string `json:"imageId"`
}

type DeregisterImageOutput struct{}

type CreateKeyPairInput struct {
	KeyName string `json:"keyName"`
	// KeyType is "ed25519" or "rsa"; empty selects ed25519.
	KeyType string            `json:"keyType,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
}

type CreateKeyPairOutput struct {
	KeyPair KeyPair `json:"keyPair"`
	// KeyMaterial is the private key in PEM form. It is returned only once.
	KeyMaterial string `json:"keyMaterial,omitempty"`
}

type DeleteKeyPairInput struct {
	KeyName   string `json:"keyName,omitempty"`
	KeyPairID string `json:"keyPairId,omitempty"`
}

type DeleteKeyPairOutput struct{}

type DescribeKeyPairsInput struct {
	KeyNames []string `json:"keyNames,omitempty"`
	Filters  []Filter `json:"filters,omitempty"`
}

type DescribeKeyPairsOutput struct {
	KeyPairs []KeyPair `json:"keyPairs"`
}

type DescribeRegionsInput struct {
	RegionNames []string `json:"regionNames,omitempty"`
}

type DescribeRegionsOutput struct {
	Regions []Region `json:"regions"`
}
