package operation

// Operation names known to the embedded descriptor table.
const (
	RunInstances       = "RunInstances"
	DescribeInstances  = "DescribeInstances"
	StartInstances     = "StartInstances"
	StopInstances      = "StopInstances"
	RebootInstances    = "RebootInstances"
	TerminateInstances = "TerminateInstances"
	CreateImage        = "CreateImage"
	CopyImage          = "CopyImage"
	DescribeImages     = "DescribeImages"
	DeregisterImage    = "DeregisterImage"
	CreateKeyPair      = "CreateKeyPair"
	DeleteKeyPair      = "DeleteKeyPair"
	DescribeKeyPairs   = "DescribeKeyPairs"
	DescribeRegions    = "DescribeRegions"
)
