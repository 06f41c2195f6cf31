package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errBucketRequired  = errors.New("bucket name is required")
	errBucketInvalid   = errors.New("bucket name must be 3-63 lowercase letters, digits, dots or hyphens")
	errEndpointInvalid = errors.New("endpoint must be an absolute http(s) URL")
	errPositiveNumber  = errors.New("must be a positive whole number")
)
