package apierr

import (
	"net/http"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// codeKinds maps protocol error codes of the supported providers to kinds.
// Codes not listed fall through to the suffix rules and the HTTP status.
var codeKinds = map[string]Kind{
	// EC2 / smithy-style codes
	"Throttling":                  KindThrottling,
	"ThrottlingException":         KindThrottling,
	"RequestLimitExceeded":        KindThrottling,
	"TooManyRequestsException":    KindThrottling,
	"RequestThrottled":            KindThrottling,
	"RequestThrottledException":   KindThrottling,
	"SlowDown":                    KindThrottling,
	"ValidationError":             KindValidation,
	"ValidationException":         KindValidation,
	"MissingParameter":            KindValidation,
	"UnknownParameter":            KindValidation,
	"AuthFailure":                 KindValidation,
	"UnauthorizedOperation":       KindValidation,
	"OptInRequired":               KindValidation,
	"IncorrectState":              KindConflict,
	"IncorrectInstanceState":      KindConflict,
	"DependencyViolation":         KindConflict,
	"IdempotentParameterMismatch": KindConflict,
	"ResourceInUse":               KindConflict,
	"InternalError":               KindServerFault,
	"InternalFailure":             KindServerFault,
	"ServiceUnavailable":          KindServerFault,
	"Unavailable":                 KindServerFault,

	"InsufficientInstanceCapacity": KindServerFault,

	// Hetzner Cloud codes. A locked resource has another action running and
	// clears by itself.
	string(hcloud.ErrorCodeRateLimitExceeded):   KindThrottling,
	string(hcloud.ErrorCodeInvalidInput):        KindValidation,
	string(hcloud.ErrorCodeUnauthorized):        KindValidation,
	string(hcloud.ErrorCodeForbidden):           KindValidation,
	string(hcloud.ErrorCodeNotFound):            KindResourceNotFound,
	string(hcloud.ErrorCodeConflict):            KindConflict,
	string(hcloud.ErrorCodeLocked):              KindThrottling,
	string(hcloud.ErrorCodeResourceLocked):      KindThrottling,
	string(hcloud.ErrorCodeUniquenessError):     KindConflict,
	string(hcloud.ErrorCodeServiceError):        KindServerFault,
	string(hcloud.ErrorCodeMaintenance):         KindServerFault,
	string(hcloud.ErrorCodeTimeout):             KindServerFault,
	string(hcloud.ErrorCodeResourceUnavailable): KindServerFault,
}

// kindForCode resolves a protocol code. The boolean is false when the code
// says nothing about the kind.
func kindForCode(code string) (Kind, bool) {
	if code == "" {
		return "", false
	}
	if k, ok := codeKinds[code]; ok {
		return k, true
	}
	switch {
	case strings.HasSuffix(code, ".NotFound"), strings.HasSuffix(code, "NotFound"),
		strings.HasSuffix(code, "NotFoundException"):
		return KindResourceNotFound, true
	case strings.HasSuffix(code, ".Malformed"), strings.HasPrefix(code, "Invalid"):
		return KindValidation, true
	case strings.HasSuffix(code, ".Duplicate"), strings.HasSuffix(code, "AlreadyExists"),
		strings.HasSuffix(code, ".InUse"):
		return KindConflict, true
	}
	return "", false
}

// kindForStatus resolves an HTTP status code.
func kindForStatus(status int) (Kind, bool) {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusLocked:
		return KindThrottling, true
	case status == http.StatusNotFound:
		return KindResourceNotFound, true
	case status == http.StatusConflict, status == http.StatusPreconditionFailed:
		return KindConflict, true
	case status >= 500:
		return KindServerFault, true
	case status >= 400:
		return KindValidation, true
	}
	return "", false
}
