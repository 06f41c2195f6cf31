package ec2

import (
	"fmt"
	"net/http"

	"github.com/imamik/computectl/internal/apierr"
)

func missingFromBatch(op, id string) error {
	return &apierr.RemoteError{
		StatusCode: http.StatusOK,
		Code:       "IncorrectInstanceState",
		Message:    fmt.Sprintf("%s: instance %s missing from response", op, id),
	}
}

func missingParameter(op, name string) error {
	return apierr.NotSent(&apierr.RemoteError{
		StatusCode: http.StatusBadRequest,
		Code:       "MissingParameter",
		Message:    fmt.Sprintf("%s: %s is required", op, name),
	})
}

func invalidParameter(op, name, value string) error {
	return apierr.NotSent(&apierr.RemoteError{
		StatusCode: http.StatusBadRequest,
		Code:       "InvalidParameterValue",
		Message:    fmt.Sprintf("%s: invalid %s %q", op, name, value),
	})
}
