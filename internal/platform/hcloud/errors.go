package hcloud

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/computectl/internal/apierr"
)

// CorrelationHeader carries the request ID of every API response.
const CorrelationHeader = "X-Correlation-Id"

func requestID(resp *hcloud.Response) string {
	if resp == nil || resp.Response == nil {
		return ""
	}
	return resp.Header.Get(CorrelationHeader)
}

func statusCode(resp *hcloud.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

// apiError attaches status and request ID to an API error. Errors that never
// produced a response, such as network failures, are returned unchanged.
func apiError(resp *hcloud.Response, err error) error {
	if err == nil {
		return nil
	}
	var hErr hcloud.Error
	if !errors.As(err, &hErr) {
		return err
	}
	remote := &apierr.RemoteError{
		StatusCode: statusCode(resp),
		Code:       string(hErr.Code),
		Message:    hErr.Message,
		RequestID:  requestID(resp),
	}
	return errors.Join(remote, err)
}

// notFound reports a missing resource the API answered with an empty result.
func notFound(resource, id string, resp *hcloud.Response) error {
	return &apierr.RemoteError{
		StatusCode: http.StatusNotFound,
		Code:       string(hcloud.ErrorCodeNotFound),
		Message:    fmt.Sprintf("%s %s not found", resource, id),
		RequestID:  requestID(resp),
	}
}

func invalidID(resource, id string) error {
	return apierr.NotSent(&apierr.RemoteError{
		StatusCode: http.StatusBadRequest,
		Code:       string(hcloud.ErrorCodeInvalidInput),
		Message:    fmt.Sprintf("invalid %s id %q", resource, id),
	})
}

func parseID(resource, id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, invalidID(resource, id)
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func isNotFound(err error) bool {
	return hcloud.IsError(err, hcloud.ErrorCodeNotFound)
}

// isMissing reports a not found answer in either of its two shapes.
func isMissing(err error) bool {
	var remote *apierr.RemoteError
	if errors.As(err, &remote) && remote.Code == string(hcloud.ErrorCodeNotFound) {
		return true
	}
	return isNotFound(err)
}
