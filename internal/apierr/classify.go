package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// Policy supplies the per-operation retry overrides. The operation descriptor
// implements it.
type Policy interface {
	OperationName() string
	RetryableCode(code string) bool
}

// RemoteError is a protocol-level error response for transports that do not
// bring their own error type.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

type notSentError struct{ err error }

func (e *notSentError) Error() string { return e.err.Error() }
func (e *notSentError) Unwrap() error { return e.err }

// NotSent marks err as having happened before the request left the process.
func NotSent(err error) error {
	if err == nil {
		return nil
	}
	return &notSentError{err: err}
}

// Classify maps a raw failure to a classified error. A nil policy applies the
// default retry verdicts only. Already classified errors are returned as is.
func Classify(policy Policy, err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}

	op := ""
	if policy != nil {
		op = policy.OperationName()
	}

	var ns *notSentError
	notSent := errors.As(err, &ns)

	e := classify(err)
	e.Operation = op
	e.Err = err
	if notSent {
		e.Sent = false
	}
	if e.Code != "" && policy != nil && policy.RetryableCode(e.Code) && !neverRetried(e.Kind) {
		e.Retryable = true
	}
	if e.Kind == KindCancelled {
		e.Retryable = false
	}
	return e
}

// neverRetried kinds stay final whatever the descriptor lists.
func neverRetried(k Kind) bool {
	return k == KindValidation || k == KindResourceNotFound || k == KindConflict
}

func classify(err error) *Error {
	if isCancellation(err) {
		return &Error{Category: CategoryClient, Kind: KindCancelled, Sent: true}
	}

	var serErr *smithy.SerializationError
	if errors.As(err, &serErr) {
		return &Error{Category: CategoryClient, Kind: KindSerialization, Message: serErr.Error()}
	}
	var jsonErr *json.UnsupportedTypeError
	if errors.As(err, &jsonErr) {
		return &Error{Category: CategoryClient, Kind: KindSerialization, Message: jsonErr.Error()}
	}

	if e, ok := classifyProtocol(err); ok {
		return e
	}

	if isNetwork(err) {
		return &Error{
			Category:  CategoryClient,
			Kind:      KindNetwork,
			Retryable: true,
			Sent:      !beforeSend(err),
			Message:   err.Error(),
		}
	}

	var deserErr *smithy.DeserializationError
	if errors.As(err, &deserErr) {
		return &Error{Category: CategoryService, Kind: KindUnknown, Sent: true, Message: deserErr.Error()}
	}

	// Unrecognised failures fail closed.
	return &Error{Category: CategoryService, Kind: KindUnknown, Sent: true, Message: err.Error()}
}

// classifyProtocol handles structured error responses from the service.
func classifyProtocol(err error) (*Error, bool) {
	var (
		code, message, requestID string
		status                   int
		fault                    smithy.ErrorFault
		found                    bool
	)

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code, message, fault, found = apiErr.ErrorCode(), apiErr.ErrorMessage(), apiErr.ErrorFault(), true
	}
	var hErr hcloud.Error
	if !found && errors.As(err, &hErr) {
		code, message, found = string(hErr.Code), hErr.Message, true
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		if !found {
			code, message, found = remote.Code, remote.Message, true
		}
		status, requestID = remote.StatusCode, remote.RequestID
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.Response != nil {
		status = respErr.HTTPStatusCode()
		found = true
	}
	var awsRespErr *awshttp.ResponseError
	if errors.As(err, &awsRespErr) {
		requestID = awsRespErr.ServiceRequestID()
	}

	if !found {
		return nil, false
	}

	kind, ok := kindForCode(code)
	if !ok {
		kind, ok = kindForStatus(status)
	}
	if !ok {
		switch fault {
		case smithy.FaultServer:
			kind = KindServerFault
		case smithy.FaultClient:
			kind = KindValidation
		default:
			kind = KindUnknown
		}
	}

	if message == "" {
		message = err.Error()
	}
	return &Error{
		Category:   CategoryService,
		Kind:       kind,
		Retryable:  defaultRetryable(kind),
		Sent:       true,
		HTTPStatus: status,
		Code:       code,
		RequestID:  requestID,
		Message:    message,
	}, true
}

func isCancellation(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var canceled *smithy.CanceledError
	return errors.As(err, &canceled)
}

func isNetwork(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

// beforeSend reports failures that cannot have reached the service.
func beforeSend(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
