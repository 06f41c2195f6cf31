package testing

import (
	"context"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/imamik/computectl/internal/apierr"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// RemoteError builds a protocol error as a provider transport would return it.
func RemoteError(status int, code, message string) error {
	return &apierr.RemoteError{StatusCode: status, Code: code, Message: message, RequestID: "req-fake"}
}

// ConnReset is a network failure after the request was written.
func ConnReset() error {
	return &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}
}

// ConnRefused is a network failure before anything was sent.
func ConnRefused() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}
