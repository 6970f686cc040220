package utils

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsConnectionFailure reports whether err means the provider could not be reached at
// all: refused connections, failed dials and unresolvable hosts. Timeouts, auth failures
// and HTTP status errors are not connection failures.
func IsConnectionFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return true
	}

	// Some clients flatten the cause into the message.
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host")
}

// IsClientGone reports whether err stems from the caller abandoning the request.
func IsClientGone(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed)
}
