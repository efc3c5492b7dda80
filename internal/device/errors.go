package device

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies every way a device call can fail. The closed set
// keeps the fail-closed contract explicit: callers see a normalized error,
// never a raw transport error.
type ErrorKind int

const (
	// KindTransport covers connection failures: refused, reset, no route.
	KindTransport ErrorKind = iota
	// KindTimeout covers calls that exceeded the fixed request timeout.
	KindTimeout
	// KindStatus covers non-2xx responses from the device.
	KindStatus
	// KindDecode covers malformed response bodies.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is the only error type the gateway returns.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("device %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps a transport-layer error onto the closed kind set.
func classify(op string, err error) *Error {
	kind := KindTransport
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = KindTimeout
	} else if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
