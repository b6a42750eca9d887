package domain

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
)

// ErrorKind classifies a failed digest step
type ErrorKind string

const (
	KindNone                    ErrorKind = ""
	KindConfigurationIncomplete ErrorKind = "configuration_incomplete"
	KindDeliveryTimeout         ErrorKind = "delivery_timeout"
	KindDeliveryTransport       ErrorKind = "delivery_transport_error"
	KindDeliveryUnexpected      ErrorKind = "delivery_unexpected_error"
	KindPersistence             ErrorKind = "persistence_error"
)

// ErrMissingTimestamp is returned when a captured message carries no timestamp
var ErrMissingTimestamp = errors.New("message has no timestamp")

// DigestError is a categorized digest failure
type DigestError struct {
	Kind ErrorKind
	Err  error
}

func (e *DigestError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *DigestError) Unwrap() error {
	return e.Err
}

// IncompleteConfigError reports delivery parameters that are missing
type IncompleteConfigError struct {
	Sink    string
	Missing []string
}

func (e *IncompleteConfigError) Error() string {
	return e.Sink + ": missing " + strings.Join(e.Missing, ", ")
}

// TransportError wraps a protocol-level delivery failure (auth, network, API status)
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err, returning nil for a nil err
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// ClassifyDeliveryError maps a sink error to its kind. Timeouts win over transport errors
// because a timed-out dial also surfaces as a *net.OpError.
func ClassifyDeliveryError(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var cfgErr *IncompleteConfigError
	if errors.As(err, &cfgErr) {
		return KindConfigurationIncomplete
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindDeliveryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindDeliveryTimeout
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return KindDeliveryTransport
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return KindDeliveryTransport
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindDeliveryTransport
	}

	return KindDeliveryUnexpected
}
