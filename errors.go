package omronfins

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by client calls made before a destination is set.
var ErrNotConfigured = errors.New("destination not configured")

// ClientClosedError is returned by calls on a closed client.
type ClientClosedError struct{}

func (ClientClosedError) Error() string {
	return "client is closed"
}

// SizeMismatchError reports a write whose value list length differs from
// the declared element count.
type SizeMismatchError struct {
	Count  uint16
	Values int
}

func (e SizeMismatchError) Error() string {
	return fmt.Sprintf("element count %d does not match %d supplied values", e.Count, e.Values)
}

// Is makes errors.Is(err, SizeMismatchError{}) match any size mismatch.
func (SizeMismatchError) Is(target error) bool {
	_, ok := target.(SizeMismatchError)
	return ok
}

// TruncatedError reports a frame shorter than its fixed preamble.
type TruncatedError struct {
	Length int
	Want   int
}

func (e TruncatedError) Error() string {
	return fmt.Sprintf("truncated frame: got %d bytes, need at least %d", e.Length, e.Want)
}

// Is makes errors.Is(err, TruncatedError{}) match any truncation.
func (TruncatedError) Is(target error) bool {
	_, ok := target.(TruncatedError)
	return ok
}

// MisalignedPayloadError reports a read payload that does not split evenly
// into elements of the requested type.
type MisalignedPayloadError struct {
	Length int
	Type   ElementType
}

func (e MisalignedPayloadError) Error() string {
	return fmt.Sprintf("payload of %d bytes is not a multiple of %s size %d", e.Length, e.Type, e.Type.Size())
}

func (MisalignedPayloadError) Is(target error) bool {
	_, ok := target.(MisalignedPayloadError)
	return ok
}

// TransportErrorKind distinguishes where an exchange failed. The numeric
// values are the classic status codes of FINS/UDP clients.
type TransportErrorKind int

const (
	SendTimeout    TransportErrorKind = -1
	SendError      TransportErrorKind = -2
	ReceiveTimeout TransportErrorKind = -3
	ReceiveError   TransportErrorKind = -4
)

func (k TransportErrorKind) String() string {
	switch k {
	case SendTimeout:
		return "send timeout"
	case SendError:
		return "send error"
	case ReceiveTimeout:
		return "receive timeout"
	case ReceiveError:
		return "receive error"
	}
	return fmt.Sprintf("transport error %d", int(k))
}

// TransportError A failed send or receive. The PLC did not answer, as
// opposed to answering with a nonzero completion code.
type TransportError struct {
	Kind TransportErrorKind
	Err  error
}

func (e TransportError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// Is matches a TransportError of the same kind, or any TransportError when
// the target kind is zero.
func (e TransportError) Is(target error) bool {
	t, ok := target.(TransportError)
	if !ok {
		return false
	}
	return t.Kind == 0 || t.Kind == e.Kind
}

// Code returns the status code of the failure (-1 to -4).
func (e TransportError) Code() int {
	return int(e.Kind)
}

// Timeout reports whether the failure was a send or receive timeout.
func (e TransportError) Timeout() bool {
	return e.Kind == SendTimeout || e.Kind == ReceiveTimeout
}

// Sentinels for errors.Is.
var (
	ErrSendTimeout    = TransportError{Kind: SendTimeout}
	ErrSendError      = TransportError{Kind: SendError}
	ErrReceiveTimeout = TransportError{Kind: ReceiveTimeout}
	ErrReceiveError   = TransportError{Kind: ReceiveError}
)
