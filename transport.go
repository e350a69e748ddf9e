package omronfins

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

const (
	DefaultSendTimeout    = 1 * time.Second
	DefaultReceiveTimeout = 1 * time.Second
	ReadBufferSize        = 4096
)

// Transport moves one datagram each way. Implementations report failures as
// TransportError so callers can tell a silent PLC from a protocol error.
// A zero timeout waits for the context only.
type Transport interface {
	Send(ctx context.Context, payload []byte, timeout time.Duration) error
	Recv(ctx context.Context, timeout time.Duration) ([]byte, error)
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// udpTransport is a thin wrapper around a connected net.UDPConn.
type udpTransport struct {
	conn *net.UDPConn
	buf  []byte
}

// NewUDPTransport dials remote from local (nil picks an ephemeral port).
func NewUDPTransport(local, remote *net.UDPAddr) (Transport, error) {
	conn, err := net.DialUDP("udp", local, remote)
	if err != nil {
		return nil, err
	}
	return &udpTransport{
		conn: conn,
		buf:  make([]byte, ReadBufferSize),
	}, nil
}

func (t *udpTransport) Send(ctx context.Context, payload []byte, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_ = t.conn.SetWriteDeadline(deadline(ctx, timeout))
	if _, err := t.conn.Write(payload); err != nil {
		if cerr := contextErr(ctx); cerr != nil {
			return cerr
		}
		if isTimeout(err) {
			return TransportError{Kind: SendTimeout, Err: err}
		}
		return TransportError{Kind: SendError, Err: err}
	}
	return nil
}

func (t *udpTransport) Recv(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = t.conn.SetReadDeadline(deadline(ctx, timeout))
	n, err := t.conn.Read(t.buf)
	if err != nil {
		// surface cancellation instead of the deadline it caused
		if cerr := contextErr(ctx); cerr != nil {
			return nil, cerr
		}
		if isTimeout(err) {
			return nil, TransportError{Kind: ReceiveTimeout, Err: err}
		}
		return nil, TransportError{Kind: ReceiveError, Err: err}
	}
	return append([]byte(nil), t.buf[:n]...), nil
}

func (t *udpTransport) Close() error {
	return t.conn.Close()
}

func (t *udpTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *udpTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

// deadline returns the earlier of now+timeout and the context deadline.
// The zero time means no deadline.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if cd, ok := ctx.Deadline(); ok && (d.IsZero() || cd.Before(d)) {
		d = cd
	}
	return d
}

// contextErr also reports a context deadline that has passed but whose
// timer has not fired yet.
func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cd, ok := ctx.Deadline(); ok && !time.Now().Before(cd) {
		return context.DeadlineExceeded
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
