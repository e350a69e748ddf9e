package omronfins

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client is a FINS/UDP client bound to one PLC destination and one socket.
// Exchanges are serialized: a client has at most one request in flight.
type Client struct {
	transport Transport
	src       FinsAddress
	logger    *zap.Logger

	// xmu serializes exchanges on the transport
	xmu sync.Mutex

	mu            sync.RWMutex
	serviceID     byte
	dst           FinsAddress
	responseDelay byte
	header        []byte
	sendTimeout   time.Duration
	recvTimeout   time.Duration
	interceptor   Interceptor
	closed        bool

	plugins pluginManager
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithServiceID sets the service id byte stamped on every request.
func WithServiceID(sid byte) ClientOption {
	return func(c *Client) { c.serviceID = sid }
}

// WithSendTimeout overrides DefaultSendTimeout. Zero waits on the context only.
func WithSendTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.sendTimeout = d }
}

// WithReceiveTimeout overrides DefaultReceiveTimeout. Zero waits on the context only.
func WithReceiveTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.recvTimeout = d }
}

// WithLogger sets the logger used for frame tracing at debug level.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l.Named("FINS")
		}
	}
}

// WithInterceptor installs an interceptor, see SetInterceptor.
func WithInterceptor(i Interceptor) ClientOption {
	return func(c *Client) { c.interceptor = i }
}

// NewClient builds a client on an existing transport. The destination must be
// set with SetDestination before reading or writing.
func NewClient(t Transport, src FinsAddress, opts ...ClientOption) *Client {
	c := &Client{
		transport:   t,
		src:         src,
		logger:      zap.NewNop(),
		sendTimeout: DefaultSendTimeout,
		recvTimeout: DefaultReceiveTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewUDPClient opens a UDP socket from localAddr to plcAddr and configures
// the destination with DefaultResponseDelay.
func NewUDPClient(localAddr, plcAddr Address, opts ...ClientOption) (*Client, error) {
	if plcAddr.UdpAddress == nil {
		return nil, fmt.Errorf("plc udp address is required")
	}
	t, err := NewUDPTransport(localAddr.UdpAddress, plcAddr.UdpAddress)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", plcAddr.UdpAddress, err)
	}
	c := NewClient(t, localAddr.FinAddress, opts...)
	c.SetDestination(plcAddr.FinAddress, DefaultResponseDelay)
	return c, nil
}

// SetDestination rebuilds the cached header for dst. It replaces any
// previous destination.
func (c *Client) SetDestination(dst FinsAddress, responseDelay byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dst = dst
	c.responseDelay = responseDelay
	c.header = BuildHeader(c.src, dst, c.serviceID, responseDelay)
}

// Destination returns the configured destination and whether one is set.
func (c *Client) Destination() (FinsAddress, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dst, c.header != nil
}

// Header returns a copy of the cached header, or nil before SetDestination.
func (c *Client) Header() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.header == nil {
		return nil
	}
	return append([]byte(nil), c.header...)
}

// Source returns the client's own FINS address.
func (c *Client) Source() FinsAddress {
	return c.src
}

// ServiceID returns the service id stamped on requests.
func (c *Client) ServiceID() byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serviceID
}

// SetSendTimeout sets the send timeout for subsequent exchanges.
func (c *Client) SetSendTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendTimeout = d
}

// SetReceiveTimeout sets the receive timeout for subsequent exchanges.
func (c *Client) SetReceiveTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvTimeout = d
}

// SetInterceptor replaces the interceptor wrapping ReadMemArea and
// WriteMemArea. Use ChainInterceptors to install several; nil removes it.
func (c *Client) SetInterceptor(interceptor Interceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptor = interceptor
}

// Use registers plugins. Names must be unique per client.
func (c *Client) Use(plugins ...Plugin) error {
	return c.plugins.use(c, plugins...)
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close closes the socket. Closing twice is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	return c.transport.Close()
}

// SendAndReceive sends frame as one datagram and returns the next datagram
// received, whatever it is. Matching the reply against the request is left
// to the caller (see IsResponseToMe). Failures are TransportError values or
// the context's error.
func (c *Client) SendAndReceive(ctx context.Context, frame []byte) ([]byte, error) {
	c.mu.RLock()
	closed, sendTimeout, recvTimeout := c.closed, c.sendTimeout, c.recvTimeout
	c.mu.RUnlock()
	if closed {
		return nil, ClientClosedError{}
	}

	c.xmu.Lock()
	defer c.xmu.Unlock()

	start := time.Now()
	resp, err := c.exchange(ctx, frame, sendTimeout, recvTimeout)
	c.plugins.notifyExchange(c, Exchange{
		Request:  frame,
		Response: resp,
		Err:      err,
		RTT:      time.Since(start),
	})
	return resp, err
}

func (c *Client) exchange(ctx context.Context, frame []byte, sendTimeout, recvTimeout time.Duration) ([]byte, error) {
	if ce := c.logger.Check(zap.DebugLevel, "send"); ce != nil {
		ce.Write(zap.String("frame", hex.EncodeToString(frame)))
	}
	if err := c.transport.Send(ctx, frame, sendTimeout); err != nil {
		c.logger.Debug("send failed", zap.Error(err))
		return nil, err
	}
	resp, err := c.transport.Recv(ctx, recvTimeout)
	if err != nil {
		c.logger.Debug("receive failed", zap.Error(err))
		return nil, err
	}
	if ce := c.logger.Check(zap.DebugLevel, "recv"); ce != nil {
		ce.Write(zap.String("frame", hex.EncodeToString(resp)))
	}
	return resp, nil
}

// ReadMemArea reads count elements of type typ starting at area:address.bit.
// A nonzero completion code is returned in the Response, not as an error.
func (c *Client) ReadMemArea(ctx context.Context, area MemoryArea, address uint16, bit byte, count uint16, typ ElementType) (Response, error) {
	header, interceptor, err := c.prepare()
	if err != nil {
		return Response{}, err
	}

	info := &InterceptorInfo{
		Operation:   OpReadMemArea,
		MemoryArea:  area,
		Address:     address,
		BitOffset:   bit,
		Count:       count,
		ElementType: typ,
	}
	result, err := intercept(ctx, interceptor, info, func(ctx context.Context) (interface{}, error) {
		raw, err := c.SendAndReceive(ctx, BuildReadCommand(header, area, address, bit, count))
		if err != nil {
			return nil, err
		}
		return DecodeResponse(raw, typ)
	})
	resp, _ := result.(Response)
	return resp, err
}

// WriteMemArea writes values starting at area:address.bit and returns the
// completion code. A Many list must hold exactly count values.
func (c *Client) WriteMemArea(ctx context.Context, area MemoryArea, address uint16, bit byte, count uint16, values WriteValues) (CompletionCode, error) {
	header, interceptor, err := c.prepare()
	if err != nil {
		return 0, err
	}

	info := &InterceptorInfo{
		Operation:  OpWriteMemArea,
		MemoryArea: area,
		Address:    address,
		BitOffset:  bit,
		Count:      count,
		Values:     values,
	}
	result, err := intercept(ctx, interceptor, info, func(ctx context.Context) (interface{}, error) {
		frame, err := BuildWriteCommand(header, area, address, bit, count, values)
		if err != nil {
			return nil, err
		}
		raw, err := c.SendAndReceive(ctx, frame)
		if err != nil {
			return nil, err
		}
		return CompletionCodeOf(raw)
	})
	code, _ := result.(CompletionCode)
	return code, err
}

func (c *Client) prepare() ([]byte, Interceptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, nil, ClientClosedError{}
	}
	if c.header == nil {
		return nil, nil, ErrNotConfigured
	}
	return c.header, c.interceptor, nil
}

// IsTransportError reports whether err means the PLC did not answer.
func IsTransportError(err error) bool {
	return errors.Is(err, TransportError{})
}

// Ensure Client implements the interface.
var _ FINSClient = (*Client)(nil)
