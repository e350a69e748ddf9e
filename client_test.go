package omronfins

import (
	"context"
	"encoding/hex"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestClient(t *testing.T, plc *fakePLC, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithReceiveTimeout(500 * time.Millisecond)}, opts...)
	c, err := NewUDPClient(NewLocalAddress(0, 2, 0), plc.address(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestFinsClient(t *testing.T) {
	ctx := context.Background()
	plc := newFakePLC(t)
	c := newTestClient(t, plc)

	// ------------- Test Words
	code, err := c.WriteMemArea(ctx, MemoryAreaDMWord, 100, 0, 3, Many(Uint16(5), Uint16(4), Uint16(3)))
	require.NoError(t, err)
	assert.True(t, code.OK())

	resp, err := c.ReadMemArea(ctx, MemoryAreaDMWord, 100, 0, 3, TypeUShort)
	require.NoError(t, err)
	assert.True(t, resp.CompletionCode.OK())
	assert.Equal(t, []interface{}{uint16(5), uint16(4), uint16(3)}, resp.Value)

	// ------------- Test wide values
	_, err = c.WriteMemArea(ctx, MemoryAreaDMWord, 200, 0, 2, Single(Int32(-123456)))
	require.NoError(t, err)
	resp, err = c.ReadMemArea(ctx, MemoryAreaDMWord, 200, 0, 2, TypeInt)
	require.NoError(t, err)
	assert.Equal(t, int32(-123456), resp.Value)

	// low word first in PLC memory
	resp, err = c.ReadMemArea(ctx, MemoryAreaDMWord, 200, 0, 1, TypeUShort)
	require.NoError(t, err)
	assert.Equal(t, uint16(uint32(0xFFFE1DC0)&0xFFFF), resp.Value)

	_, err = c.WriteMemArea(ctx, MemoryAreaDMWord, 300, 0, 4, Single(Float64(-20)))
	require.NoError(t, err)
	resp, err = c.ReadMemArea(ctx, MemoryAreaDMWord, 300, 0, 4, TypeDouble)
	require.NoError(t, err)
	assert.Equal(t, float64(-20), resp.Value)

	// ------------- Test Strings
	_, err = c.WriteMemArea(ctx, MemoryAreaDMWord, 10, 0, 3, Single(Text("hello!")))
	require.NoError(t, err)
	resp, err = c.ReadMemArea(ctx, MemoryAreaDMWord, 10, 0, 3, TypeString)
	require.NoError(t, err)
	assert.Equal(t, "hello!", resp.Value)

	// ------------- Test Bytes
	_, err = c.WriteMemArea(ctx, MemoryAreaDMWord, 20, 0, 2, Single(Raw([]byte{0x00, 0x00, 0xC1, 0xA0})))
	require.NoError(t, err)
	resp, err = c.ReadMemArea(ctx, MemoryAreaDMWord, 20, 0, 2, TypeBytes)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xC1, 0xA0}, resp.Value)
}

func TestClientFramesCarryConfiguredHeader(t *testing.T) {
	plc := newFakePLC(t)
	c := newTestClient(t, plc, WithServiceID(7))

	_, err := c.ReadMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	require.NoError(t, err)

	req := plc.lastRequest()
	require.Len(t, req, HeaderSize+commandParamSize)
	h, err := ParseHeader(req)
	require.NoError(t, err)
	assert.Equal(t, FinsAddress{0, 10, 0}, h.Destination)
	assert.Equal(t, FinsAddress{0, 2, 0}, h.Source)
	assert.Equal(t, byte(7), h.ServiceID)
	assert.Equal(t, c.Header(), req[:HeaderSize])

	// a new destination replaces the cached header
	c.SetDestination(FinsAddress{1, 20, 0}, 4)
	_, err = c.ReadMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	require.NoError(t, err)
	h, err = ParseHeader(plc.lastRequest())
	require.NoError(t, err)
	assert.Equal(t, FinsAddress{1, 20, 0}, h.Destination)
}

func TestCompletionCodeIsNotAnError(t *testing.T) {
	ctx := context.Background()
	plc := newFakePLC(t)
	c := newTestClient(t, plc)
	plc.setEndCode(EndCodeAddressRangeError)

	resp, err := c.ReadMemArea(ctx, MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	require.NoError(t, err)
	assert.Equal(t, EndCodeAddressRangeError, resp.CompletionCode)
	assert.Nil(t, resp.Value)

	code, err := c.WriteMemArea(ctx, MemoryAreaDMWord, 0, 0, 1, Single(Uint16(1)))
	require.NoError(t, err)
	assert.Equal(t, EndCodeAddressRangeError, code)
}

func TestReceiveTimeout(t *testing.T) {
	ctx := context.Background()
	plc := newFakePLC(t)
	c := newTestClient(t, plc, WithReceiveTimeout(50*time.Millisecond))
	plc.setSilent(true)

	start := time.Now()
	_, err := c.ReadMemArea(ctx, MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	assert.ErrorIs(t, err, ErrReceiveTimeout)
	assert.True(t, IsTransportError(err))
	assert.Less(t, time.Since(start), time.Second)

	var te TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, -3, te.Code())
	assert.True(t, te.Timeout())

	// the socket stays usable after a timeout
	plc.setSilent(false)
	resp, err := c.ReadMemArea(ctx, MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	require.NoError(t, err)
	assert.True(t, resp.CompletionCode.OK())
}

func TestReceiveErrorOnClosedPort(t *testing.T) {
	// bind and release a port so nothing listens on it
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())

	c, err := NewUDPClient(NewLocalAddress(0, 2, 0), NewAddress("127.0.0.1", port, 0, 1, 0),
		WithReceiveTimeout(200*time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ReadMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	require.Error(t, err)
	// ICMP port unreachable surfaces as a receive error; a filtered
	// loopback shows up as a timeout instead
	assert.True(t, errors.Is(err, ErrReceiveError) || errors.Is(err, ErrReceiveTimeout), "got %v", err)
}

func TestContextCancellation(t *testing.T) {
	plc := newFakePLC(t)
	c := newTestClient(t, plc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ReadMemArea(ctx, MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, plc.requestCount())
}

func TestContextDeadlineShortensReceiveTimeout(t *testing.T) {
	plc := newFakePLC(t)
	c := newTestClient(t, plc, WithReceiveTimeout(5*time.Second))
	plc.setSilent(true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.ReadMemArea(ctx, MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSizeMismatchIsNotSent(t *testing.T) {
	plc := newFakePLC(t)
	c := newTestClient(t, plc)

	_, err := c.WriteMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 3, Many(Uint16(1)))
	assert.ErrorIs(t, err, SizeMismatchError{})
	assert.Equal(t, 0, plc.requestCount())
}

func TestClientNotConfigured(t *testing.T) {
	plc := newFakePLC(t)
	tr, err := NewUDPTransport(nil, plc.address().UdpAddress)
	require.NoError(t, err)
	c := NewClient(tr, FinsAddress{0, 2, 0})
	defer c.Close()

	assert.Nil(t, c.Header())
	_, ok := c.Destination()
	assert.False(t, ok)

	_, err = c.ReadMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.WriteMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, Single(Uint16(1)))
	assert.ErrorIs(t, err, ErrNotConfigured)

	c.SetDestination(FinsAddress{0, 10, 0}, DefaultResponseDelay)
	_, err = c.ReadMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	assert.NoError(t, err)
}

func TestClientClosed(t *testing.T) {
	plc := newFakePLC(t)
	c := newTestClient(t, plc)

	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())
	assert.NoError(t, c.Close())

	_, err := c.ReadMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	assert.ErrorIs(t, err, ClientClosedError{})
	_, err = c.WriteMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, Single(Uint16(1)))
	assert.ErrorIs(t, err, ClientClosedError{})
	_, err = c.SendAndReceive(context.Background(), []byte{0x80})
	assert.ErrorIs(t, err, ClientClosedError{})
}

func TestSendAndReceiveReturnsStrayResponse(t *testing.T) {
	plc := newFakePLC(t)
	c := newTestClient(t, plc, WithServiceID(1))

	plc.setResponder(func(req []byte) []byte {
		resp := append([]byte(nil), req[:HeaderSize+2]...)
		resp[serviceIDIndex] = 0x99
		return append(resp, 0x00, 0x00)
	})

	raw, err := c.SendAndReceive(context.Background(), BuildReadCommand(c.Header(), MemoryAreaDMWord, 0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, raw, ResponsePreambleSize)
	assert.False(t, IsResponseToMe(raw, c.Header()))
}

func TestClientLogsFramesAtDebug(t *testing.T) {
	plc := newFakePLC(t)
	core, logs := observer.New(zapcore.DebugLevel)
	c := newTestClient(t, plc, WithLogger(zap.New(core)))

	_, err := c.ReadMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	require.NoError(t, err)

	sent := logs.FilterMessage("send").All()
	require.Len(t, sent, 1)
	assert.Equal(t, "FINS", sent[0].LoggerName)
	assert.Equal(t, hex.EncodeToString(plc.lastRequest()), fieldString(sent[0].Context, "frame"))
	assert.Len(t, logs.FilterMessage("recv").All(), 1)
}

func TestClientInterceptorSeesOperation(t *testing.T) {
	plc := newFakePLC(t)
	var seen []*InterceptorInfo
	c := newTestClient(t, plc, WithInterceptor(func(ic *InterceptorCtx) (interface{}, error) {
		seen = append(seen, ic.Info())
		return ic.Invoke(nil)
	}))

	_, err := c.ReadMemArea(context.Background(), MemoryAreaHRWord, 5, 0, 2, TypeUInt)
	require.NoError(t, err)
	_, err = c.WriteMemArea(context.Background(), MemoryAreaWRBit, 1, 3, 1, Single(Bit(true)))
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, OpReadMemArea, seen[0].Operation)
	assert.Equal(t, MemoryAreaHRWord, seen[0].MemoryArea)
	assert.Equal(t, TypeUInt, seen[0].ElementType)
	assert.Equal(t, OpWriteMemArea, seen[1].Operation)
	assert.Equal(t, byte(3), seen[1].BitOffset)
	assert.Equal(t, 1, seen[1].Values.Len())
}

func TestInterceptorCanShortCircuit(t *testing.T) {
	plc := newFakePLC(t)
	c := newTestClient(t, plc)
	c.SetInterceptor(ReadOnlyInterceptor())

	_, err := c.WriteMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, Single(Uint16(1)))
	assert.Error(t, err)
	assert.Equal(t, 0, plc.requestCount())

	_, err = c.ReadMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	assert.NoError(t, err)
	assert.Equal(t, 1, plc.requestCount())
}

func TestClientWatchdogTracksReachability(t *testing.T) {
	ctx := context.Background()
	plc := newFakePLC(t)
	c := newTestClient(t, plc, WithReceiveTimeout(50*time.Millisecond))
	wd := NewConnectionWatchdog(4)
	require.NoError(t, c.Use(wd))
	assert.Equal(t, []string{"connection_watchdog"}, c.Plugins())

	_, err := c.ReadMemArea(ctx, MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	require.NoError(t, err)
	evt := <-wd.Events()
	assert.Equal(t, ConnectionEventReachable, evt.Type)

	plc.setSilent(true)
	_, err = c.ReadMemArea(ctx, MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	require.Error(t, err)
	evt = <-wd.Events()
	assert.Equal(t, ConnectionEventUnreachable, evt.Type)
	assert.ErrorIs(t, evt.Err, ErrReceiveTimeout)

	stats := wd.Stats()
	assert.False(t, stats.Reachable)
	assert.Equal(t, int64(2), stats.Exchanges)
	assert.Equal(t, int64(1), stats.Failures)
}

func TestAddressHelpers(t *testing.T) {
	a := NewAddress("10.0.0.5", 0, 1, 2, 3)
	assert.Equal(t, DefaultPort, a.UdpAddress.Port)
	assert.Equal(t, FinsAddress{1, 2, 3}, a.FinAddress)
	assert.Equal(t, "net=1 node=2 unit=3", a.FinAddress.String())

	local := NewLocalAddress(0, 170, 0)
	assert.Nil(t, local.UdpAddress)

	r, err := ResolveAddress("127.0.0.1", 9601, 0, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 9601, r.UdpAddress.Port)
}

func TestNopClient(t *testing.T) {
	var c FINSClient = NopClient{}
	resp, err := c.ReadMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, TypeUShort)
	assert.NoError(t, err)
	assert.Nil(t, resp.Value)
	code, err := c.WriteMemArea(context.Background(), MemoryAreaDMWord, 0, 0, 1, Single(Uint16(1)))
	assert.NoError(t, err)
	assert.True(t, code.OK())
}
