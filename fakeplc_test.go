package omronfins

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePLC answers memory area read/write commands on a loopback UDP socket.
// Memory is word addressed; a read of count returns count words.
type fakePLC struct {
	conn *net.UDPConn

	mu       sync.Mutex
	mem      map[MemoryArea]map[uint16]uint16
	requests [][]byte
	silent   bool
	endCode  CompletionCode
	respond  func(req []byte) []byte
}

func newFakePLC(t *testing.T) *fakePLC {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	p := &fakePLC{
		conn: conn,
		mem:  make(map[MemoryArea]map[uint16]uint16),
	}
	go p.serve()
	t.Cleanup(func() { _ = conn.Close() })
	return p
}

func (p *fakePLC) address() Address {
	port := p.conn.LocalAddr().(*net.UDPAddr).Port
	return NewAddress("127.0.0.1", port, 0, 10, 0)
}

func (p *fakePLC) setSilent(silent bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.silent = silent
}

func (p *fakePLC) setEndCode(code CompletionCode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endCode = code
}

func (p *fakePLC) setResponder(fn func(req []byte) []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.respond = fn
}

func (p *fakePLC) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakePLC) lastRequest() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}

func (p *fakePLC) serve() {
	buf := make([]byte, ReadBufferSize)
	for {
		n, from, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if resp := p.handle(append([]byte(nil), buf[:n]...)); resp != nil {
			_, _ = p.conn.WriteToUDP(resp, from)
		}
	}
}

func (p *fakePLC) handle(req []byte) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.silent {
		return nil
	}
	if p.respond != nil {
		return p.respond(req)
	}
	if len(req) < HeaderSize+commandParamSize {
		return nil
	}

	resp := append([]byte(nil), req[:HeaderSize+2]...)
	resp = binary.BigEndian.AppendUint16(resp, uint16(p.endCode))
	if p.endCode != EndCodeNormalCompletion {
		return resp
	}

	area := MemoryArea(req[12])
	address := binary.BigEndian.Uint16(req[13:15])
	count := binary.BigEndian.Uint16(req[16:18])
	words, ok := p.mem[area]
	if !ok {
		words = make(map[uint16]uint16)
		p.mem[area] = words
	}

	switch CommandCode(binary.BigEndian.Uint16(req[10:12])) {
	case CommandCodeMemoryAreaRead:
		for i := uint16(0); i < count; i++ {
			resp = binary.BigEndian.AppendUint16(resp, words[address+i])
		}
	case CommandCodeMemoryAreaWrite:
		payload := req[HeaderSize+commandParamSize:]
		if len(payload)%2 == 1 {
			payload = append(payload, 0x00)
		}
		for i := 0; i < len(payload); i += 2 {
			words[address+uint16(i/2)] = binary.BigEndian.Uint16(payload[i:])
		}
	default:
		resp[completionCodeOffset] = 0x04
		resp[completionCodeOffset+1] = 0x01
	}
	return resp
}
