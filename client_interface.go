package omronfins

import (
	"context"
	"time"
)

// Configuration operations.
type ClientConfig interface {
	SetDestination(dst FinsAddress, responseDelay byte)
	SetSendTimeout(d time.Duration)
	SetReceiveTimeout(d time.Duration)
}

// Interceptor/plugin hooks.
type ClientHooks interface {
	SetInterceptor(interceptor Interceptor)
	Use(plugins ...Plugin) error
}

// Lifecycle controls.
type ClientLifecycle interface {
	IsClosed() bool
	Close() error
}

// MemoryReader reads PLC memory areas.
type MemoryReader interface {
	ReadMemArea(ctx context.Context, area MemoryArea, address uint16, bit byte, count uint16, typ ElementType) (Response, error)
}

// MemoryWriter writes PLC memory areas.
type MemoryWriter interface {
	WriteMemArea(ctx context.Context, area MemoryArea, address uint16, bit byte, count uint16, values WriteValues) (CompletionCode, error)
}

// FINSClient defines the public contract of Client for easier testing/mocking.
type FINSClient interface {
	ClientConfig
	ClientHooks
	ClientLifecycle
	MemoryReader
	MemoryWriter
	SendAndReceive(ctx context.Context, frame []byte) ([]byte, error)
}
