package omronfins

import (
	"context"
	"time"
)

// NopClient implements FINSClient with no-op behavior.
// Reads return an empty successful response and writes report normal completion.
type NopClient struct{}

func (NopClient) SetDestination(FinsAddress, byte) {}
func (NopClient) SetSendTimeout(time.Duration)     {}
func (NopClient) SetReceiveTimeout(time.Duration)  {}
func (NopClient) SetInterceptor(Interceptor)       {}
func (NopClient) Use(...Plugin) error              { return nil }
func (NopClient) IsClosed() bool                   { return false }
func (NopClient) Close() error                     { return nil }
func (NopClient) ReadMemArea(context.Context, MemoryArea, uint16, byte, uint16, ElementType) (Response, error) {
	return Response{}, nil
}
func (NopClient) WriteMemArea(context.Context, MemoryArea, uint16, byte, uint16, WriteValues) (CompletionCode, error) {
	return EndCodeNormalCompletion, nil
}
func (NopClient) SendAndReceive(context.Context, []byte) ([]byte, error) {
	return nil, nil
}

var _ FINSClient = NopClient{}
