package omronfins

import "context"

// OperationType represents the type of FINS operation
type OperationType string

const (
	OpReadMemArea  OperationType = "ReadMemArea"
	OpWriteMemArea OperationType = "WriteMemArea"
)

// IsWrite reports whether the operation changes PLC memory.
func (op OperationType) IsWrite() bool {
	return op == OpWriteMemArea
}

// InterceptorInfo contains information about the operation being performed
type InterceptorInfo struct {
	Operation   OperationType
	MemoryArea  MemoryArea
	Address     uint16
	BitOffset   byte
	Count       uint16
	ElementType ElementType // reads only
	Values      WriteValues // writes only
}

// Invoker is a function that executes the actual operation
type Invoker func(ctx context.Context) (interface{}, error)

// InterceptorCtx carries one intercepted call through the chain.
type InterceptorCtx struct {
	ctx     context.Context
	info    *InterceptorInfo
	invoker Invoker
}

// Context returns the context of the call.
func (c *InterceptorCtx) Context() context.Context {
	return c.ctx
}

// Info describes the call. Interceptors must not modify it.
func (c *InterceptorCtx) Info() *InterceptorInfo {
	return c.info
}

// Invoke runs the rest of the chain. A nil ctx reuses the call's context.
func (c *InterceptorCtx) Invoke(ctx context.Context) (interface{}, error) {
	if ctx == nil {
		ctx = c.ctx
	}
	return c.invoker(ctx)
}

// Interceptor wraps ReadMemArea and WriteMemArea. The result of the
// invoker is a Response for reads and a CompletionCode for writes.
//
// The interceptor can:
//   - Log or measure the operation
//   - Modify the context
//   - Retry or short-circuit the operation
//
// Example:
//
//	func timing(c *omronfins.InterceptorCtx) (interface{}, error) {
//	    start := time.Now()
//	    result, err := c.Invoke(nil)
//	    log.Printf("%s took %v", c.Info().Operation, time.Since(start))
//	    return result, err
//	}
type Interceptor func(c *InterceptorCtx) (interface{}, error)

// ChainInterceptors chains multiple interceptors into a single interceptor
// Interceptors are executed in order: first interceptor wraps second, second wraps third, etc.
func ChainInterceptors(interceptors ...Interceptor) Interceptor {
	var chain []Interceptor
	for _, i := range interceptors {
		if i != nil {
			chain = append(chain, i)
		}
	}

	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	}

	return func(c *InterceptorCtx) (interface{}, error) {
		next := ChainInterceptors(chain[1:]...)
		return chain[0](&InterceptorCtx{
			ctx:  c.ctx,
			info: c.info,
			invoker: func(ctx context.Context) (interface{}, error) {
				return next(&InterceptorCtx{ctx: ctx, info: c.info, invoker: c.invoker})
			},
		})
	}
}

// intercept runs invoker through interceptor, or directly when there is none.
func intercept(ctx context.Context, interceptor Interceptor, info *InterceptorInfo, invoker Invoker) (interface{}, error) {
	if interceptor == nil {
		return invoker(ctx)
	}
	return interceptor(&InterceptorCtx{ctx: ctx, info: info, invoker: invoker})
}
