package omronfins

import "go.uber.org/zap"

// TracingInterceptor creates an interceptor that extracts trace IDs from
// the context and logs them with the operation. Calls without a trace ID
// pass through silently.
//
// Example:
//
//	type traceKey struct{}
//	client.SetInterceptor(omronfins.TracingInterceptor(traceKey{}, logger))
//
//	ctx := context.WithValue(context.Background(), traceKey{}, "trace-12345")
//	client.ReadMemArea(ctx, omronfins.MemoryAreaDMWord, 100, 0, 5, omronfins.TypeUShort)
//	// DEBUG	FINS.trace	ReadMemArea	{"trace_id": "trace-12345", "area": "DM_WORD", "address": 100}
func TracingInterceptor(traceIDKey interface{}, logger *zap.Logger) Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("FINS").Named("trace")

	return func(c *InterceptorCtx) (interface{}, error) {
		traceID := c.Context().Value(traceIDKey)
		if traceID == nil {
			return c.Invoke(nil)
		}

		info := c.Info()
		l := logger.With(zap.Any("trace_id", traceID))
		l.Debug(string(info.Operation),
			zap.Stringer("area", info.MemoryArea),
			zap.Uint16("address", info.Address),
		)
		result, err := c.Invoke(nil)
		if err != nil {
			l.Debug(string(info.Operation)+" failed", zap.Error(err))
		}
		return result, err
	}
}
