package omronfins

import (
	"time"

	"go.uber.org/zap"
)

// LoggingInterceptor creates an interceptor that logs all operations
// It logs operation start, end, duration, completion code and any errors.
// A nonzero completion code is logged at warn level.
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	client.SetInterceptor(omronfins.LoggingInterceptor(logger))
//
// Output:
//
//	INFO	FINS	starting	{"operation": "ReadMemArea", "area": "DM_WORD", "address": 100}
//	INFO	FINS	completed	{"operation": "ReadMemArea", "duration": "5ms", "completion_code": "0x0000"}
func LoggingInterceptor(logger *zap.Logger) Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Named logger keeps consistent component label.
	logger = logger.Named("FINS")

	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		start := time.Now()

		logger.Info("starting", operationFields(info)...)

		result, err := c.Invoke(nil)

		duration := time.Since(start)
		if err != nil {
			logger.Error("failed",
				zap.String("operation", string(info.Operation)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return result, err
		}

		code, _ := completionCodeOfResult(result)
		fields := []zap.Field{
			zap.String("operation", string(info.Operation)),
			zap.Duration("duration", duration),
			zap.String("completion_code", code.Hex()),
		}
		if !code.OK() {
			logger.Warn("completed with error code", append(fields, zap.String("description", code.Description()))...)
		} else {
			logger.Info("completed", fields...)
		}
		return result, err
	}
}

func operationFields(info *InterceptorInfo) []zap.Field {
	fields := []zap.Field{
		zap.String("operation", string(info.Operation)),
		zap.Stringer("area", info.MemoryArea),
		zap.Uint16("address", info.Address),
		zap.Uint16("count", info.Count),
	}
	if info.BitOffset != 0 {
		fields = append(fields, zap.Uint8("bit", info.BitOffset))
	}
	if info.Operation.IsWrite() {
		fields = append(fields, zap.Int("values", info.Values.Len()))
	} else {
		fields = append(fields, zap.Stringer("type", info.ElementType))
	}
	return fields
}

// completionCodeOfResult extracts the completion code from an invoker result.
func completionCodeOfResult(result interface{}) (CompletionCode, bool) {
	switch r := result.(type) {
	case Response:
		return r.CompletionCode, true
	case CompletionCode:
		return r, true
	}
	return 0, false
}
