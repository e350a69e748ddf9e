package omronfins

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingInterceptor(t *testing.T) {
	ctx := context.Background()
	info := &InterceptorInfo{
		Operation:   OpReadMemArea,
		MemoryArea:  MemoryAreaDMWord,
		Address:     42,
		Count:       2,
		ElementType: TypeUShort,
	}

	// Success case
	core, logs := observer.New(zap.InfoLevel)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(
		zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }),
	))
	_, err := LoggingInterceptor(logger)(&InterceptorCtx{
		ctx:  ctx,
		info: info,
		invoker: func(context.Context) (interface{}, error) {
			return Response{CompletionCode: EndCodeNormalCompletion}, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs.Len() != 2 {
		t.Fatalf("expected 2 log entries, got %d", logs.Len())
	}
	entries := logs.All()
	start := entries[0]
	if start.Message != "starting" || fieldString(start.Context, "operation") != "ReadMemArea" {
		t.Fatalf("unexpected start log: %+v", start)
	}
	end := entries[1]
	if end.Message != "completed" || fieldString(end.Context, "completion_code") != "0x0000" {
		t.Fatalf("unexpected completion log: %+v", end)
	}

	// Nonzero completion code is a warning, not an error
	logs.TakeAll()
	_, err = LoggingInterceptor(logger)(&InterceptorCtx{
		ctx:  ctx,
		info: &InterceptorInfo{Operation: OpWriteMemArea, Values: Single(Uint16(1))},
		invoker: func(context.Context) (interface{}, error) {
			return EndCodeWriteNotPossibleReadOnly, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries = logs.All()
	if len(entries) != 2 || entries[1].Level != zap.WarnLevel {
		t.Fatalf("expected warn entry for completion code, got %+v", entries)
	}
	if fieldString(entries[1].Context, "description") != "write not possible: read-only" {
		t.Fatalf("unexpected description: %+v", entries[1].Context)
	}

	// Error case
	logs.TakeAll()
	_, err = LoggingInterceptor(logger)(&InterceptorCtx{
		ctx:  ctx,
		info: info,
		invoker: func(context.Context) (interface{}, error) {
			return nil, errors.New("boom")
		},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	entries = logs.All()
	if len(entries) != 2 || entries[1].Message != "failed" {
		t.Fatalf("unexpected log output on error: %+v", entries)
	}
	if entries[1].Level != zap.ErrorLevel || fieldError(entries[1].Context, "error") != "boom" {
		t.Fatalf("expected error entry with boom, got %+v", entries[1])
	}
}

func fieldString(fields []zap.Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			if s, ok := f.Interface.(interface{ String() string }); ok && f.String == "" {
				return s.String()
			}
			return f.String
		}
	}
	return ""
}

func fieldError(fields []zap.Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			if err, ok := f.Interface.(error); ok {
				return err.Error()
			}
		}
	}
	return ""
}

func TestMetricsCollectorConcurrency(t *testing.T) {
	ctx := context.Background()
	collector := NewMetricsCollector()
	interceptor := collector.Interceptor()

	var wg sync.WaitGroup
	const successCalls = 10
	for i := 0; i < successCalls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = interceptor(&InterceptorCtx{
				ctx:  ctx,
				info: &InterceptorInfo{Operation: OpReadMemArea},
				invoker: func(context.Context) (interface{}, error) {
					time.Sleep(1 * time.Millisecond)
					return Response{}, nil
				},
			})
		}()
	}

	const errorCalls = 3
	for i := 0; i < errorCalls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = interceptor(&InterceptorCtx{
				ctx:  ctx,
				info: &InterceptorInfo{Operation: OpWriteMemArea},
				invoker: func(context.Context) (interface{}, error) {
					return nil, errors.New("fail")
				},
			})
		}()
	}

	wg.Wait()

	stats := collector.GetStats(OpReadMemArea)
	if stats.Count != successCalls || stats.Errors != 0 {
		t.Fatalf("unexpected read stats: %+v", stats)
	}
	if stats.AvgDuration <= 0 {
		t.Fatalf("expected average duration to be recorded")
	}

	stats = collector.GetStats(OpWriteMemArea)
	if stats.Count != errorCalls || stats.Errors != errorCalls {
		t.Fatalf("unexpected write stats: %+v", stats)
	}

	collector.Reset()
	stats = collector.GetStats(OpWriteMemArea)
	if stats.Count != 0 || stats.Errors != 0 {
		t.Fatalf("reset should clear metrics, got %+v", stats)
	}
}

func TestValidationInterceptorWithLimits(t *testing.T) {
	ctx := context.Background()
	validator := ValidationInterceptorWithLimits(2, 2)

	// Valid read should reach invoker
	called := false
	_, err := validator(&InterceptorCtx{
		ctx: ctx,
		info: &InterceptorInfo{
			Operation:   OpReadMemArea,
			Count:       1,
			MemoryArea:  MemoryAreaDMWord,
			ElementType: TypeUShort,
		},
		invoker: func(context.Context) (interface{}, error) {
			called = true
			return Response{}, nil
		},
	})
	if err != nil || !called {
		t.Fatalf("validator blocked valid operation: called=%v err=%v", called, err)
	}

	tests := []struct {
		name string
		info *InterceptorInfo
	}{
		{"zero read count", &InterceptorInfo{Operation: OpReadMemArea, Count: 0, ElementType: TypeUShort}},
		{"exceeds read limit", &InterceptorInfo{Operation: OpReadMemArea, Count: 5, ElementType: TypeUShort}},
		{"unknown element type", &InterceptorInfo{Operation: OpReadMemArea, Count: 1}},
		{"bit offset past 15", &InterceptorInfo{Operation: OpReadMemArea, Count: 1, BitOffset: 16, ElementType: TypeBit}},
		{"no write values", &InterceptorInfo{Operation: OpWriteMemArea, Count: 1, Values: Many()}},
		{"zero write count", &InterceptorInfo{Operation: OpWriteMemArea, Values: Single(Uint16(1))}},
		{"write too large", &InterceptorInfo{Operation: OpWriteMemArea, Count: 3, Values: Many(Uint16(1), Uint16(2), Uint16(3))}},
		{"empty text", &InterceptorInfo{Operation: OpWriteMemArea, Count: 1, Values: Single(Text(""))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator(&InterceptorCtx{
				ctx:  ctx,
				info: tt.info,
				invoker: func(context.Context) (interface{}, error) {
					return nil, nil
				},
			})
			if err == nil {
				t.Fatalf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestAddressRangeAndReadOnlyInterceptors(t *testing.T) {
	ctx := context.Background()
	validator := AddressRangeValidator(map[MemoryArea]AddressRange{
		MemoryAreaDMWord: {Min: 0, Max: 10},
		MemoryAreaDMBit:  {Min: 0, Max: 10},
	})
	readOnly := ReadOnlyInterceptor()
	ok := func(context.Context) (interface{}, error) { return Response{}, nil }

	// Valid read passes both
	_, err := validator(&InterceptorCtx{
		ctx:     ctx,
		info:    &InterceptorInfo{Operation: OpReadMemArea, MemoryArea: MemoryAreaDMWord, Address: 5, Count: 1},
		invoker: ok,
	})
	if err != nil {
		t.Fatalf("unexpected error from address validator: %v", err)
	}

	_, err = readOnly(&InterceptorCtx{
		ctx:     ctx,
		info:    &InterceptorInfo{Operation: OpReadMemArea},
		invoker: ok,
	})
	if err != nil {
		t.Fatalf("read-only should allow reads: %v", err)
	}

	// Invalid area
	_, err = validator(&InterceptorCtx{
		ctx:     ctx,
		info:    &InterceptorInfo{Operation: OpReadMemArea, MemoryArea: MemoryAreaHRWord, Address: 5, Count: 1},
		invoker: ok,
	})
	if err == nil {
		t.Fatalf("expected area validation error")
	}

	// Address overflow
	_, err = validator(&InterceptorCtx{
		ctx:     ctx,
		info:    &InterceptorInfo{Operation: OpReadMemArea, MemoryArea: MemoryAreaDMWord, Address: 10, Count: 2},
		invoker: ok,
	})
	if err == nil {
		t.Fatalf("expected address overflow error")
	}

	// Bit counts do not advance the word address
	_, err = validator(&InterceptorCtx{
		ctx:     ctx,
		info:    &InterceptorInfo{Operation: OpReadMemArea, MemoryArea: MemoryAreaDMBit, Address: 10, BitOffset: 0, Count: 16},
		invoker: ok,
	})
	if err != nil {
		t.Fatalf("unexpected error for bit read: %v", err)
	}

	// Write should be blocked
	_, err = readOnly(&InterceptorCtx{
		ctx:     ctx,
		info:    &InterceptorInfo{Operation: OpWriteMemArea},
		invoker: ok,
	})
	if err == nil {
		t.Fatalf("expected read-only interceptor to block write")
	}
}

func TestRetryInterceptors(t *testing.T) {
	ctx := context.Background()
	info := &InterceptorInfo{Operation: OpReadMemArea}

	// Basic retry until success
	attempts := 0
	result, err := RetryInterceptor(2, 0, nil)(&InterceptorCtx{ctx: ctx, info: info, invoker: func(context.Context) (interface{}, error) {
		if attempts < 2 {
			attempts++
			return nil, ErrReceiveTimeout
		}
		return "ok", nil
	}})
	if err != nil || result != "ok" || attempts != 2 {
		t.Fatalf("retry interceptor failed: result=%v err=%v attempts=%d", result, err, attempts)
	}

	// Respect canceled context (should not retry)
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	attempts = 0
	_, err = RetryInterceptor(3, 0, nil)(&InterceptorCtx{ctx: cancelCtx, info: info, invoker: func(context.Context) (interface{}, error) {
		attempts++
		return nil, errors.New("boom")
	}})
	if err == nil || attempts != 1 {
		t.Fatalf("expected single attempt due to canceled context, attempts=%d err=%v", attempts, err)
	}

	// Conditional retry only on transport errors
	attempts = 0
	_, err = RetryInterceptorConditional(3, 0, IsTransportError, nil)(&InterceptorCtx{ctx: ctx, info: info, invoker: func(context.Context) (interface{}, error) {
		attempts++
		return nil, SizeMismatchError{Count: 2, Values: 1}
	}})
	if err == nil || attempts != 1 {
		t.Fatalf("conditional retry should stop when shouldRetry returns false, attempts=%d err=%v", attempts, err)
	}

	attempts = 0
	result, err = RetryInterceptorWithBackoff(2, 0, 1*time.Millisecond, nil)(&InterceptorCtx{ctx: ctx, info: info, invoker: func(context.Context) (interface{}, error) {
		if attempts == 0 {
			attempts++
			return nil, errors.New("boom")
		}
		return "ok", nil
	}})
	if err != nil || result != "ok" || attempts != 1 {
		t.Fatalf("backoff retry failed: result=%v err=%v attempts=%d", result, err, attempts)
	}

	// Exhausted retries wrap the last error
	_, err = RetryInterceptor(1, 0, nil)(&InterceptorCtx{ctx: ctx, info: info, invoker: func(context.Context) (interface{}, error) {
		return nil, ErrReceiveTimeout
	}})
	if !errors.Is(err, ErrReceiveTimeout) {
		t.Fatalf("expected wrapped receive timeout, got %v", err)
	}
}

func TestChainInterceptorsOrder(t *testing.T) {
	ctx := context.Background()
	info := &InterceptorInfo{Operation: OpReadMemArea}
	order := make([]string, 0, 5)

	i1 := func(ic *InterceptorCtx) (interface{}, error) {
		order = append(order, "i1-start")
		res, err := ic.Invoke(nil)
		order = append(order, "i1-end")
		return res, err
	}
	i2 := func(ic *InterceptorCtx) (interface{}, error) {
		order = append(order, "i2-start")
		res, err := ic.Invoke(nil)
		order = append(order, "i2-end")
		return res, err
	}

	result, err := ChainInterceptors(i1, nil, i2)(&InterceptorCtx{
		ctx:  ctx,
		info: info,
		invoker: func(context.Context) (interface{}, error) {
			order = append(order, "invoker")
			return "ok", nil
		},
	})
	if err != nil || result != "ok" {
		t.Fatalf("chain interceptors error: result=%v err=%v", result, err)
	}

	expected := []string{"i1-start", "i2-start", "invoker", "i2-end", "i1-end"}
	if len(order) != len(expected) {
		t.Fatalf("unexpected order length: %v", order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("unexpected order at %d: got %s want %s", i, order[i], expected[i])
		}
	}

	if ChainInterceptors() != nil || ChainInterceptors(nil) != nil {
		t.Fatalf("empty chain should be nil")
	}
}
