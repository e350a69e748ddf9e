package omronfins

import (
	"sync"
	"time"
)

// MetricsCollector collects operation metrics including counts, errors,
// nonzero completion codes and durations. It is safe for concurrent use.
//
// Example:
//
//	metrics := omronfins.NewMetricsCollector()
//	client.SetInterceptor(metrics.Interceptor())
//
//	client.ReadMemArea(ctx, omronfins.MemoryAreaDMWord, 100, 0, 5, omronfins.TypeUShort)
//
//	stats := metrics.GetStats(omronfins.OpReadMemArea)
//	log.Printf("%d calls, %d errors, avg: %v", stats.Count, stats.Errors, stats.AvgDuration)
type MetricsCollector struct {
	mu             sync.RWMutex
	operationCount map[OperationType]int64
	errorCount     map[OperationType]int64
	endCodeCount   map[OperationType]int64
	totalDuration  map[OperationType]time.Duration
}

// OperationStats is a snapshot for one operation type.
type OperationStats struct {
	Count int64
	// Errors counts calls that returned an error (transport, codec, context).
	Errors int64
	// EndCodeErrors counts calls answered with a nonzero completion code.
	EndCodeErrors int64
	AvgDuration   time.Duration
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{}
	m.Reset()
	return m
}

// Interceptor returns an interceptor that collects metrics
func (m *MetricsCollector) Interceptor() Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		start := time.Now()

		result, err := c.Invoke(nil)

		duration := time.Since(start)

		m.mu.Lock()
		op := c.Info().Operation
		m.operationCount[op]++
		m.totalDuration[op] += duration
		if err != nil {
			m.errorCount[op]++
		} else if code, ok := completionCodeOfResult(result); ok && !code.OK() {
			m.endCodeCount[op]++
		}
		m.mu.Unlock()

		return result, err
	}
}

// GetStats returns statistics for a specific operation
func (m *MetricsCollector) GetStats(op OperationType) OperationStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked(op)
}

func (m *MetricsCollector) statsLocked(op OperationType) OperationStats {
	s := OperationStats{
		Count:         m.operationCount[op],
		Errors:        m.errorCount[op],
		EndCodeErrors: m.endCodeCount[op],
	}
	if s.Count > 0 {
		s.AvgDuration = m.totalDuration[op] / time.Duration(s.Count)
	}
	return s
}

// Reset clears all collected metrics
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.operationCount = make(map[OperationType]int64)
	m.errorCount = make(map[OperationType]int64)
	m.endCodeCount = make(map[OperationType]int64)
	m.totalDuration = make(map[OperationType]time.Duration)
}

// GetAllStats returns statistics for all operations seen so far
func (m *MetricsCollector) GetAllStats() map[OperationType]OperationStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[OperationType]OperationStats, len(m.operationCount))
	for op := range m.operationCount {
		stats[op] = m.statsLocked(op)
	}
	return stats
}
