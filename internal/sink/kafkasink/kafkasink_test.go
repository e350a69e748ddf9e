package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/TaishiUeda/OmronFinsEthernet/internal/poller"
)

type fakeWriter struct {
	calls  [][]kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls = append(f.calls, msgs)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	s := newSink(DefaultConfig(), w, zap.NewNop())

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	samples := []poller.Sample{
		{Tag: "speed", Value: uint16(10), Time: ts},
		{Tag: "count", Value: []interface{}{uint16(1), uint16(2)}},
	}
	require.NoError(t, s.Publish(context.Background(), samples))
	require.Len(t, w.calls, 1, "one batch per publish")

	msgs := w.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("speed"), msgs[0].Key)
	assert.Equal(t, ts, msgs[0].Time)
	assert.False(t, msgs[1].Time.IsZero())

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs[1].Value, &decoded))
	assert.Equal(t, []interface{}{float64(1), float64(2)}, decoded["value"])

	require.NoError(t, s.Publish(context.Background(), nil))
	assert.Len(t, w.calls, 1, "empty batches are not written")

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestPublishSkipsUnencodableSample(t *testing.T) {
	w := &fakeWriter{}
	core, logs := observer.New(zap.WarnLevel)
	s := newSink(DefaultConfig(), w, zap.New(core))

	err := s.Publish(context.Background(), []poller.Sample{
		{Tag: "ok", Value: uint16(1)},
		{Tag: "temp", Value: float32(math.NaN())},
		{Tag: "level", Value: uint16(2)},
	})
	require.NoError(t, err)
	require.Len(t, w.calls, 1)
	require.Len(t, w.calls[0], 2)
	assert.Equal(t, []byte("ok"), w.calls[0][0].Key)
	assert.Equal(t, []byte("level"), w.calls[0][1].Key)
	assert.Equal(t, 1, logs.FilterMessage("encode failed").Len())

	require.NoError(t, s.Publish(context.Background(), []poller.Sample{{Tag: "temp", Value: math.Inf(1)}}))
	assert.Len(t, w.calls, 1, "a batch with nothing encodable is not written")
}

func TestPublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	s := newSink(DefaultConfig(), w, zap.NewNop())
	err := s.Publish(context.Background(), []poller.Sample{{Tag: "x"}})
	assert.ErrorContains(t, err, "fins-samples")
	assert.ErrorContains(t, err, "leader not available")
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Brokers = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Topic = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RequiredAcks = 2
	assert.Error(t, cfg.Validate())

	s, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, "kafka", s.Name())
	require.NoError(t, s.Close())
}
