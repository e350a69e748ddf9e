// Package poller reads a fixed set of PLC tags on an interval and hands the
// samples to sinks.
package poller

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = time.Second

// Tag names one memory read. Count is the element count sent in the
// command, Type how the answer is decoded.
type Tag struct {
	Name    string
	Area    omronfins.MemoryArea
	Address uint16
	Bit     byte
	Count   uint16
	Type    omronfins.ElementType
}

// Validate checks the fields the PLC cannot check for us.
func (t Tag) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tag name is empty")
	}
	if t.Count == 0 {
		return fmt.Errorf("tag %s: count must be at least 1", t.Name)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("tag %s: unknown element type %d", t.Name, uint8(t.Type))
	}
	return nil
}

// Sample is the outcome of reading one tag.
type Sample struct {
	Tag            string                   `json:"tag"`
	Area           string                   `json:"area"`
	Address        uint16                   `json:"address"`
	Bit            byte                     `json:"bit,omitempty"`
	Type           string                   `json:"type"`
	Value          interface{}              `json:"value"`
	CompletionCode omronfins.CompletionCode `json:"completion_code"`
	Error          string                   `json:"error,omitempty"`
	Time           time.Time                `json:"timestamp"`
}

// OK reports whether the read succeeded with a normal completion.
func (s Sample) OK() bool {
	return s.Error == ""
}

// Sink receives every batch of samples the poller publishes.
type Sink interface {
	Name() string
	Publish(ctx context.Context, samples []Sample) error
	Close() error
}

// Poller reads tags through a MemoryReader.
type Poller struct {
	reader      omronfins.MemoryReader
	tags        []Tag
	interval    time.Duration
	onlyChanges bool
	sinks       []Sink
	logger      *zap.Logger

	mu   sync.Mutex
	last map[string]string // tag -> fingerprint of the last published sample
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the time between polls.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithOnlyChanges publishes a sample only when it differs from the last one
// published for the same tag.
func WithOnlyChanges(on bool) Option {
	return func(p *Poller) { p.onlyChanges = on }
}

// WithSinks adds sinks.
func WithSinks(sinks ...Sink) Option {
	return func(p *Poller) { p.sinks = append(p.sinks, sinks...) }
}

// WithLogger sets the logger; the poller logs under "poller".
func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l.Named("poller")
		}
	}
}

// New validates tags and builds a poller.
func New(reader omronfins.MemoryReader, tags []Tag, opts ...Option) (*Poller, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is nil")
	}
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate tag %s", t.Name)
		}
		seen[t.Name] = true
	}

	p := &Poller{
		reader:   reader,
		tags:     append([]Tag(nil), tags...),
		interval: DefaultInterval,
		logger:   zap.NewNop(),
		last:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Tags returns the polled tags.
func (p *Poller) Tags() []Tag {
	return append([]Tag(nil), p.tags...)
}

// PollOnce reads every tag once, in order. Read failures are reported in the
// samples; the returned error is only the context's.
func (p *Poller) PollOnce(ctx context.Context) ([]Sample, error) {
	samples := make([]Sample, 0, len(p.tags))
	for _, t := range p.tags {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		samples = append(samples, p.read(ctx, t))
	}
	return samples, nil
}

func (p *Poller) read(ctx context.Context, t Tag) Sample {
	s := Sample{
		Tag:     t.Name,
		Area:    t.Area.String(),
		Address: t.Address,
		Bit:     t.Bit,
		Type:    t.Type.String(),
	}
	resp, err := p.reader.ReadMemArea(ctx, t.Area, t.Address, t.Bit, t.Count, t.Type)
	s.Time = time.Now()
	s.CompletionCode = resp.CompletionCode
	switch {
	case err != nil:
		s.Error = err.Error()
		p.logger.Warn("read failed", zap.String("tag", t.Name), zap.Error(err))
	case !resp.CompletionCode.OK():
		s.Error = resp.CompletionCode.String()
		p.logger.Warn("read answered with error code",
			zap.String("tag", t.Name),
			zap.String("completion_code", resp.CompletionCode.Hex()),
			zap.String("description", resp.CompletionCode.Description()),
		)
	default:
		s.Value = finiteValue(resp.Value)
	}
	return s
}

// finiteValue replaces NaN and infinite floats with "NaN", "+Inf" or "-Inf",
// which JSON can carry. Lists are converted element by element.
func finiteValue(v interface{}) interface{} {
	switch x := v.(type) {
	case float32:
		return finiteFloat(float64(x), v)
	case float64:
		return finiteFloat(x, v)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = finiteValue(e)
		}
		return out
	}
	return v
}

func finiteFloat(f float64, v interface{}) interface{} {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return v
}

// Run polls until ctx ends, publishing each batch to the sinks. The first
// poll happens immediately. Run returns nil once ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("polling",
		zap.Int("tags", len(p.tags)),
		zap.Duration("interval", p.interval),
		zap.Int("sinks", len(p.sinks)),
	)
	for {
		samples, err := p.PollOnce(ctx)
		if err != nil {
			return nil
		}
		p.Publish(ctx, samples)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Publish filters samples (see WithOnlyChanges) and hands them to every sink.
// Sink errors are logged and do not stop the other sinks.
func (p *Poller) Publish(ctx context.Context, samples []Sample) {
	samples = p.filter(samples)
	if len(samples) == 0 {
		return
	}
	for _, s := range p.sinks {
		if err := s.Publish(ctx, samples); err != nil {
			p.logger.Warn("publish failed", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
}

func (p *Poller) filter(samples []Sample) []Sample {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := samples[:0:0]
	for _, s := range samples {
		fp := fingerprint(s)
		if p.onlyChanges {
			if last, ok := p.last[s.Tag]; ok && last == fp {
				continue
			}
		}
		p.last[s.Tag] = fp
		out = append(out, s)
	}
	return out
}

func fingerprint(s Sample) string {
	return fmt.Sprintf("%v|%d|%s", s.Value, s.CompletionCode, s.Error)
}

// Close closes every sink and returns the first error.
func (p *Poller) Close() error {
	var first error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = fmt.Errorf("close %s: %w", s.Name(), err)
		}
	}
	return first
}
