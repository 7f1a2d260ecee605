package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Sink receives copies of entries after they have been appended to the store.
// Sinks never affect the outcome of [Recorder.Record].
type Sink interface {
	Emit(ctx context.Context, e Entry)
}

// NoOpSink drops entries.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Entry) {}

// ChannelSink writes entries into a buffered channel.
type ChannelSink struct {
	entries chan Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{entries: make(chan Entry, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, e Entry) {
	select {
	case s.entries <- e:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Entries() <-chan Entry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, e Entry) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

// DispatcherConfig controls the asynchronous mirror.
//
// MinSeverity and Modules narrow what reaches the sink: an entry is mirrored
// when its severity ranks at or above MinSeverity and, if Modules is set, its
// module is listed. Filtering never affects the primary store.
type DispatcherConfig struct {
	BufferSize  int      `koanf:"buffer_size"`
	DropIfFull  bool     `koanf:"drop_if_full"`
	MinSeverity Severity `koanf:"min_severity"`
	Modules     []string `koanf:"modules"`
}

// Validate reports configuration the dispatcher cannot honour.
func (c DispatcherConfig) Validate() error {
	if c.BufferSize <= 0 {
		return errors.New("audit mirror buffer_size must be > 0")
	}
	if c.MinSeverity != "" && !c.MinSeverity.Valid() {
		return fmt.Errorf("audit mirror min_severity %q is not a known severity", c.MinSeverity)
	}
	for _, m := range c.Modules {
		if strings.TrimSpace(m) == "" {
			return errors.New("audit mirror modules must not contain empty names")
		}
	}
	return nil
}

// dropLogEvery spaces out the warning logged while the mirror sheds entries.
const dropLogEvery = 1000

// Dispatcher forwards recorded entries to a sink from a background goroutine.
// A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	cfg       DispatcherConfig
	modules   map[string]struct{}
	sink      Sink
	logger    zerolog.Logger
	ch        chan Entry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	filtered  atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the background forwarder. Dropped entries are reported
// through logger: the first drop and every thousandth after it.
func NewDispatcher(cfg DispatcherConfig, sink Sink, logger zerolog.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With().Str("component", "audit_mirror").Logger(),
		ch:     make(chan Entry, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	if len(cfg.Modules) > 0 {
		d.modules = make(map[string]struct{}, len(cfg.Modules))
		for _, m := range cfg.Modules {
			d.modules[strings.TrimSpace(m)] = struct{}{}
		}
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case e := <-d.ch:
			d.sink.Emit(context.Background(), e)
		case <-d.done:
			for {
				select {
				case e := <-d.ch:
					d.sink.Emit(context.Background(), e)
				default:
					return
				}
			}
		}
	}
}

// accepts applies the severity floor and module allow-list.
func (d *Dispatcher) accepts(e Entry) bool {
	if d.cfg.MinSeverity != "" && e.Severity.Rank() < d.cfg.MinSeverity.Rank() {
		return false
	}
	if d.modules != nil {
		if _, ok := d.modules[e.Module]; !ok {
			return false
		}
	}
	return true
}

// Emit queues e. With DropIfFull set a full buffer drops e and counts it;
// otherwise Emit blocks until there is room, ctx ends, or the dispatcher closes.
// Entries outside the configured severity and modules are skipped.
func (d *Dispatcher) Emit(ctx context.Context, e Entry) {
	if d == nil || d.closed.Load() {
		return
	}
	if !d.accepts(e) {
		d.filtered.Add(1)
		return
	}
	e = e.clone()

	if d.cfg.DropIfFull {
		select {
		case d.ch <- e:
		case <-d.done:
		default:
			d.drop(e, "buffer full")
		}
		return
	}

	select {
	case d.ch <- e:
	case <-ctx.Done():
		d.drop(e, "context done")
	case <-d.done:
	}
}

func (d *Dispatcher) drop(e Entry, reason string) {
	n := d.dropped.Add(1)
	if n != 1 && n%dropLogEvery != 0 {
		return
	}
	d.logger.Warn().
		Uint64("dropped_total", n).
		Str("reason", reason).
		Str("entry_id", e.ID).
		Str("action", e.Action).
		Str("module", e.Module).
		Str("severity", string(e.Severity)).
		Msg("audit mirror dropped entry")
}

// Close stops accepting entries and drains the buffer into the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
		if n := d.dropped.Load(); n > 0 {
			d.logger.Warn().Uint64("dropped_total", n).Msg("audit mirror closed with dropped entries")
		}
	})
}

// Dropped counts entries lost to a full buffer or an ended context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Filtered counts entries skipped by MinSeverity or Modules.
func (d *Dispatcher) Filtered() uint64 {
	if d == nil {
		return 0
	}
	return d.filtered.Load()
}
