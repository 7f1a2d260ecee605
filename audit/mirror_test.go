package audit

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	got     []string
}

func (s *blockingSink) Emit(_ context.Context, e Entry) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, e.ID)
	s.mu.Unlock()
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(DispatcherConfig{BufferSize: 8}, sink, zerolog.Nop())

	for _, id := range []string{"a", "b", "c"} {
		d.Emit(context.Background(), Entry{ID: id})
	}
	d.Close()

	for _, want := range []string{"a", "b", "c"} {
		select {
		case e := <-sink.Entries():
			if e.ID != want {
				t.Fatalf("got %s, want %s", e.ID, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing %s after close", want)
		}
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{BufferSize: 1, DropIfFull: true}, sink, zerolog.Nop())

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Entry{ID: "x"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped entries with a stalled sink")
	}
	close(sink.release)
	d.Close()
}

func TestDispatcherEmitAfterCloseIsNoop(t *testing.T) {
	sink := NewChannelSink(1)
	d := NewDispatcher(DispatcherConfig{}, sink, zerolog.Nop())
	d.Close()
	d.Emit(context.Background(), Entry{ID: "late"})

	select {
	case e := <-sink.Entries():
		t.Fatalf("unexpected entry %+v", e)
	default:
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Entry{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Entry{ID: "one", Action: "a.b"})
	sink.Emit(context.Background(), Entry{ID: "two", Action: "a.c"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `"id":"one"`) || !strings.Contains(lines[1], `"action":"a.c"`) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestDispatcherFiltersBySeverityAndModule(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(DispatcherConfig{
		BufferSize:  8,
		MinSeverity: SeverityHigh,
		Modules:     []string{"users", "billing"},
	}, sink, zerolog.Nop())

	d.Emit(context.Background(), Entry{ID: "low-users", Module: "users", Severity: SeverityLow})
	d.Emit(context.Background(), Entry{ID: "high-users", Module: "users", Severity: SeverityHigh})
	d.Emit(context.Background(), Entry{ID: "critical-reports", Module: "reports", Severity: SeverityCritical})
	d.Emit(context.Background(), Entry{ID: "critical-billing", Module: "billing", Severity: SeverityCritical})
	d.Close()

	var got []string
	for len(sink.Entries()) > 0 {
		got = append(got, (<-sink.Entries()).ID)
	}
	if len(got) != 2 || got[0] != "high-users" || got[1] != "critical-billing" {
		t.Fatalf("mirrored %v, want [high-users critical-billing]", got)
	}
	if d.Filtered() != 2 {
		t.Fatalf("filtered = %d, want 2", d.Filtered())
	}
	if d.Dropped() != 0 {
		t.Fatalf("filtered entries counted as dropped: %d", d.Dropped())
	}
}

func TestDispatcherWithoutFiltersMirrorsEverything(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{BufferSize: 1}, nil, zerolog.Nop())
	defer d.Close()

	for _, e := range []Entry{
		{Module: "users", Severity: SeverityLow},
		{Module: "", Severity: ""},
	} {
		if !d.accepts(e) {
			t.Fatalf("entry %+v rejected with no filters configured", e)
		}
	}
}

func TestDispatcherLogsDroppedEntries(t *testing.T) {
	var logs bytes.Buffer
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{BufferSize: 1, DropIfFull: true}, sink, zerolog.New(&logs))

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Entry{ID: "e", Action: "users.update", Module: "users", Severity: SeverityMedium})
	}
	dropped := d.Dropped()
	if dropped == 0 {
		t.Fatal("expected drops with a stalled sink")
	}
	close(sink.release)
	d.Close()

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected first-drop and close warnings, got %q", logs.String())
	}
	if !strings.Contains(lines[0], `"message":"audit mirror dropped entry"`) ||
		!strings.Contains(lines[0], `"dropped_total":1`) ||
		!strings.Contains(lines[0], `"reason":"buffer full"`) ||
		!strings.Contains(lines[0], `"action":"users.update"`) {
		t.Fatalf("unexpected drop warning %q", lines[0])
	}
	if !strings.Contains(lines[1], `"message":"audit mirror closed with dropped entries"`) {
		t.Fatalf("unexpected close warning %q", lines[1])
	}
}

func TestDispatcherConfigValidate(t *testing.T) {
	valid := DispatcherConfig{BufferSize: 4, MinSeverity: SeverityMedium, Modules: []string{"users"}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for name, cfg := range map[string]DispatcherConfig{
		"zero buffer":      {BufferSize: 0},
		"unknown severity": {BufferSize: 4, MinSeverity: "SEVERE"},
		"blank module":     {BufferSize: 4, Modules: []string{""}},
	} {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
