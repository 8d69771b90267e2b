// Package event implements the diagnostic event stream §6 of the spec
// requires every component to emit (SegAlloc, SegAllocFail, SegFree,
// SegSetGrey, ArenaAccess, ArenaPoll, ArenaSetEmergency, ArenaWriteFaults,
// MessagesDropped, MessagesExist) together with the "Describe" structural
// dump every component exposes.
package event

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Kind names one of the event types §6 enumerates.
type Kind string

const (
	SegAlloc          Kind = "SegAlloc"
	SegAllocFail      Kind = "SegAllocFail"
	SegFree           Kind = "SegFree"
	SegSetGrey        Kind = "SegSetGrey"
	ArenaAccess       Kind = "ArenaAccess"
	ArenaPoll         Kind = "ArenaPoll"
	ArenaSetEmergency Kind = "ArenaSetEmergency"
	ArenaWriteFaults  Kind = "ArenaWriteFaults"
	MessagesDropped   Kind = "MessagesDropped"
	MessagesExist     Kind = "MessagesExist"
)

// Event is one diagnostic occurrence. Fields is a small ordered list of
// key/value pairs rather than a map, so Describe output is deterministic.
type Event struct {
	Kind   Kind
	At     time.Time
	Fields []Field
}

// Field is one key/value pair attached to an Event.
type Field struct {
	Key   string
	Value any
}

// F is a convenience constructor for a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Sink receives events as they are emitted. Arenas and segments hold a
// Sink (possibly a no-op one) rather than a concrete logger, so tests can
// assert on emitted events without parsing log lines.
type Sink interface {
	Emit(e Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// Recorder is a Sink that keeps every event it receives, for tests that
// assert on the event sequence (e.g. Testable Property 9's SegSetGrey
// idempotence, or scenario B's grey-ring membership transitions).
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// All returns a copy of every event recorded so far.
func (r *Recorder) All() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind returns every recorded event of the given kind, in order.
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.All() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// New builds an Event with the given kind and fields, stamped with now.
func New(kind Kind, now time.Time, fields ...Field) Event {
	return Event{Kind: kind, At: now, Fields: fields}
}

// Describer is implemented by every component the spec requires to expose
// a structural dump: Describe(stream, depth) in the source becomes
// Describe(w io.Writer, depth int) error in Go.
type Describer interface {
	Describe(w io.Writer, depth int) error
}

// WriteLine writes one indented line to w, the shared helper every
// Describe implementation in this module uses so dumps are uniformly
// formatted regardless of which component produced them.
func WriteLine(w io.Writer, depth int, format string, args ...any) error {
	indent := strings.Repeat("  ", depth)
	_, err := fmt.Fprintf(w, "%s%s\n", indent, fmt.Sprintf(format, args...))
	return err
}
