package edge

import (
	"bytes"
	"fmt"

	"github.com/danmuck/edgexchange/internal/observability"
	"github.com/rs/zerolog/log"
)

// EventKind identifies what an Event notifies about.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCapability
	EventNewDataReceived
	EventCallbackReleased
	EventConnectionClosed
	EventConnectionCompleted

	EventCustom EventKind = 0x01000000
)

// Valid reports whether k is a recognized kind other than EventUnknown.
func (k EventKind) Valid() bool {
	switch k {
	case EventCapability,
		EventNewDataReceived,
		EventCallbackReleased,
		EventConnectionClosed,
		EventConnectionCompleted,
		EventCustom:
		return true
	}
	return false
}

func (k EventKind) String() string {
	switch k {
	case EventUnknown:
		return "unknown"
	case EventCapability:
		return "capability"
	case EventNewDataReceived:
		return "new_data_received"
	case EventCallbackReleased:
		return "callback_released"
	case EventConnectionClosed:
		return "connection_closed"
	case EventConnectionCompleted:
		return "connection_completed"
	case EventCustom:
		return "custom"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// payload is either raw bytes with an optional release action, or an owned
// Data handle.
type payload struct {
	buf     []byte
	release ReleaseFunc
	data    *Data
}

func (p *payload) drop(kind EventKind) {
	switch {
	case p.data != nil:
		if err := p.data.Destroy(); err != nil {
			log.Warn().Err(err).Str("kind", kind.String()).
				Msg("edge.Event payload edge data was destroyed by its caller while owned by the event")
		}
	case p.release != nil:
		p.release(p.buf)
	}
	*p = payload{}
}

// Event is a typed notification with at most one payload.
type Event struct {
	magic   uint32
	kind    EventKind
	payload payload
}

// NewEvent returns a live event of the given kind.
func NewEvent(kind EventKind) (*Event, error) {
	if !kind.Valid() {
		return nil, invalid("edge.NewEvent", fmt.Sprintf("given event type %s is invalid", kind))
	}
	observability.EventCreated()
	return &Event{magic: MagicAlive, kind: kind}, nil
}

// NewDataEvent wraps d in an EventNewDataReceived event. The event takes
// ownership of d.
func NewDataEvent(d *Data) (*Event, error) {
	if !d.valid() {
		return nil, invalid("edge.NewDataEvent", "given edge data is invalid")
	}
	e, err := NewEvent(EventNewDataReceived)
	if err != nil {
		return nil, err
	}
	e.payload = payload{data: d}
	return e, nil
}

// NewCapabilityEvent wraps a capability string in an EventCapability event.
func NewCapabilityEvent(capability string) (*Event, error) {
	if capability == "" {
		return nil, invalid("edge.NewCapabilityEvent", "capability should not be empty")
	}
	e, err := NewEvent(EventCapability)
	if err != nil {
		return nil, err
	}
	buf := append([]byte(capability), 0)
	e.payload = payload{buf: buf, release: Free}
	return e, nil
}

func (e *Event) valid() bool {
	return e != nil && e.magic == MagicAlive
}

// Destroy releases the payload. The event is dead afterwards.
func (e *Event) Destroy() error {
	if !e.valid() {
		return invalid("edge.Event.Destroy", "given edge event is invalid")
	}
	e.magic = MagicDead
	e.payload.drop(e.kind)
	observability.EventDestroyed()
	return nil
}

// SetData attaches buf as the payload, releasing any previous payload first.
func (e *Event) SetData(buf []byte, release ReleaseFunc) error {
	if !e.valid() {
		return invalid("edge.Event.SetData", "given edge event is invalid")
	}
	if len(buf) == 0 {
		return invalid("edge.Event.SetData", "data should not be empty")
	}
	e.payload.drop(e.kind)
	e.payload = payload{buf: buf, release: release}
	return nil
}

// SetEdgeData attaches d as the payload, releasing any previous payload
// first. The event takes ownership of d and destroys it with the event.
func (e *Event) SetEdgeData(d *Data) error {
	if !e.valid() {
		return invalid("edge.Event.SetEdgeData", "given edge event is invalid")
	}
	if !d.valid() {
		return invalid("edge.Event.SetEdgeData", "given edge data is invalid")
	}
	if e.payload.data == d {
		return nil
	}
	e.payload.drop(e.kind)
	e.payload = payload{data: d}
	return nil
}

// Kind returns the event kind.
func (e *Event) Kind() (EventKind, error) {
	if !e.valid() {
		return EventUnknown, invalid("edge.Event.Kind", "given edge event is invalid")
	}
	return e.kind, nil
}

// ParseNewData returns an independent copy of the Data carried by an
// EventNewDataReceived event. The event keeps its own payload.
func (e *Event) ParseNewData() (*Data, error) {
	if !e.valid() {
		return nil, invalid("edge.Event.ParseNewData", "given edge event is invalid")
	}
	if e.kind != EventNewDataReceived {
		return nil, invalid("edge.Event.ParseNewData",
			fmt.Sprintf("the edge event has invalid event type %s", e.kind))
	}
	if e.payload.data == nil {
		return nil, invalid("edge.Event.ParseNewData", "payload is not edge data")
	}
	return e.payload.data.Copy()
}

// ParseCapability returns the capability string carried by an
// EventCapability event, up to the first NUL byte.
func (e *Event) ParseCapability() (string, error) {
	if !e.valid() {
		return "", invalid("edge.Event.ParseCapability", "given edge event is invalid")
	}
	if e.kind != EventCapability {
		return "", invalid("edge.Event.ParseCapability",
			fmt.Sprintf("the edge event has invalid event type %s", e.kind))
	}
	raw := e.payload.buf
	if len(raw) == 0 {
		return "", invalid("edge.Event.ParseCapability", "no capability payload")
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}
