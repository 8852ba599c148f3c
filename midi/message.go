// Package midi models the MIDI channel messages sent by MIDI cues.
package midi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Type is a MIDI channel message type.
type Type string

const (
	NoteOn        Type = "note_on"
	NoteOff       Type = "note_off"
	ControlChange Type = "control_change"
	ProgramChange Type = "program_change"
	PolyTouch     Type = "polytouch"
	AfterTouch    Type = "aftertouch"
	PitchWheel    Type = "pitchwheel"
)

var (
	ErrUnknownType = errors.New("unknown midi message type")
	ErrBadField    = errors.New("invalid midi message field")
)

var statusBytes = map[Type]byte{
	NoteOff:       0x80,
	NoteOn:        0x90,
	PolyTouch:     0xA0,
	ControlChange: 0xB0,
	ProgramChange: 0xC0,
	AfterTouch:    0xD0,
	PitchWheel:    0xE0,
}

// fields lists the data fields carried by each message type, in wire order.
var fields = map[Type][]string{
	NoteOn:        {"note", "velocity"},
	NoteOff:       {"note", "velocity"},
	PolyTouch:     {"note", "value"},
	ControlChange: {"control", "value"},
	ProgramChange: {"program"},
	AfterTouch:    {"value"},
	PitchWheel:    {"pitch"},
}

// Message is a single MIDI channel message.
type Message struct {
	Type     Type
	Channel  int
	Note     int
	Velocity int
	Control  int
	Value    int
	Program  int
	Pitch    int
}

// Parse reads a message in the "note_on channel=0 note=60 velocity=64" form.
// Omitted fields default to zero.
func Parse(text string) (Message, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Message{}, fmt.Errorf("%w: empty message", ErrUnknownType)
	}

	m := Message{Type: Type(parts[0])}
	allowed, ok := fields[m.Type]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, parts[0])
	}

	for _, part := range parts[1:] {
		key, raw, found := strings.Cut(part, "=")
		if !found {
			return Message{}, fmt.Errorf("%w: %q is not key=value", ErrBadField, part)
		}
		if key != "channel" && !contains(allowed, key) {
			return Message{}, fmt.Errorf("%w: %s has no field %q", ErrBadField, m.Type, key)
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Message{}, fmt.Errorf("%w: %s=%q", ErrBadField, key, raw)
		}
		*m.field(key) = v
	}

	return m, m.Validate()
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Message {
	m, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Message) field(name string) *int {
	switch name {
	case "channel":
		return &m.Channel
	case "note":
		return &m.Note
	case "velocity":
		return &m.Velocity
	case "control":
		return &m.Control
	case "value":
		return &m.Value
	case "program":
		return &m.Program
	default:
		return &m.Pitch
	}
}

// Fields returns the data field values of m in wire order.
func (m Message) Fields() []int {
	names := fields[m.Type]
	values := make([]int, 0, len(names))
	for _, name := range names {
		values = append(values, *m.field(name))
	}
	return values
}

// Validate checks the message type and that every field is in range.
func (m Message) Validate() error {
	names, ok := fields[m.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	if m.Channel < 0 || m.Channel > 15 {
		return fmt.Errorf("%w: channel %d out of range 0-15", ErrBadField, m.Channel)
	}
	for _, name := range names {
		v := *m.field(name)
		lo, hi := 0, 127
		if name == "pitch" {
			lo, hi = -8192, 8191
		}
		if v < lo || v > hi {
			return fmt.Errorf("%w: %s %d out of range %d-%d", ErrBadField, name, v, lo, hi)
		}
	}
	return nil
}

// String formats m the way Parse reads it.
func (m Message) String() string {
	var b strings.Builder
	b.WriteString(string(m.Type))
	fmt.Fprintf(&b, " channel=%d", m.Channel)
	for _, name := range fields[m.Type] {
		fmt.Fprintf(&b, " %s=%d", name, *m.field(name))
	}
	return b.String()
}

// Bytes encodes m as raw MIDI bytes.
func (m Message) Bytes() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	out := []byte{statusBytes[m.Type] | byte(m.Channel)}
	if m.Type == PitchWheel {
		v := m.Pitch + 8192
		return append(out, byte(v&0x7F), byte(v>>7)), nil
	}
	for _, v := range m.Fields() {
		out = append(out, byte(v))
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
