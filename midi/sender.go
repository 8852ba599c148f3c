package midi

import (
	"fmt"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/robmorgan/showctl/logger"
	"github.com/sirupsen/logrus"
)

// Sender delivers MIDI messages to an output.
type Sender interface {
	Send(m Message) error
}

// OSCSender forwards MIDI messages over OSC to a MIDI bridge. Each message is
// sent to /midi/<type> with the channel and data fields as int32 arguments.
type OSCSender struct {
	client *osc.Client
}

// NewOSCSender creates an OSCSender targeting host:port.
func NewOSCSender(host string, port int) *OSCSender {
	return &OSCSender{client: osc.NewClient(host, port)}
}

func packet(m Message) *osc.Message {
	msg := osc.NewMessage("/midi/" + string(m.Type))
	msg.Append(int32(m.Channel))
	for _, v := range m.Fields() {
		msg.Append(int32(v))
	}
	return msg
}

// Send validates m and sends it to the bridge.
func (s *OSCSender) Send(m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}

	logger.GetProjectLogger().WithFields(logrus.Fields{"midi": m.String()}).Debug("Sending MIDI message")
	if err := s.client.Send(packet(m)); err != nil {
		return fmt.Errorf("send midi over osc: %w", err)
	}
	return nil
}

// Recorder is a Sender that keeps every message it is given. It is used for
// dry runs.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Send(m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	logger.GetProjectLogger().WithFields(logrus.Fields{"midi": m.String()}).Info("MIDI message (dry run)")
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
