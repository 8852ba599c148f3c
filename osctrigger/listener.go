// Package osctrigger fires cues from OSC messages.
//
// Supported addresses:
//
//	/cue/{index}            invoke the default action on the cue at index
//	/cue/{index}/{action}   invoke start, stop, pause, resume or default
//	/go                     start the current cue and advance
//	/stop_all               stop every active cue
//	/pause_all              pause every running cue
package osctrigger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/robmorgan/showctl/cue"
	"github.com/robmorgan/showctl/logger"
	"github.com/sirupsen/logrus"
)

// ErrUnknownAddress is returned for OSC addresses the listener does not handle.
var ErrUnknownAddress = errors.New("unknown osc address")

// Trigger is the part of the show the listener drives.
type Trigger interface {
	Trigger(index int, action cue.Action) error
	Go() error
	StopAll(pause bool) []error
}

// Listener is an osc.Dispatcher turning OSC messages into cue actions.
type Listener struct {
	addr    string
	trigger Trigger

	mu   sync.Mutex
	conn net.PacketConn
}

// NewListener creates a listener for addr (host:port) driving t.
func NewListener(addr string, t Trigger) *Listener {
	return &Listener{addr: addr, trigger: t}
}

// Dispatch implements osc.Dispatcher. Bundles are unpacked and every message
// is handled in order; failures are logged.
func (l *Listener) Dispatch(packet osc.Packet) {
	if packet == nil {
		return
	}
	log := logger.GetProjectLogger()
	log.Debug(describe(packet, 0))

	switch packet := packet.(type) {
	case *osc.Message:
		if err := l.Handle(packet); err != nil {
			log.WithFields(logrus.Fields{"address": packet.Address}).WithError(err).Warn("OSC trigger failed")
		}
	case *osc.Bundle:
		for _, msg := range packet.Messages {
			l.Dispatch(msg)
		}
		for _, bundle := range packet.Bundles {
			l.Dispatch(bundle)
		}
	}
}

// Handle performs the action addressed by msg.
func (l *Listener) Handle(msg *osc.Message) error {
	parts := strings.Split(strings.Trim(msg.Address, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "go":
		return l.trigger.Go()
	case len(parts) == 1 && parts[0] == "stop_all":
		return errors.Join(l.trigger.StopAll(false)...)
	case len(parts) == 1 && parts[0] == "pause_all":
		return errors.Join(l.trigger.StopAll(true)...)
	case parts[0] == "cue" && (len(parts) == 2 || len(parts) == 3):
		index, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("%w: bad cue index %q", ErrUnknownAddress, parts[1])
		}
		action := cue.Default
		if len(parts) == 3 {
			if action, err = cue.ParseAction(parts[2]); err != nil {
				return err
			}
		}
		return l.trigger.Trigger(index, action)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAddress, msg.Address)
	}
}

// Listen binds the UDP socket.
func (l *Listener) Listen() error {
	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		return fmt.Errorf("listen for osc on %s: %w", l.addr, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.conn = conn
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Serve handles incoming packets until ctx is cancelled. Listen must have
// been called.
func (l *Listener) Serve(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()

	log := logger.GetProjectLogger()
	if conn == nil {
		log.Error("OSC listener is not bound")
		return
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	log.Infof("Listening for OSC triggers on %s", conn.LocalAddr())
	server := &osc.Server{Dispatcher: l}
	if err := server.Serve(conn); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("OSC listener exited")
		return
	}
	log.Info("OSC listener shutdown")
}

func indent(str string, indentLevel int) string {
	indentation := strings.Repeat("  ", indentLevel)
	lines := strings.Split(str, "\n")
	for i, line := range lines {
		lines[i] = indentation + line
	}
	return strings.Join(lines, "\n")
}

func describe(packet osc.Packet, indentLevel int) string {
	switch packet := packet.(type) {
	case *osc.Message:
		return fmt.Sprintf("OSC message: %s", packet)
	case *osc.Bundle:
		result := fmt.Sprintf("OSC bundle (%s):", packet.Timetag.Time())
		for i, message := range packet.Messages {
			result += "\n" + indent(fmt.Sprintf("#%d: %s", i+1, message), indentLevel+1)
		}
		for _, bundle := range packet.Bundles {
			result += "\n" + indent(describe(bundle, 0), indentLevel+1)
		}
		return result
	default:
		return "unknown OSC packet"
	}
}
