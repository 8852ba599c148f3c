// Package process spawns and supervises the shell commands run by command cues.
package process

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	commonerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/showctl/logger"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyCommand is returned when a Spec has no command line.
	ErrEmptyCommand = errors.New("command is empty")
	// ErrForeignHandle is returned when a Handle was not created by the Service it is passed to.
	ErrForeignHandle = errors.New("handle was not spawned by this service")
)

// Spec describes a shell command to run.
type Spec struct {
	Command       string `mapstructure:"command"`
	DiscardOutput bool   `mapstructure:"discard_output"`
	IgnoreErrors  bool   `mapstructure:"ignore_errors"`
	KillOnStop    bool   `mapstructure:"kill"`
}

// Validate checks that the Spec can be spawned.
func (s Spec) Validate() error {
	if s.Command == "" {
		return ErrEmptyCommand
	}
	return nil
}

// Handle references a spawned process.
type Handle interface {
	Pid() int
	Output() string
}

// Service is the process-spawning capability used by command cues.
type Service interface {
	Spawn(spec Spec) (Handle, error)
	Terminate(h Handle) error
	Kill(h Handle) error
	// PollExit returns the exit code and true once the process has exited.
	PollExit(h Handle) (int, bool)
}

// ExecService runs commands through a POSIX shell.
type ExecService struct {
	Shell string
}

// NewExecService returns an ExecService using shell, or /bin/sh when empty.
func NewExecService(shell string) *ExecService {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &ExecService{Shell: shell}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type execHandle struct {
	cmd    *exec.Cmd
	output *lockedBuffer
	done   chan struct{}
	code   int
}

func (h *execHandle) Pid() int {
	return h.cmd.Process.Pid
}

func (h *execHandle) Output() string {
	if h.output == nil {
		return ""
	}
	return h.output.String()
}

// Spawn starts spec.Command under the service shell.
func (s *ExecService) Spawn(spec Spec) (Handle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	cmd := exec.Command(s.Shell, "-c", spec.Command)
	// orphaned grandchildren must not hold Wait open on the output pipe
	cmd.WaitDelay = time.Second
	h := &execHandle{cmd: cmd, done: make(chan struct{})}
	if !spec.DiscardOutput {
		h.output = &lockedBuffer{}
		cmd.Stdout = h.output
		cmd.Stderr = h.output
	}

	if err := cmd.Start(); err != nil {
		return nil, commonerrors.WithStackTrace(err)
	}

	log := logger.GetProjectLogger().WithFields(logrus.Fields{"pid": cmd.Process.Pid, "command": spec.Command})
	log.Debug("Process started")

	go func() {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case err == nil:
			h.code = 0
		case errors.As(err, &exitErr):
			h.code = exitErr.ExitCode()
		default:
			h.code = -1
		}
		log.WithField("exit_code", h.code).Debug("Process exited")
		close(h.done)
	}()

	return h, nil
}

func (s *ExecService) handle(h Handle) (*execHandle, error) {
	eh, ok := h.(*execHandle)
	if !ok {
		return nil, ErrForeignHandle
	}
	return eh, nil
}

// Terminate asks the process to exit with SIGTERM.
func (s *ExecService) Terminate(h Handle) error {
	eh, err := s.handle(h)
	if err != nil {
		return err
	}
	return ignoreDone(eh.cmd.Process.Signal(syscall.SIGTERM))
}

// Kill forcibly stops the process.
func (s *ExecService) Kill(h Handle) error {
	eh, err := s.handle(h)
	if err != nil {
		return err
	}
	return ignoreDone(eh.cmd.Process.Kill())
}

// PollExit reports the exit code once the process has been reaped.
func (s *ExecService) PollExit(h Handle) (int, bool) {
	eh, err := s.handle(h)
	if err != nil {
		return -1, true
	}
	select {
	case <-eh.done:
		return eh.code, true
	default:
		return 0, false
	}
}

func ignoreDone(err error) error {
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return fmt.Errorf("signal process: %w", err)
}
