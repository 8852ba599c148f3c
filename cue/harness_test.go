package cue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/robmorgan/showctl/config"
	"github.com/robmorgan/showctl/engine"
	"github.com/robmorgan/showctl/midi"
	"github.com/robmorgan/showctl/playback"
	"github.com/robmorgan/showctl/process"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

type testRegistry struct {
	mu   sync.Mutex
	cues []*Cue
}

func (r *testRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cues)
}

func (r *testRegistry) At(i int) (*Cue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.cues) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return r.cues[i], nil
}

func (r *testRegistry) ByID(id string) (*Cue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cues {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

func (r *testRegistry) All() []*Cue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Cue, len(r.cues))
	copy(out, r.cues)
	return out
}

func (r *testRegistry) remove(c *Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, other := range r.cues {
		if other == c {
			r.cues = append(r.cues[:i], r.cues[i+1:]...)
			return
		}
	}
}

type fakeHandle struct {
	mu      sync.Mutex
	pid     int
	exited  bool
	code    int
	signals []string
}

func (h *fakeHandle) Pid() int       { return h.pid }
func (h *fakeHandle) Output() string { return "fake output\n" }

func (h *fakeHandle) exit(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exited = true
	h.code = code
}

func (h *fakeHandle) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.signals...)
}

type fakeProcesses struct {
	mu       sync.Mutex
	handles  []*fakeHandle
	spawnErr error
}

func (f *fakeProcesses) Spawn(spec process.Spec) (process.Handle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.spawnErr != nil {
		return nil, f.spawnErr
	}
	h := &fakeHandle{pid: len(f.handles) + 100}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeProcesses) signal(h process.Handle, sig string) error {
	fh := h.(*fakeHandle)
	fh.mu.Lock()
	defer fh.mu.Unlock()
	fh.signals = append(fh.signals, sig)
	return nil
}

func (f *fakeProcesses) Terminate(h process.Handle) error { return f.signal(h, "term") }
func (f *fakeProcesses) Kill(h process.Handle) error      { return f.signal(h, "kill") }

func (f *fakeProcesses) PollExit(h process.Handle) (int, bool) {
	fh := h.(*fakeHandle)
	fh.mu.Lock()
	defer fh.mu.Unlock()
	return fh.code, fh.exited
}

func (f *fakeProcesses) last() *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[len(f.handles)-1]
}

type harness struct {
	t      *testing.T
	clock  *testingclock.FakeClock
	sched  *engine.Scheduler
	list   *testRegistry
	player *playback.Player
	midi   *midi.Recorder
	procs  *fakeProcesses
	env    *Env

	mu         sync.Mutex
	current    int
	hasCurrent bool
}

func newHarness(t *testing.T) *harness {
	player, err := playback.NewPlayer([]config.PatchedMedia{
		{Name: "music", Duration: 10 * time.Minute, Volume: 0.5},
		{Name: "fx", Duration: time.Minute, Volume: 1},
	})
	require.NoError(t, err)

	clk := testingclock.NewFakeClock(time.Date(2021, 6, 1, 19, 30, 0, 0, time.UTC))
	h := &harness{
		t:      t,
		clock:  clk,
		sched:  engine.NewScheduler(clk, 40),
		list:   &testRegistry{},
		player: player,
		midi:   &midi.Recorder{},
		procs:  &fakeProcesses{},
	}
	h.env = &Env{
		Scheduler:       h.sched,
		Registry:        h.list,
		Playback:        player,
		MIDI:            h.midi,
		Processes:       h.procs,
		Current:         h.currentIndex,
		FadeOutDuration: 2 * time.Second,
	}
	return h
}

func (h *harness) currentIndex() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.hasCurrent
}

func (h *harness) setCurrent(i int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current, h.hasCurrent = i, true
}

func (h *harness) add(name string, cfg Config) *Cue {
	c, err := New(name, cfg)
	require.NoError(h.t, err)
	c.Bind(h.env)
	h.list.mu.Lock()
	h.list.cues = append(h.list.cues, c)
	h.list.mu.Unlock()
	return c
}

// advance moves the clock forward and runs one scheduler tick.
func (h *harness) advance(d time.Duration) {
	h.clock.Step(d)
	h.sched.Tick()
}

func (h *harness) volume(id string) float64 {
	v, err := h.player.Volume(id)
	require.NoError(h.t, err)
	return v
}

func (h *harness) position(id string) time.Duration {
	p, err := h.player.Position(id)
	require.NoError(h.t, err)
	return p
}

func allConfigs() []Config {
	return []Config{
		CommandConfig{Spec: process.Spec{Command: "true"}},
		MIDIConfig{Message: midi.MustParse("note_on note=60 velocity=64")},
		VolumeConfig{Target: "music", Volume: 1, Duration: time.Second},
		SeekConfig{Target: "music", Time: time.Minute, Duration: time.Second},
		CollectionConfig{},
		IndexActionConfig{TargetIndex: 0},
		StopAllConfig{},
	}
}
