package cue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/robmorgan/showctl/midi"
	"github.com/robmorgan/showctl/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	t.Parallel()

	for input, expected := range map[string]Action{
		"":        Default,
		"start":   Start,
		" Stop ":  Stop,
		"PAUSE":   Pause,
		"resume":  Resume,
		"default": Default,
	} {
		a, err := ParseAction(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, a, input)
	}

	_, err := ParseAction("explode")
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestInvokeUnsupportedActionDoesNotMutate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	c := h.add("command", CommandConfig{Spec: process.Spec{Command: "sleep 10"}})
	require.NoError(t, c.Start())

	assert.ErrorIs(t, Invoke(c, Pause), ErrUnsupportedAction)
	assert.ErrorIs(t, Invoke(c, Resume), ErrUnsupportedAction)
	assert.Equal(t, Running, c.State())
	assert.Empty(t, h.procs.last().received())
}

func TestInvokeRoutesEachAction(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	c := h.add("fade up", VolumeConfig{Target: "music", Volume: 1, Duration: 4 * time.Second})

	require.NoError(t, Invoke(c, Start))
	assert.Equal(t, Running, c.State())
	h.advance(time.Second)

	require.NoError(t, Invoke(c, Pause))
	assert.Equal(t, Paused, c.State())

	require.NoError(t, Invoke(c, Resume))
	assert.Equal(t, Running, c.State())

	require.NoError(t, Invoke(c, Stop))
	assert.Equal(t, Stopped, c.State())

	assert.ErrorIs(t, Invoke(c, Action("rewind")), ErrUnsupportedAction)
	assert.Equal(t, Stopped, c.State())
}

func TestInvokeDefaultStarts(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, cfg := range allConfigs() {
		assert.True(t, Supports(cfg.Kind(), Default), cfg.Kind().String())
		assert.True(t, Supports(cfg.Kind(), Start), cfg.Kind().String())
	}

	c := h.add("midi", MIDIConfig{Message: midi.MustParse("program_change program=4")})
	require.NoError(t, Invoke(c, Default))
	assert.Equal(t, Finished, c.State())
	assert.Len(t, h.midi.Messages(), 1)
}

func TestMIDICue(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	c := h.add("midi", MIDIConfig{Message: midi.MustParse("control_change channel=1 control=7 value=100")})
	require.NoError(t, c.Start())

	assert.Equal(t, Finished, c.State())
	assert.Equal(t, []midi.Message{{Type: midi.ControlChange, Channel: 1, Control: 7, Value: 100}}, h.midi.Messages())

	bad := h.add("bad midi", MIDIConfig{Message: midi.Message{Type: "sysex"}})
	assert.ErrorIs(t, bad.Start(), midi.ErrUnknownType)
	assert.Equal(t, Error, bad.State())
}

func TestIndexRefResolve(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		ref        IndexRef
		current    int
		hasCurrent bool
		expected   int
		err        error
	}{
		{IndexRef{Index: 0}, 0, false, 0, nil},
		{IndexRef{Index: 4}, 0, false, 4, nil},
		{IndexRef{Index: 5}, 0, false, 0, ErrIndexOutOfRange},
		{IndexRef{Index: -1}, 0, false, 0, ErrIndexOutOfRange},
		{IndexRef{Relative: true, Index: 1}, 2, true, 3, nil},
		{IndexRef{Relative: true, Index: -2}, 2, true, 0, nil},
		{IndexRef{Relative: true, Index: -3}, 2, true, 0, ErrIndexOutOfRange},
		{IndexRef{Relative: true, Index: 1}, 0, false, 0, ErrNoCurrentIndex},
	}

	for _, tc := range testCases {
		i, err := tc.ref.Resolve(5, tc.current, tc.hasCurrent)
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err, "%+v", tc.ref)
			continue
		}
		require.NoError(t, err, "%+v", tc.ref)
		assert.Equal(t, tc.expected, i, "%+v", tc.ref)
	}
}

// newIndexedShow adds five MIDI cues whose note number is their index.
func newIndexedShow(h *harness) []*Cue {
	var cues []*Cue
	for i := 0; i < 5; i++ {
		msg := midi.MustParse(fmt.Sprintf("note_on note=%d velocity=100", i))
		cues = append(cues, h.add(fmt.Sprintf("cue %d", i), MIDIConfig{Message: msg}))
	}
	return cues
}

func TestIndexActionRelative(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	cues := newIndexedShow(h)
	h.setCurrent(2)

	trigger := MustNew("next", IndexActionConfig{Relative: true, TargetIndex: 1, Action: Start})
	trigger.Bind(h.env)

	require.NoError(t, trigger.Start())
	assert.Equal(t, Finished, trigger.State())
	assert.Equal(t, Finished, cues[3].State())
	require.Len(t, h.midi.Messages(), 1)
	assert.Equal(t, 3, h.midi.Messages()[0].Note)
}

func TestIndexActionOutOfRange(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	cues := newIndexedShow(h)
	h.setCurrent(2)

	trigger := MustNew("far", IndexActionConfig{Relative: true, TargetIndex: 10, Action: Start})
	trigger.Bind(h.env)

	assert.ErrorIs(t, trigger.Start(), ErrIndexOutOfRange)
	assert.Equal(t, Error, trigger.State())
	assert.ErrorIs(t, trigger.LastError(), ErrIndexOutOfRange)
	assert.Empty(t, h.midi.Messages())
	for _, c := range cues {
		assert.Equal(t, Idle, c.State())
	}
}

func TestIndexActionFailures(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	newIndexedShow(h)

	noCurrent := MustNew("relative", IndexActionConfig{Relative: true, TargetIndex: 1})
	noCurrent.Bind(h.env)
	assert.ErrorIs(t, noCurrent.Start(), ErrNoCurrentIndex)
	assert.Equal(t, Error, noCurrent.State())

	unsupported := MustNew("pause midi", IndexActionConfig{TargetIndex: 0, Action: Pause})
	unsupported.Bind(h.env)
	assert.ErrorIs(t, unsupported.Start(), ErrUnsupportedAction)
	assert.Equal(t, Error, unsupported.State())

	// a target refusing the transition is only a warning
	fade := h.add("music down", VolumeConfig{Target: "music", Volume: 0, Duration: 4 * time.Second})
	stopIdle := MustNew("stop idle", IndexActionConfig{TargetIndex: 5, Action: Stop})
	stopIdle.Bind(h.env)
	require.NoError(t, stopIdle.Start())
	assert.Equal(t, Finished, stopIdle.State())
	require.Len(t, stopIdle.Warnings(), 1)
	assert.ErrorIs(t, stopIdle.Warnings()[0], ErrInvalidTransition)
	assert.Equal(t, Idle, fade.State())
	assert.Empty(t, h.midi.Messages())
}

func TestCollectionSkipsRemovedTarget(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a := h.add("A", VolumeConfig{Target: "music", Volume: 1, Duration: 4 * time.Second})
	b := h.add("B", VolumeConfig{Target: "fx", Volume: 0, Duration: 4 * time.Second})
	collection := h.add("both", CollectionConfig{})

	_, err := collection.AddEntry(a.ID(), Start)
	require.NoError(t, err)
	_, err = collection.AddEntry(b.ID(), Stop)
	require.NoError(t, err)

	h.list.remove(b)
	b.Bind(nil)

	require.NoError(t, collection.Start())
	assert.Equal(t, Finished, collection.State())
	assert.Equal(t, Running, a.State())
	assert.Equal(t, Idle, b.State())

	warnings := collection.Warnings()
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrDanglingReference)
}

func TestCollectionEntries(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	collection := h.add("collection", CollectionConfig{})
	first, err := collection.AddEntry("a", Start)
	require.NoError(t, err)
	second, err := collection.AddEntry("b", Stop)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	require.NoError(t, collection.RemoveEntry(first.ID))
	assert.Equal(t, []CollectionEntry{second}, collection.Entries())
	assert.Error(t, collection.RemoveEntry(first.ID))

	other := h.add("midi", MIDIConfig{})
	_, err = other.AddEntry("a", Start)
	assert.ErrorIs(t, err, ErrWrongKind)
	assert.Nil(t, other.Entries())
}

func TestCollectionDispatchFailuresAreWarnings(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	command := h.add("command", CommandConfig{Spec: process.Spec{Command: "sleep 10"}})
	midiCue := h.add("midi", MIDIConfig{Message: midi.MustParse("note_on note=1")})
	collection := h.add("collection", CollectionConfig{Entries: []CollectionEntry{
		NewCollectionEntry(command.ID(), Pause),
		NewCollectionEntry(midiCue.ID(), Start),
	}})

	require.NoError(t, collection.Start())
	assert.Equal(t, Finished, collection.State())
	assert.Equal(t, Finished, midiCue.State())
	require.Len(t, collection.Warnings(), 1)
	assert.ErrorIs(t, collection.Warnings()[0], ErrUnsupportedAction)
}

func TestStopAllStopsOnlyRunningCues(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	running := []*Cue{
		h.add("fade music", VolumeConfig{Target: "music", Volume: 1, Duration: 10 * time.Second}),
		h.add("seek fx", SeekConfig{Target: "fx", Time: 30 * time.Second, Duration: 10 * time.Second}),
		h.add("command", CommandConfig{Spec: process.Spec{Command: "sleep 10"}}),
	}
	idle := h.add("idle", VolumeConfig{Target: "fx", Volume: 0.1, Duration: time.Second})
	stopAll := h.add("stop all", StopAllConfig{})

	for _, c := range running {
		require.NoError(t, c.Start())
	}
	require.NoError(t, stopAll.Start())

	assert.Equal(t, Finished, stopAll.State())
	for _, c := range running {
		assert.Equal(t, Stopped, c.State(), c.Name())
	}
	assert.Equal(t, Idle, idle.State())
	assert.Empty(t, stopAll.Warnings())
}

func TestStopAllPauseMode(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	fadeCue := h.add("fade", VolumeConfig{Target: "music", Volume: 1, Duration: 10 * time.Second})
	command := h.add("command", CommandConfig{Spec: process.Spec{Command: "sleep 10"}})
	stopAll := h.add("pause all", StopAllConfig{PauseMode: true, Mode: FadeOut})

	require.NoError(t, fadeCue.Start())
	require.NoError(t, command.Start())
	require.NoError(t, stopAll.Start())

	assert.Equal(t, Finished, stopAll.State())
	assert.Equal(t, Paused, fadeCue.State())
	assert.Equal(t, Running, command.State())
	require.Len(t, stopAll.Warnings(), 1)
	assert.True(t, errors.Is(stopAll.Warnings()[0], ErrUnsupportedAction))

	// only the command is still polled, pause mode never fades
	assert.Equal(t, 1, h.sched.Pending())
}

func TestStopAllFadeOut(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	fadeCue := h.add("fade", VolumeConfig{Target: "music", Volume: 0.9, Duration: 10 * time.Second})
	stopAll := h.add("fade out", StopAllConfig{Mode: FadeOut})

	require.NoError(t, fadeCue.Start())
	require.NoError(t, h.player.SetVolume("music", 0.8))
	require.NoError(t, stopAll.Start())

	assert.Equal(t, Stopped, fadeCue.State())
	assert.Equal(t, Finished, stopAll.State())
	assert.Equal(t, 1, h.sched.Pending())

	h.advance(time.Second)
	assert.InDelta(t, 0.4, h.volume("music"), 1e-9)
	h.advance(time.Second)
	assert.Equal(t, 0.0, h.volume("music"))
	assert.Equal(t, 0, h.sched.Pending())
}
