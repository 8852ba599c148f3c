package cuelist

import (
	"testing"
	"time"

	"github.com/robmorgan/showctl/cue"
	"github.com/robmorgan/showctl/midi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(cl *CueList) []string {
	var out []string
	for _, c := range cl.All() {
		out = append(out, c.Name())
	}
	return out
}

func TestCueListEditing(t *testing.T) {
	t.Parallel()

	cl := NewCueList("test", &cue.Env{})
	a, err := cl.NewCue("a", cue.MIDIConfig{})
	require.NoError(t, err)
	b, err := cl.NewCue("b", cue.MIDIConfig{})
	require.NoError(t, err)
	c := cue.MustNew("c", cue.MIDIConfig{})
	require.NoError(t, cl.Insert(1, c))

	assert.Equal(t, []string{"a", "c", "b"}, names(cl))
	assert.Equal(t, 3, cl.Len())
	assert.Equal(t, 2, cl.IndexOf(b.ID()))
	assert.Equal(t, -1, cl.IndexOf("nope"))

	require.NoError(t, cl.Move(0, 2))
	assert.Equal(t, []string{"c", "b", "a"}, names(cl))
	require.NoError(t, cl.Move(2, 0))
	assert.Equal(t, []string{"a", "c", "b"}, names(cl))

	got, ok := cl.ByID(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	at, err := cl.At(1)
	require.NoError(t, err)
	assert.Same(t, c, at)

	_, err = cl.At(3)
	assert.ErrorIs(t, err, cue.ErrIndexOutOfRange)
	assert.ErrorIs(t, cl.Move(0, 3), cue.ErrIndexOutOfRange)
	assert.ErrorIs(t, cl.Insert(5, cue.MustNew("d", cue.MIDIConfig{})), cue.ErrIndexOutOfRange)
	assert.Error(t, cl.Add(a), "duplicate id")

	removed, err := cl.Remove(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, removed)
	assert.Equal(t, []string{"a", "b"}, names(cl))
	_, err = cl.Remove(c.ID())
	assert.Error(t, err)
}

func TestRemoveStopsRunningCue(t *testing.T) {
	t.Parallel()

	m, _ := newTestMaster(t)
	cl := m.GetDefaultCueList()
	c, err := cl.NewCue("fade", cue.VolumeConfig{Target: "preshow", Volume: 0, Duration: time.Minute})
	require.NoError(t, err)

	require.NoError(t, c.Start())
	_, err = cl.Remove(c.ID())
	require.NoError(t, err)

	assert.Equal(t, cue.Stopped, c.State())
	assert.Equal(t, 0, m.Scheduler().Pending())
	assert.ErrorIs(t, c.Start(), cue.ErrUnbound)
}

func TestCueListIsTheRegistry(t *testing.T) {
	t.Parallel()

	m, rec := newTestMaster(t)
	cl := m.GetDefaultCueList()
	target, err := cl.NewCue("note", cue.MIDIConfig{Message: midi.MustParse("note_on note=64 velocity=1")})
	require.NoError(t, err)
	collection, err := cl.NewCue("collection", cue.CollectionConfig{})
	require.NoError(t, err)
	_, err = collection.AddEntry(target.ID(), cue.Start)
	require.NoError(t, err)

	require.NoError(t, collection.Start())
	assert.Equal(t, cue.Finished, target.State())
	assert.Len(t, rec.Messages(), 1)
}
