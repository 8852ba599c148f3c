package cuelist

import (
	"fmt"
	"sync"

	"github.com/robmorgan/showctl/cue"
	"github.com/robmorgan/showctl/logger"
	"github.com/sirupsen/logrus"
)

// CueList stores an ordered list of cues. The position of a cue in the list is
// its index; indices only change when cues are added, removed or moved.
type CueList struct {
	Name string

	lock      sync.RWMutex
	cues      []*cue.Cue
	env       *cue.Env
	onRemoved func(index int)
}

// NewCueList creates an empty list whose cues execute in env. The list becomes
// the registry of env.
func NewCueList(cueListName string, env *cue.Env) *CueList {
	logger := logger.GetProjectLogger()
	logger.Debugf("Cue list created with name: %s", cueListName)

	cl := &CueList{
		Name: cueListName,
		cues: make([]*cue.Cue, 0),
		env:  env,
	}
	if env != nil {
		env.Registry = cl
	}
	return cl
}

// OnRemove registers fn to be called with the former index of every removed
// cue, after the list has been updated.
func (cl *CueList) OnRemove(fn func(index int)) {
	cl.lock.Lock()
	defer cl.lock.Unlock()
	cl.onRemoved = fn
}

// NewCue creates a cue and appends it to the list.
func (cl *CueList) NewCue(cueName string, cfg cue.Config) (*cue.Cue, error) {
	c, err := cue.New(cueName, cfg)
	if err != nil {
		return nil, err
	}
	if err := cl.Add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Add appends c to the list.
func (cl *CueList) Add(c *cue.Cue) error {
	cl.lock.Lock()
	defer cl.lock.Unlock()
	return cl.insertLocked(len(cl.cues), c)
}

// Insert places c at index i, shifting later cues down.
func (cl *CueList) Insert(i int, c *cue.Cue) error {
	cl.lock.Lock()
	defer cl.lock.Unlock()
	return cl.insertLocked(i, c)
}

func (cl *CueList) insertLocked(i int, c *cue.Cue) error {
	if c == nil {
		return fmt.Errorf("cannot add a nil cue to %s", cl.Name)
	}
	if i < 0 || i > len(cl.cues) {
		return fmt.Errorf("%w: cannot insert at %d", cue.ErrIndexOutOfRange, i)
	}
	if cl.indexOfLocked(c.ID()) >= 0 {
		return fmt.Errorf("duplicate cue found! id=%s", c.ID())
	}

	cl.cues = append(cl.cues, nil)
	copy(cl.cues[i+1:], cl.cues[i:])
	cl.cues[i] = c
	c.Bind(cl.env)

	logger.GetProjectLogger().WithFields(logrus.Fields{"cue_id": c.ID(), "cue_name": c.Name(), "index": i}).Debug("Cue added")
	return nil
}

// Remove deletes the cue with the given id from the list. A running cue is
// stopped first; a removed cue can not be started again.
func (cl *CueList) Remove(id string) (*cue.Cue, error) {
	cl.lock.Lock()
	i := cl.indexOfLocked(id)
	if i < 0 {
		cl.lock.Unlock()
		return nil, fmt.Errorf("cue %s not found in %s", id, cl.Name)
	}
	c := cl.cues[i]
	cl.cues = append(cl.cues[:i], cl.cues[i+1:]...)
	onRemoved := cl.onRemoved
	cl.lock.Unlock()

	if onRemoved != nil {
		onRemoved(i)
	}

	if c.State().IsActive() {
		if err := c.Stop(); err != nil {
			logger.GetProjectLogger().WithFields(logrus.Fields{"cue_id": id}).WithError(err).Warn("Stopping removed cue")
		}
	}
	c.Bind(nil)
	return c, nil
}

// Move relocates the cue at index from to index to.
func (cl *CueList) Move(from, to int) error {
	cl.lock.Lock()
	defer cl.lock.Unlock()

	n := len(cl.cues)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: cannot move %d to %d", cue.ErrIndexOutOfRange, from, to)
	}

	c := cl.cues[from]
	cl.cues = append(cl.cues[:from], cl.cues[from+1:]...)
	cl.cues = append(cl.cues, nil)
	copy(cl.cues[to+1:], cl.cues[to:])
	cl.cues[to] = c
	return nil
}

// At returns the cue at index i.
func (cl *CueList) At(i int) (*cue.Cue, error) {
	cl.lock.RLock()
	defer cl.lock.RUnlock()

	if i < 0 || i >= len(cl.cues) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", cue.ErrIndexOutOfRange, i, len(cl.cues))
	}
	return cl.cues[i], nil
}

// ByID returns the cue with the given id.
func (cl *CueList) ByID(id string) (*cue.Cue, bool) {
	cl.lock.RLock()
	defer cl.lock.RUnlock()

	if i := cl.indexOfLocked(id); i >= 0 {
		return cl.cues[i], true
	}
	return nil, false
}

// IndexOf returns the index of the cue with the given id, or -1.
func (cl *CueList) IndexOf(id string) int {
	cl.lock.RLock()
	defer cl.lock.RUnlock()
	return cl.indexOfLocked(id)
}

func (cl *CueList) indexOfLocked(id string) int {
	for i, c := range cl.cues {
		if c.ID() == id {
			return i
		}
	}
	return -1
}

// All returns the cues in list order.
func (cl *CueList) All() []*cue.Cue {
	cl.lock.RLock()
	defer cl.lock.RUnlock()

	out := make([]*cue.Cue, len(cl.cues))
	copy(out, cl.cues)
	return out
}

// Len returns the number of cues in the list.
func (cl *CueList) Len() int {
	cl.lock.RLock()
	defer cl.lock.RUnlock()
	return len(cl.cues)
}
