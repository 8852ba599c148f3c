package cuelist

import (
	"context"
	"fmt"
	"sync"

	"github.com/robmorgan/showctl/config"
	"github.com/robmorgan/showctl/cue"
	"github.com/robmorgan/showctl/engine"
	"github.com/robmorgan/showctl/logger"
	"github.com/robmorgan/showctl/midi"
	"github.com/robmorgan/showctl/playback"
	"github.com/robmorgan/showctl/process"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

// MasterManager is an interface
type MasterManager interface {
	GetDefaultCueList() *CueList
	SetCurrent(i int) error
	Current() (int, bool)
	Trigger(index int, action cue.Action) error
	Go() error
	StopAll(pause bool) []error
	ProcessForever(ctx context.Context, wg *sync.WaitGroup)
}

// Services are the external collaborators cues drive.
type Services struct {
	Playback  playback.Service
	MIDI      midi.Sender
	Processes process.Service
}

// Master owns the cue list, the scheduler advancing running cues and the
// current index of the show.
type Master struct {
	CueList   *CueList
	scheduler *engine.Scheduler

	idLock     sync.Mutex
	current    int
	hasCurrent bool
}

var _ MasterManager = (*Master)(nil)

// InitializeMaster initializes the Cue List Master
func InitializeMaster(cl clock.Clock, cfg config.ShowConfig, svc Services) *Master {
	m := &Master{
		scheduler: engine.NewScheduler(cl, cfg.TickRate),
	}
	env := &cue.Env{
		Scheduler:       m.scheduler,
		Playback:        svc.Playback,
		MIDI:            svc.MIDI,
		Processes:       svc.Processes,
		Current:         m.Current,
		FadeOutDuration: cfg.StopAll.FadeDuration,
	}
	m.CueList = NewCueList("main", env)
	m.CueList.OnRemove(m.cueRemoved)
	return m
}

// GetDefaultCueList gives the cue list of the show
func (clm *Master) GetDefaultCueList() *CueList {
	return clm.CueList
}

// Scheduler returns the scheduler advancing running cues.
func (clm *Master) Scheduler() *engine.Scheduler {
	return clm.scheduler
}

// SetCurrent moves the current index to i.
func (clm *Master) SetCurrent(i int) error {
	if n := clm.CueList.Len(); i < 0 || i >= n {
		return fmt.Errorf("%w: %d not in [0, %d)", cue.ErrIndexOutOfRange, i, n)
	}

	clm.idLock.Lock()
	defer clm.idLock.Unlock()
	clm.current, clm.hasCurrent = i, true
	return nil
}

// Current returns the current index, if there is one.
func (clm *Master) Current() (int, bool) {
	clm.idLock.Lock()
	defer clm.idLock.Unlock()
	return clm.current, clm.hasCurrent
}

// cueRemoved keeps the current index on the same cue when an earlier cue is
// removed. Removing the current cue makes its successor current.
func (clm *Master) cueRemoved(index int) {
	n := clm.CueList.Len()

	clm.idLock.Lock()
	defer clm.idLock.Unlock()
	if !clm.hasCurrent {
		return
	}
	if index < clm.current {
		clm.current--
	}
	if clm.current >= n {
		clm.current, clm.hasCurrent = 0, false
	}
}

func (clm *Master) clearCurrent() {
	clm.idLock.Lock()
	defer clm.idLock.Unlock()
	clm.current, clm.hasCurrent = 0, false
}

// Trigger makes the cue at index current and invokes action on it.
func (clm *Master) Trigger(index int, action cue.Action) error {
	c, err := clm.CueList.At(index)
	if err != nil {
		return err
	}
	if err := clm.SetCurrent(index); err != nil {
		return err
	}

	logger.GetProjectLogger().WithFields(logrus.Fields{"cue_id": c.ID(), "cue_name": c.Name(), "index": index, "action": action}).Info("Trigger")
	return cue.Invoke(c, action)
}

// Go starts the current cue, or the first one when there is no current
// index, and advances the current index. After the last cue there is no
// current index.
func (clm *Master) Go() error {
	i, ok := clm.Current()
	if !ok {
		i = 0
	}
	c, err := clm.CueList.At(i)
	if err != nil {
		return err
	}

	logger.GetProjectLogger().WithFields(logrus.Fields{"cue_id": c.ID(), "cue_name": c.Name(), "index": i}).Info("Go")
	err = cue.Invoke(c, cue.Start)

	if err := clm.SetCurrent(i + 1); err != nil {
		logger.GetProjectLogger().WithFields(logrus.Fields{"index": i + 1}).WithError(err).Debug("No cue after the current one")
		clm.clearCurrent()
	}
	return err
}

// StopAll stops, or pauses, every active cue of the show.
func (clm *Master) StopAll(pause bool) []error {
	action := cue.Stop
	if pause {
		action = cue.Pause
	}
	errs := cue.Broadcast(clm.CueList.All(), action)
	for _, err := range errs {
		logger.GetProjectLogger().WithError(err).Warn("StopAll")
	}
	return errs
}

// ProcessForever advances running cues until ctx is cancelled.
func (clm *Master) ProcessForever(ctx context.Context, wg *sync.WaitGroup) {
	logger := logger.GetProjectLogger()
	logger.Infof("Processing cue list %s every %s...", clm.CueList.Name, clm.scheduler.TickInterval())

	wg.Add(1)
	go clm.scheduler.Run(ctx, wg)
}
