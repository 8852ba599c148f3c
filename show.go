package main

import (
	"fmt"
	"io"
	"time"

	"github.com/robmorgan/showctl/config"
	"github.com/robmorgan/showctl/cue"
	"github.com/robmorgan/showctl/cuelist"
	"github.com/robmorgan/showctl/fade"
	"github.com/robmorgan/showctl/midi"
	"github.com/robmorgan/showctl/process"
)

// buildShow fills cl with the demo show for the patched media.
func buildShow(cl *cuelist.CueList, cfg config.ShowConfig) error {
	curve := cfg.Curve()

	preshowIn := cue.VolumeConfig{Target: "preshow", Volume: 0.8, Duration: 5 * time.Second, Curve: curve}
	preshowOut := cue.VolumeConfig{Target: "preshow", Volume: 0, Duration: 3 * time.Second, Curve: fade.InverseQuadratic, StopMode: fade.SnapTarget}
	houseHalf := cue.MIDIConfig{Message: midi.MustParse("control_change channel=0 control=7 value=64")}
	overtureTop := cue.SeekConfig{Target: "overture"}
	overtureIn := cue.VolumeConfig{Target: "overture", Volume: 1, Duration: 4 * time.Second, Curve: curve}

	steps := []showStep{
		{"Preshow music", "as the house opens", preshowIn},
		{"House to half", "", houseHalf},
		{"Preshow out", "", preshowOut},
		{"Overture to top", "", overtureTop},
		{"Overture in", "", overtureIn},
	}

	var cues []*cue.Cue
	for _, step := range steps {
		c, err := step.add(cl)
		if err != nil {
			return err
		}
		cues = append(cues, c)
	}

	overture, err := showStep{"Overture", "house lights and music together", cue.CollectionConfig{}}.add(cl)
	if err != nil {
		return err
	}
	for _, c := range cues[2:] {
		if _, err := overture.AddEntry(c.ID(), cue.Start); err != nil {
			return err
		}
	}

	storm := []showStep{
		{"Thunder", "", cue.CommandConfig{Spec: process.Spec{Command: "echo thunder", IgnoreErrors: true}}},
		{"Rain in", "", cue.VolumeConfig{Target: "rain_loop", Volume: 0.6, Duration: 10 * time.Second, Curve: fade.Quadratic}},
		{"Next", "fires the lighting cue below", cue.IndexActionConfig{Relative: true, TargetIndex: 1, Action: cue.Start}},
		{"Lights storm", "", cue.MIDIConfig{Message: midi.MustParse("program_change channel=0 program=12")}},
		{"Stop all", "end of act one", cue.StopAllConfig{Mode: cue.FadeOut}},
	}
	for _, step := range storm {
		if _, err := step.add(cl); err != nil {
			return err
		}
	}
	return nil
}

type showStep struct {
	name        string
	description string
	cfg         cue.Config
}

func (s showStep) add(cl *cuelist.CueList) (*cue.Cue, error) {
	c, err := cl.NewCue(s.name, s.cfg)
	if err != nil {
		return nil, err
	}
	c.SetDescription(s.description)
	return c, nil
}

// printCueList writes the cue list of m, one cue per line.
func printCueList(w io.Writer, m *cuelist.Master) {
	fmt.Fprintf(w, "%s: %d cues, tick every %s\n", m.CueList.Name, m.CueList.Len(), m.Scheduler().TickInterval())
	for i, c := range m.GetDefaultCueList().All() {
		line := fmt.Sprintf("%3d  %-16s %s", i, c.Kind(), c.Name())
		if d := c.Description(); d != "" {
			line += "  (" + d + ")"
		}
		fmt.Fprintln(w, line)
	}
}
