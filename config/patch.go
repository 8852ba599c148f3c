package config

import "time"

// PatchedMedia stores config info for a playback target
type PatchedMedia struct {
	Name     string        `mapstructure:"name"`
	Duration time.Duration `mapstructure:"duration"`
	Volume   float64       `mapstructure:"volume"`
}

// PatchMedia returns the media patched into every show unless the config file
// lists its own.
func PatchMedia() []PatchedMedia {
	s := make([]PatchedMedia, 0)

	s = append(s, patchMusic()...)
	s = append(s, patchEffects()...)

	return s
}

func patchMusic() []PatchedMedia {
	return []PatchedMedia{
		// walk-in music
		{
			Name:     "preshow",
			Duration: 45 * time.Minute,
			Volume:   0.8,
		},
		// act one opener
		{
			Name:     "overture",
			Duration: 4*time.Minute + 12*time.Second,
			Volume:   1.0,
		},
	}
}

func patchEffects() []PatchedMedia {
	return []PatchedMedia{
		{
			Name:     "thunder",
			Duration: 9 * time.Second,
			Volume:   1.0,
		},
		{
			Name:     "rain_loop",
			Duration: 2 * time.Minute,
			Volume:   0.6,
		},
	}
}
