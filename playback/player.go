// Package playback exposes the volume and position of patched media to cues.
package playback

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robmorgan/showctl/config"
)

// ErrUnknownMedia is returned when a media name is not patched.
var ErrUnknownMedia = errors.New("unknown media")

// Service is the media control capability used by volume and seek cues.
type Service interface {
	Volume(id string) (float64, error)
	SetVolume(id string, volume float64) error
	Position(id string) (time.Duration, error)
	Seek(id string, position time.Duration) error
}

type media struct {
	duration time.Duration
	volume   float64
	position time.Duration
}

// Player holds the current state of every patched media item.
type Player struct {
	mu    sync.RWMutex
	media map[string]*media
}

// NewPlayer creates a Player for the patched media.
func NewPlayer(patched []config.PatchedMedia) (*Player, error) {
	p := &Player{media: make(map[string]*media, len(patched))}
	for _, m := range patched {
		if _, ok := p.media[m.Name]; ok {
			return nil, fmt.Errorf("duplicate media found! name=%s", m.Name)
		}
		p.media[m.Name] = &media{duration: m.Duration, volume: clampVolume(m.Volume)}
	}
	return p, nil
}

func (p *Player) get(id string) (*media, error) {
	m, ok := p.media[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMedia, id)
	}
	return m, nil
}

// Names returns the patched media names in order.
func (p *Player) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.media))
	for name := range p.media {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Volume returns the current volume of id.
func (p *Player) Volume(id string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, err := p.get(id)
	if err != nil {
		return 0, err
	}
	return m.volume, nil
}

// SetVolume sets the volume of id. Negative volumes are clamped to zero.
func (p *Player) SetVolume(id string, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.get(id)
	if err != nil {
		return err
	}
	m.volume = clampVolume(volume)
	return nil
}

// Position returns the playback position of id.
func (p *Player) Position(id string) (time.Duration, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, err := p.get(id)
	if err != nil {
		return 0, err
	}
	return m.position, nil
}

// Seek moves the playback position of id, clamped to the media duration.
func (p *Player) Seek(id string, position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.get(id)
	if err != nil {
		return err
	}
	switch {
	case position < 0:
		position = 0
	case m.duration > 0 && position > m.duration:
		position = m.duration
	}
	m.position = position
	return nil
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
