package player

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	SkipStep     = 10 * time.Second
	HideControls = 3 * time.Second
)

// Controls is the transport state behind the player buttons. Times are in seconds.
type Controls struct {
	Playing     bool
	CurrentTime float64
	Duration    float64
	Volume      float64
	Muted       bool
	Fullscreen  bool

	restoreVolume float64
	lastPointer   time.Time
	visible       bool
}

// NewControls returns paused controls at full volume with the bar shown.
func NewControls(duration float64) *Controls {
	return &Controls{
		Duration:      math.Max(duration, 0),
		Volume:        1,
		restoreVolume: 1,
		visible:       true,
	}
}

// TogglePlay flips between playing and paused. Pausing shows the controls.
func (c *Controls) TogglePlay(now time.Time) {
	c.Playing = !c.Playing
	c.PointerMoved(now)
}

// Seek moves the playhead, clamped to [0, Duration].
func (c *Controls) Seek(t float64) {
	c.CurrentTime = clamp(t, 0, c.Duration)
}

func (c *Controls) SkipForward() {
	c.Seek(c.CurrentTime + SkipStep.Seconds())
}

func (c *Controls) SkipBackward() {
	c.Seek(c.CurrentTime - SkipStep.Seconds())
}

// SetVolume clamps v to [0,1]. Zero mutes; anything else unmutes.
func (c *Controls) SetVolume(v float64) {
	c.Volume = clamp(v, 0, 1)
	c.Muted = c.Volume == 0
	if c.Volume > 0 {
		c.restoreVolume = c.Volume
	}
}

// ToggleMute mutes, or unmutes back to the last non-zero volume.
func (c *Controls) ToggleMute() {
	if c.Muted {
		c.Muted = false
		if c.Volume == 0 {
			c.Volume = c.restoreVolume
		}
		return
	}
	if c.Volume > 0 {
		c.restoreVolume = c.Volume
	}
	c.Muted = true
}

// EffectiveVolume is what the volume slider shows.
func (c *Controls) EffectiveVolume() float64 {
	if c.Muted {
		return 0
	}
	return c.Volume
}

// PointerMoved shows the controls and restarts the inactivity timer.
func (c *Controls) PointerMoved(now time.Time) {
	c.lastPointer = now
	c.visible = true
}

// Tick hides the controls once the pointer has been idle for HideControls while playing.
func (c *Controls) Tick(now time.Time) {
	if c.Playing && now.Sub(c.lastPointer) >= HideControls {
		c.visible = false
	}
}

// Visible reports whether the control bar is shown. A paused player always shows it.
func (c *Controls) Visible() bool {
	return !c.Playing || c.visible
}

// Fullscreener requests or leaves fullscreen on the player container.
type Fullscreener interface {
	RequestFullscreen() error
	ExitFullscreen() error
}

// ToggleFullscreen switches fullscreen on fs. A rejected request is logged and
// leaves the state unchanged.
func (c *Controls) ToggleFullscreen(fs Fullscreener) {
	var err error
	if c.Fullscreen {
		err = fs.ExitFullscreen()
	} else {
		err = fs.RequestFullscreen()
	}
	if err != nil {
		log.WithError(errors.Wrap(err, "fullscreen toggle")).Warn("fullscreen request rejected")
		return
	}
	c.Fullscreen = !c.Fullscreen
}

// FormatTime renders seconds as m:ss.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
