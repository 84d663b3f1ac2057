package player

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubElement struct {
	src string
}

func (e *stubElement) SetSource(src string) { e.src = src }

type stubLoader struct {
	loaded    string
	attached  Element
	destroyed bool
}

func (l *stubLoader) LoadSource(src string)  { l.loaded = src }
func (l *stubLoader) AttachMedia(el Element) { l.attached = el }
func (l *stubLoader) Destroy()               { l.destroyed = true }

func TestChoose(t *testing.T) {
	tests := []struct {
		src      string
		adaptive bool
		want     Mode
	}{
		{"https://anidao.b-cdn.net/ep1/playlist.m3u8", true, ModeAdaptive},
		{"https://anidao.b-cdn.net/ep1/playlist.m3u8?token=abc", true, ModeAdaptive},
		{"https://anidao.b-cdn.net/ep1/playlist.m3u8", false, ModeDirect},
		{"https://anidao.b-cdn.net/ep1.mp4", true, ModeDirect},
		{"https://anidao.b-cdn.net/m3u8/ep1.webm", true, ModeDirect},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Choose(tt.src, StaticEnv(tt.adaptive)), tt.src)
	}
}

func TestAttachAdaptiveUsesLoader(t *testing.T) {
	el := &stubElement{}
	loader := &stubLoader{}
	src := "https://anidao.b-cdn.net/ep1/playlist.m3u8"

	detach := Attach(el, src, StaticEnv(true), func() Loader { return loader })

	assert.Equal(t, src, loader.loaded)
	assert.Same(t, el, loader.attached)
	assert.Empty(t, el.src, "element source stays unset in adaptive mode")

	detach()
	assert.True(t, loader.destroyed)
}

func TestAttachDirectAssignsSource(t *testing.T) {
	el := &stubElement{}
	created := false
	src := "https://anidao.b-cdn.net/ep1.mp4"

	detach := Attach(el, src, StaticEnv(true), func() Loader {
		created = true
		return &stubLoader{}
	})
	detach()

	assert.Equal(t, src, el.src)
	assert.False(t, created)
}

func TestSeekAndSkipClamp(t *testing.T) {
	c := NewControls(100)

	c.SkipBackward()
	assert.Equal(t, 0.0, c.CurrentTime)

	c.Seek(95)
	c.SkipForward()
	assert.Equal(t, 100.0, c.CurrentTime)

	c.Seek(-4)
	assert.Equal(t, 0.0, c.CurrentTime)

	c.Seek(50)
	c.SkipForward()
	assert.Equal(t, 60.0, c.CurrentTime)
}

func TestVolumeAndMute(t *testing.T) {
	c := NewControls(10)

	c.SetVolume(1.7)
	assert.Equal(t, 1.0, c.Volume)

	c.SetVolume(0.4)
	c.SetVolume(0)
	assert.True(t, c.Muted)

	c.ToggleMute()
	assert.False(t, c.Muted)
	assert.Equal(t, 0.4, c.Volume)

	c.SetVolume(0.6)
	c.ToggleMute()
	assert.True(t, c.Muted)
	assert.Equal(t, 0.0, c.EffectiveVolume())
	c.ToggleMute()
	assert.Equal(t, 0.6, c.EffectiveVolume())
}

func TestControlsAutoHide(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewControls(100)

	c.Tick(start.Add(time.Hour))
	assert.True(t, c.Visible(), "paused player keeps controls")

	c.TogglePlay(start)
	c.Tick(start.Add(2 * time.Second))
	assert.True(t, c.Visible())

	c.Tick(start.Add(3 * time.Second))
	assert.False(t, c.Visible())

	c.PointerMoved(start.Add(4 * time.Second))
	assert.True(t, c.Visible())

	c.Tick(start.Add(10 * time.Second))
	assert.False(t, c.Visible())
	c.TogglePlay(start.Add(11 * time.Second))
	assert.True(t, c.Visible())
}

type stubFullscreen struct {
	err error
}

func (f stubFullscreen) RequestFullscreen() error { return f.err }
func (f stubFullscreen) ExitFullscreen() error    { return nil }

func TestFullscreenRejectionIgnored(t *testing.T) {
	c := NewControls(10)

	c.ToggleFullscreen(stubFullscreen{err: errors.New("not allowed")})
	assert.False(t, c.Fullscreen)

	c.ToggleFullscreen(stubFullscreen{})
	assert.True(t, c.Fullscreen)
	c.ToggleFullscreen(stubFullscreen{})
	assert.False(t, c.Fullscreen)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0:00", FormatTime(0))
	assert.Equal(t, "1:05", FormatTime(65.9))
	assert.Equal(t, "24:00", FormatTime(1440))
	assert.Equal(t, "0:00", FormatTime(-3))
}

func TestNewView(t *testing.T) {
	v := NewView("https://anidao.b-cdn.net/a.m3u8", "poster.jpg")
	assert.True(t, v.Adaptive())
	assert.NotEmpty(t, v.HLSScript)

	v = NewView("https://anidao.b-cdn.net/a.mp4", "")
	assert.False(t, v.Adaptive())
	assert.Empty(t, v.HLSScript)
}
