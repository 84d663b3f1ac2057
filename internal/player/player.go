// Package player decides how an episode source is played and models the
// transport controls of the episode page.
//
// The browser half lives in the episode template: it loads hls.js only when
// Choose picks ModeAdaptive and mirrors Controls for the on-screen buttons.
// Attach and Controls are the tested reference model for that script
// (templates/pages/episode.html); the server itself only calls NewView.
package player

import (
	"net/url"
	"path"
	"strings"
)

// ManifestExt is the suffix of an adaptive-streaming manifest.
const ManifestExt = ".m3u8"

// Mode is the playback path for a source.
type Mode string

const (
	ModeDirect   Mode = "direct"
	ModeAdaptive Mode = "adaptive"
)

// Env reports what the running client can play.
type Env interface {
	SupportsAdaptive() bool
}

// StaticEnv is an Env with a fixed answer.
type StaticEnv bool

func (e StaticEnv) SupportsAdaptive() bool { return bool(e) }

// Element is the media surface a source is bound to.
type Element interface {
	SetSource(src string)
}

// Loader streams a manifest into an Element segment by segment.
type Loader interface {
	LoadSource(src string)
	AttachMedia(el Element)
	Destroy()
}

// Decision is the chosen playback path with a human-readable reason.
type Decision struct {
	Mode   Mode   `json:"mode"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// IsManifest reports whether src names an adaptive manifest. A query string or
// fragment after the path does not hide the suffix.
func IsManifest(src string) bool {
	p := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.EqualFold(path.Ext(p), ManifestExt)
}

// Choose returns ModeAdaptive iff src is a manifest and env can play it.
func Choose(src string, env Env) Mode {
	return Decide(src, env).Mode
}

// Decide is Choose with the reason attached.
func Decide(src string, env Env) Decision {
	switch {
	case !IsManifest(src):
		return Decision{Mode: ModeDirect, Source: src, Reason: "source is a single media file"}
	case env == nil || !env.SupportsAdaptive():
		return Decision{Mode: ModeDirect, Source: src, Reason: "client cannot load adaptive segments; using native playback"}
	default:
		return Decision{Mode: ModeAdaptive, Source: src, Reason: "adaptive manifest with loader support"}
	}
}

// Attach binds src to el. In adaptive mode a loader from newLoader streams the
// manifest and the returned detach destroys it; in direct mode the source is
// assigned to the element and detach does nothing.
func Attach(el Element, src string, env Env, newLoader func() Loader) (detach func()) {
	if Choose(src, env) == ModeAdaptive && newLoader != nil {
		loader := newLoader()
		loader.LoadSource(src)
		loader.AttachMedia(el)
		return loader.Destroy
	}

	el.SetSource(src)
	return func() {}
}
