package player

// View is the template model for the episode player.
type View struct {
	Decision
	Poster string
	// HLSScript is the hls.js bundle the page loads for adaptive sources.
	HLSScript string
}

const hlsScript = "https://cdn.jsdelivr.net/npm/hls.js@1"

// NewView builds the model for src. The server cannot know the client's
// capabilities, so it assumes adaptive support and the page script falls back
// to native playback when hls.js reports none.
func NewView(src, poster string) View {
	v := View{Decision: Decide(src, StaticEnv(true)), Poster: poster}
	if v.Mode == ModeAdaptive {
		v.HLSScript = hlsScript
	}
	return v
}

// Adaptive is a template helper.
func (v View) Adaptive() bool {
	return v.Mode == ModeAdaptive
}
