package bot

import (
	"sync"
	"time"

	"github.com/znwiqn/anidao/internal/cache"
	"github.com/znwiqn/anidao/internal/models"
)

// Step is the field a session is waiting for.
type Step string

const (
	StepIdle Step = "idle"

	StepAwaitingTitle       Step = "awaiting_title"
	StepAwaitingDescription Step = "awaiting_description"
	StepAwaitingYear        Step = "awaiting_year"
	StepAwaitingGenres      Step = "awaiting_genres"
	StepAwaitingCoverImage  Step = "awaiting_cover_image"

	StepSelectingTitle        Step = "selecting_title"
	StepAwaitingEpisodeNumber Step = "awaiting_episode_number"
	StepAwaitingEpisodeTitle  Step = "awaiting_episode_title"
	StepAwaitingVideoURL      Step = "awaiting_video_url"
	StepAwaitingThumbnail     Step = "awaiting_thumbnail"
	StepAwaitingDuration      Step = "awaiting_duration"
)

// AnimeDraft accumulates a title across the creation dialogue.
type AnimeDraft struct {
	Title       string
	Description *string
	Year        *int
	Genres      []string
	CoverImage  *string
}

func (d AnimeDraft) input() models.AnimeInput {
	return models.AnimeInput{
		Title:       d.Title,
		Description: d.Description,
		Year:        d.Year,
		Genres:      d.Genres,
		CoverImage:  d.CoverImage,
	}
}

// EpisodeDraft accumulates an episode across the creation dialogue.
type EpisodeDraft struct {
	AnimeID       int64
	AnimeTitle    string
	EpisodeNumber int
	Title         *string
	VideoURL      string
	Thumbnail     *string
	Duration      *int
}

func (d EpisodeDraft) input() models.EpisodeInput {
	return models.EpisodeInput{
		AnimeID:       d.AnimeID,
		EpisodeNumber: d.EpisodeNumber,
		Title:         d.Title,
		VideoURL:      d.VideoURL,
		Thumbnail:     d.Thumbnail,
		Duration:      d.Duration,
	}
}

// Session is one chat's in-flight dialogue. Handlers hold mu while reading or
// advancing it, so messages from the same chat apply one at a time.
type Session struct {
	mu sync.Mutex

	ChatID  int64
	Step    Step
	Anime   *AnimeDraft
	Episode *EpisodeDraft
	// Titles is the catalog snapshot the operator picks from by 1-based position.
	Titles []models.AnimeTitle
}

// SessionStore maps chat ids to sessions and forgets sessions idle for longer
// than its TTL. Nothing is persisted; a restart drops every dialogue.
type SessionStore struct {
	sessions *cache.Manager[int64, *Session]
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: cache.NewManager[int64, *Session]("bot_sessions", ttl),
		ttl:      ttl,
	}
}

// Start registers sess for its chat, replacing any previous session. sess must
// be fully built: other messages from the chat can reach it as soon as it is set.
func (s *SessionStore) Start(sess *Session) *Session {
	s.sessions.Set(sess.ChatID, sess)
	return sess
}

// Get returns the live session for chatID and refreshes its idle deadline.
func (s *SessionStore) Get(chatID int64) (*Session, bool) {
	sess, ok := s.sessions.Get(chatID)
	if ok {
		s.sessions.Touch(chatID)
	}
	return sess, ok
}

// Current reports whether sess is still the session registered for its chat.
// A handler that waited on sess.mu uses it to detect a replaced or cleared session.
func (s *SessionStore) Current(sess *Session) bool {
	cur, ok := s.sessions.Get(sess.ChatID)
	return ok && cur == sess
}

func (s *SessionStore) Clear(chatID int64) {
	s.sessions.Delete(chatID)
}

func (s *SessionStore) Len() int {
	return s.sessions.Len()
}

// Sweep drops idle sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	return s.sessions.Cleanup()
}

// SweepInterval is how often Sweep should run to keep expired sessions
// from lingering more than half a TTL.
func (s *SessionStore) SweepInterval() time.Duration {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func (s *SessionStore) setClock(now func() time.Time) {
	s.sessions.SetClock(now)
}
