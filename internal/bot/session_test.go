package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartReplacesSession(t *testing.T) {
	store := NewSessionStore(time.Minute)

	first := store.Start(&Session{ChatID: 1, Step: StepAwaitingTitle})
	assert.True(t, store.Current(first))

	second := store.Start(&Session{ChatID: 1, Step: StepSelectingTitle})
	assert.False(t, store.Current(first), "replaced session is stale")
	assert.True(t, store.Current(second))

	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, StepSelectingTitle, got.Step)

	store.Clear(1)
	assert.False(t, store.Current(second))
	assert.Zero(t, store.Len())
}

func TestGetRefreshesIdleDeadline(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute)
	store.setClock(func() time.Time { return now })

	store.Start(&Session{ChatID: 5, Step: StepAwaitingYear})
	for i := 0; i < 3; i++ {
		now = now.Add(40 * time.Second)
		_, ok := store.Get(5)
		require.True(t, ok)
	}

	assert.Zero(t, store.Sweep())
	now = now.Add(61 * time.Second)
	assert.Equal(t, 1, store.Sweep())
}

func TestDraftInputs(t *testing.T) {
	year := 2001
	anime := AnimeDraft{Title: "Hellsing", Year: &year, Genres: []string{"Horror"}}.input()
	assert.Equal(t, "Hellsing", anime.Title)
	assert.Equal(t, &year, anime.Year)

	ep := EpisodeDraft{AnimeID: 3, AnimeTitle: "Hellsing", EpisodeNumber: 2, VideoURL: "u"}.input()
	assert.Equal(t, int64(3), ep.AnimeID)
	assert.Equal(t, 2, ep.EpisodeNumber)
	assert.Equal(t, "u", ep.VideoURL)
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, 15*time.Minute, NewSessionStore(30*time.Minute).SweepInterval())
	assert.Equal(t, time.Second, NewSessionStore(time.Second).SweepInterval())
}
