// Package bot runs the operator chat-bot: informational commands plus the
// step-by-step dialogues that create titles and episodes.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

// Skip is the reply that leaves an optional field empty.
const Skip = "-"

// AdminChecker answers whether a chat identity is an operator.
type AdminChecker interface {
	IsAdmin(ctx context.Context, telegramID string) (bool, error)
}

// AnimeCatalog is the slice of the title store the bot needs.
type AnimeCatalog interface {
	ListTitles(ctx context.Context) ([]models.AnimeTitle, error)
	Create(ctx context.Context, in models.AnimeInput) (*models.Anime, error)
}

// EpisodeCatalog is the slice of the episode store the bot needs.
type EpisodeCatalog interface {
	Exists(ctx context.Context, animeID int64, number int) (bool, error)
	Create(ctx context.Context, in models.EpisodeInput) (*models.Episode, error)
}

// Sender delivers a text reply to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Engine interprets incoming messages. It is safe for concurrent use.
type Engine struct {
	admins    AdminChecker
	anime     AnimeCatalog
	episodes  EpisodeCatalog
	sender    Sender
	sessions  *SessionStore
	mediaHost string
}

func NewEngine(admins AdminChecker, anime AnimeCatalog, episodes EpisodeCatalog, sender Sender, sessions *SessionStore, mediaHost string) *Engine {
	return &Engine{
		admins:    admins,
		anime:     anime,
		episodes:  episodes,
		sender:    sender,
		sessions:  sessions,
		mediaHost: mediaHost,
	}
}

// HandleUpdate processes one webhook update. Updates without a text message are ignored.
func (e *Engine) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	e.HandleMessage(ctx, msg.Chat.ID, msg.From.ID, msg.Text, msg.Command())
}

// HandleMessage processes text from sender fromID in chatID. command is the
// bot command without its slash, or "" for plain text.
func (e *Engine) HandleMessage(ctx context.Context, chatID, fromID int64, text, command string) {
	logger := log.WithFields(log.Fields{"chat_id": chatID, "from_id": fromID, "command": command})

	var err error
	switch command {
	case "start":
		err = e.reply(ctx, chatID, msgWelcome)
	case "help":
		err = e.reply(ctx, chatID, msgHelp)
	case "status":
		err = e.status(ctx, chatID, fromID)
	case "addanime":
		err = e.startAnime(ctx, chatID, fromID)
	case "addepisode":
		err = e.startEpisode(ctx, chatID, fromID)
	case "listanime":
		err = e.listAnime(ctx, chatID)
	case "cancel":
		err = e.cancel(ctx, chatID)
	default:
		err = e.input(ctx, chatID, fromID, strings.TrimSpace(text))
	}

	if err != nil {
		logger.WithError(err).Error("bot update failed")
		if sendErr := e.reply(ctx, chatID, msgGenericError); sendErr != nil {
			logger.WithError(sendErr).Warn("failed to deliver error reply")
		}
	}
}

func (e *Engine) reply(ctx context.Context, chatID int64, text string) error {
	return errors.Wrap(e.sender.Send(ctx, chatID, text), "send reply")
}

// isAdmin treats a failed lookup as "not an operator".
func (e *Engine) isAdmin(ctx context.Context, fromID int64) bool {
	ok, err := e.admins.IsAdmin(ctx, strconv.FormatInt(fromID, 10))
	if err != nil {
		log.WithError(err).WithField("from_id", fromID).Error("admin check failed")
		return false
	}
	return ok
}

func (e *Engine) status(ctx context.Context, chatID, fromID int64) error {
	if e.isAdmin(ctx, fromID) {
		return e.reply(ctx, chatID, "You are an admin of ANI DAO.")
	}
	return e.reply(ctx, chatID, "You are not an admin of ANI DAO.")
}

func (e *Engine) startAnime(ctx context.Context, chatID, fromID int64) error {
	if !e.isAdmin(ctx, fromID) {
		return e.reply(ctx, chatID, "You are not authorized to add anime. This feature is for admins only.")
	}

	e.sessions.Start(&Session{ChatID: chatID, Step: StepAwaitingTitle, Anime: &AnimeDraft{}})
	return e.reply(ctx, chatID, "Let's add a new anime. Please provide the following information:\nWhat is the title of the anime?")
}

func (e *Engine) startEpisode(ctx context.Context, chatID, fromID int64) error {
	if !e.isAdmin(ctx, fromID) {
		return e.reply(ctx, chatID, "You are not authorized to add episodes. This feature is for admins only.")
	}

	titles, err := e.anime.ListTitles(ctx)
	if err != nil {
		return errors.Wrap(err, "list titles for episode dialogue")
	}
	if len(titles) == 0 {
		return e.reply(ctx, chatID, "No anime found. Please add an anime first using /addanime.")
	}

	var b strings.Builder
	b.WriteString("Please select the anime by replying with its number:\n")
	for i, t := range titles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t.Title)
	}

	e.sessions.Start(&Session{
		ChatID:  chatID,
		Step:    StepSelectingTitle,
		Titles:  titles,
		Episode: &EpisodeDraft{},
	})
	return e.reply(ctx, chatID, b.String())
}

func (e *Engine) listAnime(ctx context.Context, chatID int64) error {
	titles, err := e.anime.ListTitles(ctx)
	if err != nil {
		log.WithError(err).Error("failed to list anime")
		return e.reply(ctx, chatID, "Failed to list anime. Please try again.")
	}
	if len(titles) == 0 {
		return e.reply(ctx, chatID, "No anime found in the database.")
	}

	var b strings.Builder
	b.WriteString("Anime in the database:\n")
	for i, t := range titles {
		year := "Unknown"
		if t.Year != nil {
			year = strconv.Itoa(*t.Year)
		}
		fmt.Fprintf(&b, "%d. %s (%s) - ID: %d\n", i+1, t.Title, year, t.ID)
	}
	return e.reply(ctx, chatID, b.String())
}

func (e *Engine) cancel(ctx context.Context, chatID int64) error {
	if _, ok := e.sessions.Get(chatID); !ok {
		return e.reply(ctx, chatID, "Nothing to cancel.")
	}
	e.sessions.Clear(chatID)
	return e.reply(ctx, chatID, "Cancelled. The draft has been discarded.")
}

// input feeds free text to the chat's active dialogue. Without one it is ignored.
func (e *Engine) input(ctx context.Context, chatID, fromID int64, text string) error {
	sess, ok := e.sessions.Get(chatID)
	if !ok {
		return nil
	}
	if !e.isAdmin(ctx, fromID) {
		return e.reply(ctx, chatID, "You are not authorized to use this dialogue. This feature is for admins only.")
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !e.sessions.Current(sess) {
		return nil
	}

	switch sess.Step {
	case StepAwaitingTitle, StepAwaitingDescription, StepAwaitingYear, StepAwaitingGenres, StepAwaitingCoverImage:
		return e.animeStep(ctx, sess, text)
	case StepSelectingTitle, StepAwaitingEpisodeNumber, StepAwaitingEpisodeTitle,
		StepAwaitingVideoURL, StepAwaitingThumbnail, StepAwaitingDuration:
		return e.episodeStep(ctx, sess, text)
	default:
		return nil
	}
}

func (e *Engine) animeStep(ctx context.Context, sess *Session, text string) error {
	d := sess.Anime
	switch sess.Step {
	case StepAwaitingTitle:
		d.Title = text
		sess.Step = StepAwaitingDescription
		return e.reply(ctx, sess.ChatID, "Great! Now provide a description for the anime:")

	case StepAwaitingDescription:
		d.Description = &text
		sess.Step = StepAwaitingYear
		return e.reply(ctx, sess.ChatID, "What year was this anime released?")

	case StepAwaitingYear:
		year, err := strconv.Atoi(text)
		if err != nil {
			return e.reply(ctx, sess.ChatID, "Please enter a valid year (e.g., 2023):")
		}
		d.Year = &year
		sess.Step = StepAwaitingGenres
		return e.reply(ctx, sess.ChatID, "What genres does this anime belong to? (comma-separated, e.g., Action, Adventure, Fantasy)")

	case StepAwaitingGenres:
		d.Genres = ParseGenres(text)
		sess.Step = StepAwaitingCoverImage
		return e.reply(ctx, sess.ChatID, "Please provide a URL for the cover image:")

	case StepAwaitingCoverImage:
		d.CoverImage = &text
		return e.saveAnime(ctx, sess)
	}
	return nil
}

// saveAnime persists the draft; the session is cleared whether or not it succeeds.
func (e *Engine) saveAnime(ctx context.Context, sess *Session) error {
	e.sessions.Clear(sess.ChatID)

	anime, err := e.anime.Create(ctx, sess.Anime.input())
	if err != nil {
		log.WithError(err).WithField("chat_id", sess.ChatID).Error("failed to add anime from bot")
		return e.reply(ctx, sess.ChatID, "Failed to add anime. Please try again.")
	}

	return e.reply(ctx, sess.ChatID, fmt.Sprintf(
		"Anime %q has been added successfully with ID: %d\nYou can now add episodes to this anime using the /addepisode command.",
		anime.Title, anime.ID))
}

func (e *Engine) episodeStep(ctx context.Context, sess *Session, text string) error {
	d := sess.Episode
	switch sess.Step {
	case StepSelectingTitle:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > len(sess.Titles) {
			return e.reply(ctx, sess.ChatID, "Please select a valid number from the list.")
		}
		picked := sess.Titles[n-1]
		d.AnimeID, d.AnimeTitle = picked.ID, picked.Title
		sess.Step = StepAwaitingEpisodeNumber
		return e.reply(ctx, sess.ChatID, fmt.Sprintf("Selected anime: %s\nWhat is the episode number?", picked.Title))

	case StepAwaitingEpisodeNumber:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 {
			return e.reply(ctx, sess.ChatID, "Please enter a valid episode number (must be a positive integer):")
		}
		exists, err := e.episodes.Exists(ctx, d.AnimeID, n)
		if err != nil {
			return errors.Wrap(err, "check episode number")
		}
		if exists {
			return e.reply(ctx, sess.ChatID, fmt.Sprintf(
				"Episode %d already exists for this anime. Please enter a different episode number:", n))
		}
		d.EpisodeNumber = n
		sess.Step = StepAwaitingEpisodeTitle
		return e.reply(ctx, sess.ChatID, "What is the title of this episode? (optional, you can send '-' to skip)")

	case StepAwaitingEpisodeTitle:
		d.Title = optional(text)
		sess.Step = StepAwaitingVideoURL
		return e.reply(ctx, sess.ChatID, fmt.Sprintf("Please provide the video URL for this episode (must be a %s URL):", e.mediaHost))

	case StepAwaitingVideoURL:
		if !strings.Contains(text, e.mediaHost) {
			return e.reply(ctx, sess.ChatID, fmt.Sprintf("The URL must be from %s. Please provide a valid URL:", e.mediaHost))
		}
		d.VideoURL = text
		sess.Step = StepAwaitingThumbnail
		return e.reply(ctx, sess.ChatID, "Please provide a URL for the episode thumbnail (optional, you can send '-' to skip):")

	case StepAwaitingThumbnail:
		d.Thumbnail = optional(text)
		sess.Step = StepAwaitingDuration
		return e.reply(ctx, sess.ChatID, "What is the duration of this episode in seconds? (optional, you can send '-' to skip)")

	case StepAwaitingDuration:
		if text != Skip {
			seconds, err := strconv.Atoi(text)
			if err != nil || seconds < 0 {
				return e.reply(ctx, sess.ChatID, "Please enter a valid duration in seconds or '-' to skip:")
			}
			d.Duration = &seconds
		}
		return e.saveEpisode(ctx, sess)
	}
	return nil
}

// saveEpisode persists the draft; the session is cleared whether or not it succeeds.
func (e *Engine) saveEpisode(ctx context.Context, sess *Session) error {
	e.sessions.Clear(sess.ChatID)
	d := sess.Episode

	episode, err := e.episodes.Create(ctx, d.input())
	if errors.Is(err, apperr.ErrConflict) {
		return e.reply(ctx, sess.ChatID, fmt.Sprintf(
			"Episode %d was added for this anime by someone else meanwhile. Start again with /addepisode.", d.EpisodeNumber))
	}
	if err != nil {
		log.WithError(err).WithField("chat_id", sess.ChatID).Error("failed to add episode from bot")
		return e.reply(ctx, sess.ChatID, "Failed to add episode. Please try again.")
	}

	return e.reply(ctx, sess.ChatID, fmt.Sprintf(
		"Episode %d for %q has been added successfully with ID: %d\nYou can add more episodes using the /addepisode command.",
		episode.EpisodeNumber, d.AnimeTitle, episode.ID))
}

// ParseGenres splits comma-separated tags, trimming each. Order, duplicates and
// blank segments are kept as typed.
func ParseGenres(text string) []string {
	parts := strings.Split(text, ",")
	for i, g := range parts {
		parts[i] = strings.TrimSpace(g)
	}
	return parts
}

func optional(text string) *string {
	if text == Skip {
		return nil
	}
	return &text
}

const msgWelcome = "Welcome to ANI DAO Bot! This bot is used to manage anime and episodes for the ANI DAO streaming platform."

const msgHelp = `Available commands:
/start - Start the bot
/help - Show this help message
/addanime - Add a new anime (admin only)
/addepisode - Add a new episode (admin only)
/listanime - List all anime
/status - Check your admin status
/cancel - Abandon the current dialogue`

const msgGenericError = "An error occurred while processing your request. Please try again."
