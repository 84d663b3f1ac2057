package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/znwiqn/anidao/internal/auth"
	"github.com/znwiqn/anidao/internal/models"
	"github.com/znwiqn/anidao/internal/player"
)

//go:embed templates
var templateFS embed.FS

const layout = "templates/layout.html"

// views holds one parsed template set per page, each combining the shared
// layout and partials with the page's own blocks.
type views struct {
	pages map[string]*template.Template
}

// Context is what every page template receives.
type Context struct {
	User  *auth.Claims
	Path  string
	Title string
	Data  interface{}
}

var funcs = template.FuncMap{
	"ago":         humanize.Time,
	"comma":       func(n int) string { return humanize.Comma(int64(n)) },
	"ordinal":     humanize.Ordinal,
	"clock":       func(seconds int) string { return player.FormatTime(float64(seconds)) },
	"score":       score,
	"percent":     func(p float64) int { return int(math.Round(p)) },
	"join":        strings.Join,
	"add":         func(a, b int) int { return a + b },
	"pageURL":     pageURL,
	"pageList":    pageList,
	"year":        func() int { return time.Now().Year() },
	"thread":      newThread,
	"ratingScale": ratingScale,
}

// thread is the model of the comments partial.
type thread struct {
	User      *auth.Claims
	AnimeID   int64
	EpisodeID int64
	Comments  []models.Comment
}

func newThread(user *auth.Claims, animeID, episodeID int64, comments []models.Comment) thread {
	return thread{User: user, AnimeID: animeID, EpisodeID: episodeID, Comments: comments}
}

func loadViews() (*views, error) {
	entries, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "list page templates")
	}

	v := &views{pages: make(map[string]*template.Template, len(entries))}
	for _, file := range entries {
		name := strings.TrimSuffix(path.Base(file), ".html")
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, layout, "templates/partials/*.html", file)
		if err != nil {
			return nil, errors.Wrapf(err, "parse page %s", name)
		}
		v.pages[name] = t
	}
	return v, nil
}

// render executes page into a buffer first so a template failure still
// produces a clean 500.
func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data interface{}) {
	t, ok := p.views.pages[page]
	if !ok {
		log.WithField("page", page).Error("unknown page template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	claims, _ := auth.GetUserFromContext(r.Context())
	ctx := Context{User: claims, Path: r.URL.Path, Title: title, Data: data}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "main", ctx); err != nil {
		log.WithError(err).WithField("page", page).Error("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// fail logs err and shows the error page.
func (p *Pages) fail(w http.ResponseWriter, r *http.Request, err error) {
	log.WithError(err).WithField("path", r.URL.Path).Error("page failed")
	p.render(w, r, http.StatusInternalServerError, "error", "Something went wrong", "Something went wrong. Please try again.")
}

func (p *Pages) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"Not found"}`)
		return
	}
	p.render(w, r, http.StatusNotFound, "error", "Not found", "The page you are looking for does not exist.")
}

func ratingScale() []int {
	out := make([]int, 0, models.MaxRating-models.MinRating+1)
	for i := models.MinRating; i <= models.MaxRating; i++ {
		out = append(out, i)
	}
	return out
}

// score formats an average rating, or a dash when nobody rated yet.
func score(avg *float64) string {
	if avg == nil {
		return "–"
	}
	return strconv.FormatFloat(*avg, 'f', 1, 64)
}

// pageURL rewrites the page parameter of the current catalog query.
func pageURL(q url.Values, page int) string {
	next := url.Values{}
	for k, v := range q {
		next[k] = v
	}
	next.Set("page", strconv.Itoa(page))
	return "/anime?" + next.Encode()
}

// pageList returns the page numbers shown around current, at most two on
// each side.
func pageList(current, total int) []int {
	from, to := current-2, current+2
	if from < 1 {
		from = 1
	}
	if to > total {
		to = total
	}
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
