package web

import (
	"net/http"

	"github.com/znwiqn/anidao/internal/models"
	"github.com/znwiqn/anidao/internal/services"
)

// AdminDashboardData backs /admin.
type AdminDashboardData struct {
	Stats    *models.SiteStats
	Services []services.ServiceStatus
}

type AdminAnimeData struct {
	Anime      []models.AnimeSummary
	Pagination models.Pagination
	MediaHost  string
}

type AdminTelegramData struct {
	WebhookURL string
	MediaHost  string
}

func (p *Pages) adminDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	stats, err := p.Stats.Stats(r.Context())
	if err != nil {
		p.fail(w, r, err)
		return
	}
	data := AdminDashboardData{Stats: stats}
	if p.Services != nil {
		data.Services = p.Services.GetAllStatus()
	}
	p.render(w, r, http.StatusOK, "admin", "Admin", data)
}

func (p *Pages) adminAnime(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	filter := models.ParseAnimeFilter(r.URL.Query())
	anime, total, err := p.Catalog.List(r.Context(), filter)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "admin_anime", "Manage anime", AdminAnimeData{
		Anime:      anime,
		Pagination: models.NewPagination(total, filter.Page, filter.Limit),
		MediaHost:  p.MediaHost,
	})
}

func (p *Pages) adminAnimeNew(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	p.render(w, r, http.StatusOK, "admin_anime_new", "Add anime", nil)
}

func (p *Pages) adminTelegram(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	p.render(w, r, http.StatusOK, "admin_telegram", "Telegram bot", AdminTelegramData{
		WebhookURL: p.WebhookURL,
		MediaHost:  p.MediaHost,
	})
}
