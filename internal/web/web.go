// Package web serves the public, unauthenticated HTML pages: the landing
// page, the open listings board and the points leaderboard.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/campuslink/platform/internal/app"
	"github.com/campuslink/platform/internal/app/domain/forum"
	"github.com/campuslink/platform/internal/app/domain/listing"
	"github.com/campuslink/platform/internal/app/domain/points"
	"github.com/campuslink/platform/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler renders the public pages.
type Handler struct {
	app       *app.Application
	templates *template.Template
	log       *logging.Logger
}

// NewHandler parses the embedded templates and returns the page router.
func NewHandler(application *app.Application, log *logging.Logger) (http.Handler, error) {
	if log == nil {
		log = logging.NewDefault("web")
	}
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	h := &Handler{app: application, templates: templates, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/pages", h.home).Methods(http.MethodGet)
	r.HandleFunc("/pages/listings", h.listings).Methods(http.MethodGet)
	r.HandleFunc("/pages/leaderboard", h.leaderboard).Methods(http.MethodGet)
	r.HandleFunc("/pages/boards", h.boards).Methods(http.MethodGet)
	return r, nil
}

func (h *Handler) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.log.WithError(err).WithField("template", name).Error("render failed")
	}
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, "home.html", nil)
}

func (h *Handler) listings(w http.ResponseWriter, r *http.Request) {
	open, err := h.app.Listings.Search(r.Context(), listing.Filter{
		Kind:   listing.Kind(r.URL.Query().Get("kind")),
		Status: listing.StatusOpen,
	})
	if err != nil {
		http.Error(w, "listings unavailable", http.StatusInternalServerError)
		return
	}
	h.render(w, "listings.html", struct {
		Listings []listing.Listing
	}{Listings: open})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.app.Points.Leaderboard(r.Context())
	if err != nil {
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	h.render(w, "leaderboard.html", struct {
		Entries []points.LeaderboardEntry
	}{Entries: entries})
}

func (h *Handler) boards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.app.Forums.Boards(r.Context())
	if err != nil {
		http.Error(w, "boards unavailable", http.StatusInternalServerError)
		return
	}
	h.render(w, "boards.html", struct {
		Boards []forum.Board
	}{Boards: boards})
}
