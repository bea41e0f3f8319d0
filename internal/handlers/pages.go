package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/models"
	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// PageHandler renders the two HTML pages of the panel
type PageHandler struct {
	templates *template.Template
	schedule  ScheduleServiceInterface
	logger    *slog.Logger
}

// NewPageHandler parses the embedded templates
func NewPageHandler(schedule ScheduleServiceInterface, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
		schedule:  schedule,
		logger:    logger,
	}
}

type homePage struct {
	Info     models.ScheduleInfo
	Username string
}

type loginPage struct {
	Title string
}

// Home renders the backup list shell
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, "home.html", homePage{
		Info:     h.schedule.Info(),
		Username: auth.UsernameFromContext(r.Context()),
	})
}

// Login renders the login form
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", loginPage{Title: h.schedule.Info().Title})
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render page", slog.String("template", name), slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// StaticFiles serves the embedded scripts under /static/
func StaticFiles() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
