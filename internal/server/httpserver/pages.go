package httpserver

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/folioguard/internal/server/services"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{
	"login":           parsePage("login.html"),
	"change_password": parsePage("change_password.html"),
	"dashboard":       parsePage("dashboard.html"),
	"editor":          parsePage("editor.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

type pageData struct {
	Title      string
	Username   string
	MustChange bool
	Next       string
	Path       string
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		h.logger.Error(r.Context(), "render page failed", "page", page, "error", err)
	}
}

func (h *handlers) loginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", pageData{Title: "Sign in", Next: safeNext(r.URL.Query().Get("next"))})
}

func (h *handlers) changePasswordPage(w http.ResponseWriter, r *http.Request) {
	a := AccessFromContext(r.Context())
	h.render(w, r, "change_password", pageData{
		Title:      "Change password",
		Username:   a.Identity.Username,
		MustChange: a.State == services.StateMustChange,
	})
}

func (h *handlers) dashboardPage(w http.ResponseWriter, r *http.Request) {
	a := AccessFromContext(r.Context())
	h.render(w, r, "dashboard", pageData{Title: "Dashboard", Username: a.Identity.Username})
}

func (h *handlers) editorPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "editor", pageData{Title: "Content editor", Path: chi.URLParam(r, "*")})
}

// adminCatchAll sends /admin/<rest> to the editor at /keystatic/<rest>.
func (h *handlers) adminCatchAll(w http.ResponseWriter, r *http.Request) {
	target := "/keystatic"
	if rest := strings.Trim(chi.URLParam(r, "*"), "/"); rest != "" {
		target += "/" + rest
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
