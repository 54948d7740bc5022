package httpserver

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/folioguard/internal/logging"
	"github.com/dmitrijs2005/folioguard/internal/server/auth"
	"github.com/dmitrijs2005/folioguard/internal/server/content"
	"github.com/dmitrijs2005/folioguard/internal/server/metrics"
	"github.com/dmitrijs2005/folioguard/internal/server/models"
	"github.com/dmitrijs2005/folioguard/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Authenticator is the credential side of the admin use cases.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.Identity, error)
	ChangePassword(ctx context.Context, accountID, newPassword string) error
}

// AccessResolver turns session tokens into access states.
type AccessResolver interface {
	CurrentState(ctx context.Context, token string) (*services.Access, error)
	Establish(ctx context.Context, accountID string) (string, *auth.Session, error)
	Revoke(ctx context.Context, token string) error
}

// Options wires the router. Admins, Access and Content are required.
type Options struct {
	Admins  Authenticator
	Access  AccessResolver
	Content content.Store
	Metrics *metrics.Metrics
	Logger  logging.Logger
	Cookies CookieSettings
	// AllowedOrigins enables credentialed CORS for the API when set.
	AllowedOrigins []string
}

type handlers struct {
	admins  Authenticator
	access  AccessResolver
	content content.Store
	metrics *metrics.Metrics
	logger  logging.Logger
	cookies CookieSettings
}

// NewRouter assembles the chi router with shared middleware, the auth
// endpoints and the gated admin, editor and content routes.
func NewRouter(opts Options) chi.Router {
	h := &handlers{
		admins:  opts.Admins,
		access:  opts.Access,
		content: opts.Content,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		cookies: opts.Cookies,
	}
	if h.metrics == nil {
		h.metrics = metrics.New()
	}
	if h.logger == nil {
		h.logger = logging.Nop()
	}
	h.logger = h.logger.With("module", "http")

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.With(h.gate(classSessionAPI)).Get("/session", h.session)
		r.With(h.gate(classSessionAPI)).Post("/logout", h.logout)
		r.With(h.gate(classChangePasswordAPI)).Post("/change-password", h.changePassword)
	})

	r.With(h.gate(classLoginPage)).Get(loginPath, h.loginPage)
	r.With(h.gate(classChangePasswordPage)).Get(changePasswordPath, h.changePasswordPage)

	r.Group(func(r chi.Router) {
		r.Use(h.gate(classProtectedPage))
		r.Get(dashboardPath, h.dashboardPage)
		r.Get("/admin/*", h.adminCatchAll)
		r.Get("/keystatic", h.editorPage)
		r.Get("/keystatic/*", h.editorPage)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.gate(classProtectedAPI))
		r.Get("/api/admin/me", h.me)
		r.HandleFunc("/api/admin/*", notFound)
		r.Route("/api/keystatic", func(r chi.Router) {
			r.Get("/files", h.listFiles)
			r.Get("/files/*", h.getFile)
			r.Put("/files/*", h.putFile)
			r.Delete("/files/*", h.deleteFile)
			r.NotFound(notFound)
		})
	})

	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
