package httpserver

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/folioguard/internal/server/services"
)

const (
	loginPath          = "/admin/login"
	changePasswordPath = "/admin/change-password"
	dashboardPath      = "/admin"
)

// routeClass decides what the gate does with each access state.
type routeClass int

const (
	classLoginPage routeClass = iota
	classSessionAPI
	classChangePasswordPage
	classChangePasswordAPI
	classProtectedPage
	classProtectedAPI
)

func (c routeClass) String() string {
	switch c {
	case classLoginPage:
		return "login_page"
	case classSessionAPI:
		return "session_api"
	case classChangePasswordPage:
		return "change_password_page"
	case classChangePasswordAPI:
		return "change_password_api"
	case classProtectedPage:
		return "protected_page"
	default:
		return "protected_api"
	}
}

func (c routeClass) isAPI() bool {
	return c == classSessionAPI || c == classChangePasswordAPI || c == classProtectedAPI
}

type accessKey struct{}

func withAccess(ctx context.Context, a *services.Access) context.Context {
	return context.WithValue(ctx, accessKey{}, a)
}

// AccessFromContext returns the access state resolved by the gate, or an
// anonymous one outside gated routes.
func AccessFromContext(ctx context.Context) *services.Access {
	if a, ok := ctx.Value(accessKey{}).(*services.Access); ok {
		return a
	}
	return &services.Access{State: services.StateAnonymous}
}

// gate resolves the session cookie into an access state and applies the
// policy of class before the wrapped handler runs.
func (h *handlers) gate(class routeClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			access, err := h.access.CurrentState(ctx, sessionToken(r))
			if err != nil {
				h.logger.Error(ctx, "resolve session failed", "error", err, "class", class.String())
				if class.isAPI() {
					writeError(w, http.StatusInternalServerError, "Internal error")
				} else {
					http.Error(w, "Internal error", http.StatusInternalServerError)
				}
				return
			}
			if access.Stale {
				h.cookies.clear(w)
			}
			h.metrics.GateDecision(access.State.String(), class.String())

			r = r.WithContext(withAccess(ctx, access))

			switch class {
			case classLoginPage:
				if access.State == services.StateClear {
					http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
					return
				}
			case classChangePasswordPage:
				if access.State == services.StateAnonymous {
					redirectToLogin(w, r)
					return
				}
			case classChangePasswordAPI:
				if access.State == services.StateAnonymous {
					writeError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
			case classProtectedPage:
				switch access.State {
				case services.StateAnonymous:
					redirectToLogin(w, r)
					return
				case services.StateMustChange:
					http.Redirect(w, r, changePasswordPath, http.StatusSeeOther)
					return
				}
			case classProtectedAPI:
				switch access.State {
				case services.StateAnonymous:
					writeError(w, http.StatusUnauthorized, "Unauthorized")
					return
				case services.StateMustChange:
					writeJSON(w, http.StatusForbidden, errorBody{
						Error: "Password change required",
						Code:  "PASSWORD_CHANGE_REQUIRED",
					})
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeNext accepts only local absolute paths as post-login targets.
// Browsers drop tabs and newlines and read backslashes as slashes, so
// "/\t/host" and "/\\host" would leave the site.
func safeNext(next string) string {
	if strings.IndexFunc(next, func(r rune) bool { return r < 0x20 || r == 0x7f || r == '\\' }) >= 0 {
		return dashboardPath
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return dashboardPath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return dashboardPath
	}
	return next
}
