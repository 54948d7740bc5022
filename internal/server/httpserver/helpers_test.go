package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/folioguard/internal/cryptox"
	"github.com/dmitrijs2005/folioguard/internal/dbx"
	"github.com/dmitrijs2005/folioguard/internal/server/auth"
	"github.com/dmitrijs2005/folioguard/internal/server/content"
	"github.com/dmitrijs2005/folioguard/internal/server/metrics"
	"github.com/dmitrijs2005/folioguard/internal/server/models"
	"github.com/dmitrijs2005/folioguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/folioguard/internal/server/services"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// stack is a router backed by real services on a migrated SQLite store.
type stack struct {
	admins  *services.AdminService
	access  *services.AccessService
	content *content.MemoryStore
	metrics *metrics.Metrics
	router  http.Handler
	db      *sql.DB
	m       repomanager.RepositoryManager
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, _, err := dbx.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, m.RunMigrations(ctx, db))

	hasher := cryptox.NewHasher(cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	admins, err := services.NewAdminService(db, m, hasher)
	require.NoError(t, err)
	access := services.NewAccessService(db, m, auth.NewJWTIssuer([]byte("test-secret"), time.Hour))

	s := &stack{
		admins:  admins,
		access:  access,
		content: content.NewMemoryStore(),
		metrics: metrics.New(),
		db:      db,
		m:       m,
	}
	s.router = NewRouter(Options{
		Admins:  admins,
		Access:  access,
		Content: s.content,
		Metrics: s.metrics,
		Cookies: CookieSettings{MaxAge: time.Hour},
	})
	return s
}

func (s *stack) seedLegacyAdmin(t *testing.T) *models.Identity {
	t.Helper()
	id, err := s.admins.CreateAdmin(context.Background(), services.NewAdminInput{
		Username: "admin",
		Password: "admin",
		Legacy:   true,
	})
	require.NoError(t, err)
	return id
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(method, path, body string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(method, b.base+path, strings.NewReader(body))
	require.NoError(b.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(data)
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

// fakeAdmins and fakeAccess drive the handlers into paths that a real store
// cannot reach on demand.
type fakeAdmins struct {
	identity  *models.Identity
	authErr   error
	changeErr error
	changed   []string
}

func (f *fakeAdmins) Authenticate(context.Context, string, string) (*models.Identity, error) {
	return f.identity, f.authErr
}

func (f *fakeAdmins) ChangePassword(_ context.Context, accountID, _ string) error {
	f.changed = append(f.changed, accountID)
	return f.changeErr
}

type fakeAccess struct {
	access       *services.Access
	stateErr     error
	establishErr error
	revokeErr    error
	revoked      []string
	established  []string
}

func (f *fakeAccess) CurrentState(context.Context, string) (*services.Access, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	if f.access == nil {
		return &services.Access{State: services.StateAnonymous}, nil
	}
	return f.access, nil
}

func (f *fakeAccess) Establish(_ context.Context, accountID string) (string, *auth.Session, error) {
	if f.establishErr != nil {
		return "", nil, f.establishErr
	}
	f.established = append(f.established, accountID)
	return "token-" + accountID, &auth.Session{AccountID: accountID}, nil
}

func (f *fakeAccess) Revoke(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

func clearAccess() *services.Access {
	return &services.Access{
		State:    services.StateClear,
		Identity: &models.Identity{ID: "acc-1", Username: "admin", IsAdmin: true},
	}
}

func fakeRouter(admins *fakeAdmins, access *fakeAccess, store content.Store) http.Handler {
	if store == nil {
		store = content.NewMemoryStore()
	}
	return NewRouter(Options{
		Admins:  admins,
		Access:  access,
		Content: store,
		Cookies: CookieSettings{MaxAge: time.Hour},
	})
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "admin_session" {
			return c
		}
	}
	return nil
}
