package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/subculture-collective/clipqueue/internal/auth"
	"github.com/subculture-collective/clipqueue/internal/models"
	pkgjwt "github.com/subculture-collective/clipqueue/pkg/jwt"
	"github.com/subculture-collective/clipqueue/pkg/twitch"
)

type fakeUpstream struct {
	user *twitch.User
}

func (f *fakeUpstream) GetUserByID(ctx context.Context, userID string) (*twitch.User, error) {
	return f.user, nil
}

func (f *fakeUpstream) GetModerators(ctx context.Context, broadcasterID string) ([]twitch.Moderator, error) {
	return nil, nil
}

func newTestResolver(t *testing.T, broadcasterID string) (*auth.Resolver, *pkgjwt.Manager) {
	t.Helper()
	priv, _, err := pkgjwt.GenerateRSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair: %v", err)
	}
	mgr, err := pkgjwt.NewManager(priv)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	r := auth.New(mgr, &fakeUpstream{user: &twitch.User{ID: broadcasterID, Login: "caster"}}, broadcasterID)
	t.Cleanup(r.Stop)
	return r, mgr
}

func newAuthRouter(resolver *auth.Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthContextMiddleware(resolver))
	r.GET("/public", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/mod", RequireRole(models.RoleModerator), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/broadcaster", RequireRole(models.RoleBroadcaster), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestRequireRoleRejectsAnonymous(t *testing.T) {
	resolver, _ := newTestResolver(t, "b1")
	r := newAuthRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/mod", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous caller, got %d", w.Code)
	}
}

func TestRequireRoleAllowsBroadcasterOnModeratorEndpoint(t *testing.T) {
	resolver, mgr := newTestResolver(t, "b1")
	r := newAuthRouter(resolver)

	token, err := mgr.GenerateAccessToken("b1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/mod", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected broadcaster to pass moderator gate, got %d", w.Code)
	}
}

func TestRequireRoleRejectsViewerOnBroadcasterEndpoint(t *testing.T) {
	resolver, mgr := newTestResolver(t, "b1")
	r := newAuthRouter(resolver)

	token, err := mgr.GenerateAccessToken("v1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/broadcaster", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-broadcaster, got %d", w.Code)
	}
}

func TestPublicEndpointAllowsAnonymous(t *testing.T) {
	resolver, _ := newTestResolver(t, "b1")
	r := newAuthRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected public endpoint to allow anonymous caller, got %d", w.Code)
	}
}

func TestExtractTokenPrefersAuthorizationHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "cookie-token"})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	if got := ExtractToken(c); got != "header-token" {
		t.Fatalf("expected header token preferred, got %q", got)
	}
}

func TestExtractTokenFallsBackToCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "cookie-token"})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	if got := ExtractToken(c); got != "cookie-token" {
		t.Fatalf("expected cookie fallback, got %q", got)
	}
}
