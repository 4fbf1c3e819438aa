package auth

import (
	"context"
	"testing"

	pkgjwt "github.com/subculture-collective/clipqueue/pkg/jwt"
	"github.com/subculture-collective/clipqueue/pkg/twitch"
)

type fakeUpstream struct {
	users      map[string]*twitch.User
	moderators []twitch.Moderator
	userCalls  int
	modCalls   int
}

func (f *fakeUpstream) GetUserByID(ctx context.Context, userID string) (*twitch.User, error) {
	f.userCalls++
	u, ok := f.users[userID]
	if !ok {
		return nil, errNotFound
	}
	return u, nil
}

func (f *fakeUpstream) GetModerators(ctx context.Context, broadcasterID string) ([]twitch.Moderator, error) {
	f.modCalls++
	return f.moderators, nil
}

var errNotFound = &testErr{"user not found"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func newTestManager(t *testing.T) *pkgjwt.Manager {
	t.Helper()
	priv, _, err := pkgjwt.GenerateRSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair: %v", err)
	}
	mgr, err := pkgjwt.NewManager(priv)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func TestResolvePrincipalBroadcaster(t *testing.T) {
	mgr := newTestManager(t)
	upstream := &fakeUpstream{
		users: map[string]*twitch.User{
			"b1": {ID: "b1", Login: "caster", DisplayName: "Caster", ProfileImageURL: "http://img"},
		},
	}
	r := New(mgr, upstream, "b1")
	t.Cleanup(r.Stop)

	token, err := mgr.GenerateAccessToken("b1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	p, err := r.ResolvePrincipal(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolvePrincipal: %v", err)
	}
	if !p.IsBroadcaster {
		t.Fatalf("expected broadcaster")
	}
	if p.Username != "caster" {
		t.Fatalf("expected username caster, got %s", p.Username)
	}
}

func TestResolvePrincipalModerator(t *testing.T) {
	mgr := newTestManager(t)
	upstream := &fakeUpstream{
		users: map[string]*twitch.User{
			"m1": {ID: "m1", Login: "mod", DisplayName: "Mod"},
		},
		moderators: []twitch.Moderator{{UserID: "m1", UserLogin: "mod"}},
	}
	r := New(mgr, upstream, "b1")
	t.Cleanup(r.Stop)

	token, _ := mgr.GenerateAccessToken("m1", "")
	p, err := r.ResolvePrincipal(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolvePrincipal: %v", err)
	}
	if !p.IsModerator || p.IsBroadcaster {
		t.Fatalf("expected moderator, not broadcaster, got %+v", p)
	}
}

func TestResolvePrincipalRegularViewer(t *testing.T) {
	mgr := newTestManager(t)
	upstream := &fakeUpstream{
		users: map[string]*twitch.User{"v1": {ID: "v1", Login: "viewer"}},
	}
	r := New(mgr, upstream, "b1")
	t.Cleanup(r.Stop)

	token, _ := mgr.GenerateAccessToken("v1", "")
	p, err := r.ResolvePrincipal(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolvePrincipal: %v", err)
	}
	if p.IsModerator || p.IsBroadcaster {
		t.Fatalf("expected regular viewer, got %+v", p)
	}
}

func TestResolvePrincipalEmptyTokenFails(t *testing.T) {
	mgr := newTestManager(t)
	r := New(mgr, &fakeUpstream{}, "b1")
	t.Cleanup(r.Stop)

	if _, err := r.ResolvePrincipal(context.Background(), ""); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestResolvePrincipalInvalidTokenFails(t *testing.T) {
	mgr := newTestManager(t)
	r := New(mgr, &fakeUpstream{}, "b1")
	t.Cleanup(r.Stop)

	if _, err := r.ResolvePrincipal(context.Background(), "not-a-jwt"); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestResolvePrincipalUsesTokenCacheOnSecondCall(t *testing.T) {
	mgr := newTestManager(t)
	upstream := &fakeUpstream{
		users: map[string]*twitch.User{"b1": {ID: "b1", Login: "caster"}},
	}
	r := New(mgr, upstream, "b1")
	t.Cleanup(r.Stop)

	token, _ := mgr.GenerateAccessToken("b1", "")
	if _, err := r.ResolvePrincipal(context.Background(), token); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := r.ResolvePrincipal(context.Background(), token); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if upstream.userCalls != 1 {
		t.Fatalf("expected upstream fetched once (cached second time), got %d calls", upstream.userCalls)
	}
}

func TestResolvePrincipalUsesRoleCacheAcrossDifferentTokens(t *testing.T) {
	mgr := newTestManager(t)
	upstream := &fakeUpstream{
		users: map[string]*twitch.User{"m1": {ID: "m1", Login: "mod"}},
		moderators: []twitch.Moderator{{UserID: "m1"}},
	}
	r := New(mgr, upstream, "b1")
	t.Cleanup(r.Stop)

	tokenA, _ := mgr.GenerateAccessToken("m1", "")
	if _, err := r.ResolvePrincipal(context.Background(), tokenA); err != nil {
		t.Fatalf("resolve A: %v", err)
	}

	r.InvalidateToken(tokenA)
	tokenB, _ := mgr.GenerateAccessToken("m1", "")
	if _, err := r.ResolvePrincipal(context.Background(), tokenB); err != nil {
		t.Fatalf("resolve B: %v", err)
	}

	if upstream.modCalls != 1 {
		t.Fatalf("expected moderator list fetched once (role cached), got %d calls", upstream.modCalls)
	}
}

func TestInvalidateAllClearsBothCaches(t *testing.T) {
	mgr := newTestManager(t)
	upstream := &fakeUpstream{users: map[string]*twitch.User{"b1": {ID: "b1", Login: "caster"}}}
	r := New(mgr, upstream, "b1")
	t.Cleanup(r.Stop)

	token, _ := mgr.GenerateAccessToken("b1", "")
	if _, err := r.ResolvePrincipal(context.Background(), token); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	r.InvalidateAll()
	tokens, roles := r.Stats()
	if tokens != 0 || roles != 0 {
		t.Fatalf("expected caches empty after InvalidateAll, got tokens=%d roles=%d", tokens, roles)
	}
}
