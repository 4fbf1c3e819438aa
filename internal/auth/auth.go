// Package auth implements principal resolution from a cookie bearer token, with a token
// cache (≤5 min) and a per-(userId, channel) role cache (≤2 min), both self-cleaning. The
// JWT authenticates a session referencing the upstream viewer's identity rather than
// minting its own user database record.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/subculture-collective/clipqueue/internal/models"
	pkgjwt "github.com/subculture-collective/clipqueue/pkg/jwt"
	"github.com/subculture-collective/clipqueue/pkg/twitch"
)

// UserFetcher fetches a user's display record from the upstream platform.
type UserFetcher interface {
	GetUserByID(ctx context.Context, userID string) (*twitch.User, error)
}

// ModeratorLister fetches the current moderator list for the configured channel.
type ModeratorLister interface {
	GetModerators(ctx context.Context, broadcasterID string) ([]twitch.Moderator, error)
}

// Upstream is the combined contract the Resolver talks to; satisfied directly by
// *twitch.Client with no adapter needed.
type Upstream interface {
	UserFetcher
	ModeratorLister
}

// ErrUnauthenticated is returned when the cookie token is missing, malformed, or expired.
var ErrUnauthenticated = errors.New("auth: token absent or invalid")

type roleEntry struct {
	isModerator   bool
	isBroadcaster bool
}

// Resolver resolves principals from cookie bearer tokens and caches the result via the
// four-step lookup described on ResolvePrincipal.
type Resolver struct {
	jwtManager    *pkgjwt.Manager
	upstream      Upstream
	broadcasterID string

	principals *cache[*models.Principal]
	roles      *cache[roleEntry]
}

// New constructs a Resolver. broadcasterID is the channel's upstream user id, compared
// against a resolved principal's userId to determine broadcaster status.
func New(jwtManager *pkgjwt.Manager, upstream Upstream, broadcasterID string) *Resolver {
	return &Resolver{
		jwtManager:    jwtManager,
		upstream:      upstream,
		broadcasterID: broadcasterID,
		principals:    newCache[*models.Principal](PrincipalCacheTTL),
		roles:         newCache[roleEntry](RoleCacheTTL),
	}
}

// Stop halts both caches' background sweepers. Call once on shutdown.
func (r *Resolver) Stop() {
	r.principals.Stop()
	r.roles.Stop()
}

// ResolvePrincipal runs the four-step lookup: token cache, JWT validation + user-record
// fetch, role lookup (cached separately per userId+channel), then principal cache.
func (r *Resolver) ResolvePrincipal(ctx context.Context, token string) (*models.Principal, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	if p, ok := r.principals.Get(token); ok {
		return p, nil
	}

	claims, err := r.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	userID := claims.UserID

	user, err := r.upstream.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth: fetch user record: %w", err)
	}

	role, err := r.resolveRole(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve role: %w", err)
	}

	principal := &models.Principal{
		UserID:          userID,
		Username:        user.Login,
		DisplayName:     user.DisplayName,
		ProfileImageURL: user.ProfileImageURL,
		IsBroadcaster:   role.isBroadcaster,
		IsModerator:     role.isModerator,
	}

	r.principals.Set(token, principal)
	return principal, nil
}

func (r *Resolver) resolveRole(ctx context.Context, userID string) (roleEntry, error) {
	if role, ok := r.roles.Get(userID); ok {
		return role, nil
	}

	role := roleEntry{isBroadcaster: r.broadcasterID != "" && userID == r.broadcasterID}
	if !role.isBroadcaster {
		mods, err := r.upstream.GetModerators(ctx, r.broadcasterID)
		if err != nil {
			return roleEntry{}, err
		}
		for _, m := range mods {
			if m.UserID == userID {
				role.isModerator = true
				break
			}
		}
	}

	r.roles.Set(userID, role)
	return role, nil
}

// InvalidateToken clears one cached principal (logout).
func (r *Resolver) InvalidateToken(token string) { r.principals.Delete(token) }

// InvalidateRole clears one cached (userId) role entry.
func (r *Resolver) InvalidateRole(userID string) { r.roles.Delete(userID) }

// InvalidateAll clears every cached principal and role (admin cache-clear endpoint).
func (r *Resolver) InvalidateAll() {
	r.principals.Clear()
	r.roles.Clear()
}

// Stats reports the number of cached entries, for the cache-stats admin endpoint.
func (r *Resolver) Stats() (tokens int, roles int) {
	return r.principals.Len(), r.roles.Len()
}
