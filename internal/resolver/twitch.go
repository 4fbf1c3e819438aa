package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/subculture-collective/clipqueue/pkg/twitch"
)

// TwitchResolver resolves clips.twitch.tv and twitch.tv/<channel>/clip/<slug> URLs via the
// Helix API (pkg/twitch).
type TwitchResolver struct {
	client *twitch.Client
}

func NewTwitchResolver(client *twitch.Client) *TwitchResolver {
	return &TwitchResolver{client: client}
}

func (r *TwitchResolver) Platform() string { return "twitch" }

// Detect structurally parses the URL and matches hostnames rather than doing a plain
// substring check.
func (r *TwitchResolver) Detect(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Host)

	if host == "clips.twitch.tv" {
		slug := strings.Trim(u.Path, "/")
		if slug == "" {
			return "", false
		}
		return slug, true
	}

	if host == "www.twitch.tv" || host == "twitch.tv" || host == "m.twitch.tv" {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i, p := range parts {
			if p == "clip" && i+1 < len(parts) {
				return parts[i+1], true
			}
		}
	}

	return "", false
}

func (r *TwitchResolver) Resolve(ctx context.Context, rawURL string) (*Clip, error) {
	id, ok := r.Detect(rawURL)
	if !ok {
		return nil, &NonRecoverableError{Err: fmt.Errorf("twitch: not a twitch clip url: %s", rawURL)}
	}

	if cached, err := r.client.GetCachedClip(ctx, id); err == nil && cached != nil {
		return fromTwitchClip(cached), nil
	}

	resp, err := r.client.GetClips(ctx, &twitch.ClipParams{ClipIDs: []string{id}})
	if err != nil {
		if apiErr, ok := asAPIError(err); ok && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return nil, &NonRecoverableError{Err: err}
		}
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, &NonRecoverableError{Err: fmt.Errorf("twitch: clip %s not found", id)}
	}

	clip := resp.Data[0]
	_ = r.client.CacheClip(ctx, &clip, time.Hour)
	return fromTwitchClip(&clip), nil
}

func fromTwitchClip(c *twitch.Clip) *Clip {
	return &Clip{
		Platform:     "twitch",
		ClipID:       c.ID,
		URL:          c.URL,
		EmbedURL:     c.EmbedURL,
		ThumbnailURL: c.ThumbnailURL,
		Title:        c.Title,
		Channel:      c.BroadcasterName,
		Creator:      c.CreatorName,
		Category:     c.GameID,
		CreatedAt:    c.CreatedAt,
	}
}

func asAPIError(err error) (*twitch.APIError, bool) {
	apiErr, ok := err.(*twitch.APIError)
	return apiErr, ok
}
