package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// kickAPIBase is Kick's public clip metadata endpoint.
const kickAPIBase = "https://kick.com/api/v2/clips"

// KickResolver resolves kick.com/<channel>/clips/<slug> URLs against Kick's public API.
// Kick has no official Go SDK in the reference corpus, so this talks plain JSON over
// net/http in the same doRequest idiom pkg/twitch uses for Helix.
type KickResolver struct {
	httpClient *http.Client
}

func NewKickResolver() *KickResolver {
	return &KickResolver{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (r *KickResolver) Platform() string { return "kick" }

func (r *KickResolver) Detect(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Host)
	if host != "kick.com" && host != "www.kick.com" {
		return "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "clips" && i+1 < len(parts) {
			return parts[i+1], true
		}
	}
	return "", false
}

type kickClipResponse struct {
	Clip struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		ThumbnailURL string `json:"thumbnail_url"`
		VideoURL     string `json:"video_url"`
		Channel      struct {
			Slug string `json:"slug"`
		} `json:"channel"`
		Creator struct {
			Username string `json:"username"`
		} `json:"creator"`
		Category struct {
			Name string `json:"name"`
		} `json:"category"`
	} `json:"clip"`
}

func (r *KickResolver) Resolve(ctx context.Context, rawURL string) (*Clip, error) {
	id, ok := r.Detect(rawURL)
	if !ok {
		return nil, &NonRecoverableError{Err: fmt.Errorf("kick: not a kick clip url: %s", rawURL)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", kickAPIBase, id), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("kick: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kick: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NonRecoverableError{Err: fmt.Errorf("kick: clip %s not found", id)}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return nil, &NonRecoverableError{Err: fmt.Errorf("kick: clip %s rejected with status %d", id, resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kick: clip %s fetch failed with status %d", id, resp.StatusCode)
	}

	var body kickClipResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("kick: decode response: %w", err)
	}

	return &Clip{
		Platform:     "kick",
		ClipID:       id,
		URL:          rawURL,
		VideoURL:     body.Clip.VideoURL,
		ThumbnailURL: body.Clip.ThumbnailURL,
		Title:        body.Clip.Title,
		Channel:      body.Clip.Channel.Slug,
		Creator:      body.Clip.Creator.Username,
		Category:     body.Clip.Category.Name,
	}, nil
}
