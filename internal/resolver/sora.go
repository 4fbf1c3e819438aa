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

// soraAPIBase is the public metadata endpoint for shared Sora generations.
const soraAPIBase = "https://sora.chatgpt.com/api/share"

// SoraResolver resolves sora.chatgpt.com/g/<id> share URLs against its public
// share-metadata endpoint, following the same plain JSON-over-net/http idiom as
// KickResolver.
type SoraResolver struct {
	httpClient *http.Client
}

func NewSoraResolver() *SoraResolver {
	return &SoraResolver{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (r *SoraResolver) Platform() string { return "sora" }

func (r *SoraResolver) Detect(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Host)
	if host != "sora.chatgpt.com" {
		return "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "g" && i+1 < len(parts) {
			return parts[i+1], true
		}
	}
	return "", false
}

type soraShareResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	VideoURL     string `json:"video_url"`
	Author       string `json:"author_username"`
	CreatedAt    string `json:"created_at"`
}

func (r *SoraResolver) Resolve(ctx context.Context, rawURL string) (*Clip, error) {
	id, ok := r.Detect(rawURL)
	if !ok {
		return nil, &NonRecoverableError{Err: fmt.Errorf("sora: not a sora share url: %s", rawURL)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", soraAPIBase, id), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("sora: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sora: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NonRecoverableError{Err: fmt.Errorf("sora: share %s not found", id)}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return nil, &NonRecoverableError{Err: fmt.Errorf("sora: share %s rejected with status %d", id, resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sora: share %s fetch failed with status %d", id, resp.StatusCode)
	}

	var body soraShareResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("sora: decode response: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339, body.CreatedAt)

	return &Clip{
		Platform:     "sora",
		ClipID:       id,
		URL:          rawURL,
		VideoURL:     body.VideoURL,
		ThumbnailURL: body.ThumbnailURL,
		Title:        body.Title,
		Creator:      body.Author,
		CreatedAt:    createdAt,
	}, nil
}
