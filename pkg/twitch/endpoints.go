package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/subculture-collective/clipqueue/pkg/utils"
)

// GetClips fetches clip metadata by id from the Helix API. Used by internal/resolver's
// Twitch resolver to satisfy its resolve(url) contract.
func (c *Client) GetClips(ctx context.Context, params *ClipParams) (*ClipsResponse, error) {
	urlParams := url.Values{}

	for _, id := range params.ClipIDs {
		urlParams.Add("id", id)
	}
	if params.First > 0 {
		urlParams.Set("first", fmt.Sprintf("%d", params.First))
	}
	if params.After != "" {
		urlParams.Set("after", params.After)
	}

	resp, err := c.doRequest(ctx, "GET", "/clips", urlParams)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("clips request failed: %s", string(body)),
		}
	}

	var clipsResp ClipsResponse
	if err := json.NewDecoder(resp.Body).Decode(&clipsResp); err != nil {
		return nil, fmt.Errorf("failed to decode clips response: %w", err)
	}

	utils.GetLogger().Info("fetched clips", map[string]interface{}{"count": len(clipsResp.Data)})
	return &clipsResp, nil
}

// ValidateToken calls Twitch's OAuth validate endpoint for a given bearer token.
// internal/token runs its own validate request and does not call this method.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) (*ValidateResponse, error) {
	req, err := httpGetWithAuth(ctx, "https://id.twitch.tv/oauth2/validate", accessToken)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("validate failed: %s", string(body))}
	}

	var v ValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode validate response: %w", err)
	}
	return &v, nil
}

// GetUserByID fetches a single user record by id, used by internal/auth to populate a
// principal's display name and avatar after token validation.
func (c *Client) GetUserByID(ctx context.Context, userID string) (*User, error) {
	params := url.Values{}
	params.Set("id", userID)

	resp, err := c.doRequest(ctx, "GET", "/users", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("get user failed: %s", string(body))}
	}

	var users UsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("failed to decode users response: %w", err)
	}
	if len(users.Data) == 0 {
		return nil, &APIError{StatusCode: 404, Message: fmt.Sprintf("user %s not found", userID)}
	}
	return &users.Data[0], nil
}

// GetModerators fetches the full moderator list for a channel, paginating until exhausted.
// Used by internal/auth's role lookup.
func (c *Client) GetModerators(ctx context.Context, broadcasterID string) ([]Moderator, error) {
	var all []Moderator
	cursor := ""

	for {
		params := url.Values{}
		params.Set("broadcaster_id", broadcasterID)
		params.Set("first", "100")
		if cursor != "" {
			params.Set("after", cursor)
		}

		resp, err := c.doRequest(ctx, "GET", "/moderation/moderators", params)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != 200 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("get moderators failed: %s", string(body))}
		}

		var page ModeratorsResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode moderators response: %w", decodeErr)
		}

		all = append(all, page.Data...)
		if page.Pagination.Cursor == "" || page.Pagination.Cursor == cursor {
			break
		}
		cursor = page.Pagination.Cursor
	}

	return all, nil
}
