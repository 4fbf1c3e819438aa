package twitch

import "time"

// ClipParams contains parameters for fetching clips
type ClipParams struct {
	ClipIDs []string
	First   int    // Max 100
	After   string // Pagination cursor
}

// Clip represents a Twitch clip from the Helix API
type Clip struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	EmbedURL        string    `json:"embed_url"`
	BroadcasterID   string    `json:"broadcaster_id"`
	BroadcasterName string    `json:"broadcaster_name"`
	CreatorID       string    `json:"creator_id"`
	CreatorName     string    `json:"creator_name"`
	VideoID         string    `json:"video_id"`
	GameID          string    `json:"game_id"`
	Language        string    `json:"language"`
	Title           string    `json:"title"`
	ViewCount       int       `json:"view_count"`
	CreatedAt       time.Time `json:"created_at"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	Duration        float64   `json:"duration"`
}

// ClipsResponse represents the response from the clips endpoint
type ClipsResponse struct {
	Data       []Clip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination contains cursor information for paginated responses
type Pagination struct {
	Cursor string `json:"cursor"`
}

// ValidateResponse represents the response from Twitch's OAuth validate endpoint,
// as decoded by Client.ValidateToken.
type ValidateResponse struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// User represents a Twitch user record, used by internal/auth to populate a viewer
// principal's display name and avatar.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// UsersResponse represents the response from the users endpoint.
type UsersResponse struct {
	Data []User `json:"data"`
}

// Moderator represents one entry in the channel moderator list, used by internal/auth's
// role lookup.
type Moderator struct {
	UserID    string `json:"user_id"`
	UserLogin string `json:"user_login"`
}

// ModeratorsResponse represents the response from the moderation/moderators endpoint.
type ModeratorsResponse struct {
	Data       []Moderator `json:"data"`
	Pagination Pagination  `json:"pagination"`
}
