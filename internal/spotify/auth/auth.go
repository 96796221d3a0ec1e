// Package auth loads and refreshes the Spotify access token riffdeck uses.
// Obtaining the first token is left to whatever wrote the token file.
package auth

import "context"

// SpotifyTokenURL is the Spotify token endpoint.
const SpotifyTokenURL = "https://accounts.spotify.com/api/token"

// RequiredScopes are the scopes the token must carry to drive a player.
var RequiredScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-private",
}

// RefreshFunc exchanges a refresh token for a new access token.
type RefreshFunc func(ctx context.Context, clientID, refreshToken string) (*Token, error)
