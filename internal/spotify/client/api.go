package client

import (
	"context"
	"fmt"
	"net/url"
)

// GetCurrentUser returns the current user's profile.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.Get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetDevices returns the user's available playback devices.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	var resp DevicesResponse
	if err := c.Get(ctx, "/me/player/devices", &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// GetPlaybackState returns the current playback state, or nil when no
// device is playing anything.
func (c *Client) GetPlaybackState(ctx context.Context) (*PlaybackState, error) {
	var state *PlaybackState
	if err := c.Get(ctx, "/me/player", &state); err != nil {
		return nil, err
	}
	return state, nil
}

// GetTrack returns catalog information for a track ID.
func (c *Client) GetTrack(ctx context.Context, id string) (*Track, error) {
	if id == "" {
		return nil, fmt.Errorf("track ID cannot be empty")
	}
	var track Track
	if err := c.Get(ctx, "/tracks/"+url.PathEscape(id), &track); err != nil {
		return nil, err
	}
	return &track, nil
}
