package core

import "context"

// RemotePlayer is the transport behind the mixer's single remote binding.
// Every call may block on the network.
type RemotePlayer interface {
	// Connect prepares the session and reports what the account may do.
	Connect(ctx context.Context) (Capabilities, error)

	// Transport control
	PlayTrack(ctx context.Context, uri string, positionMs int) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Seek(ctx context.Context, positionMs int) error

	// Volume control (0-100)
	Volume(ctx context.Context, percent int) error

	// GetState returns nil when nothing is loaded on the remote player.
	GetState(ctx context.Context) (*PlaybackState, error)
}
