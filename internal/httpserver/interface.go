// Package httpserver defines the surface the serve command needs from an HTTP
// server, so the command can be exercised without binding a port.
package httpserver

import (
	"context"

	api "github.com/friendswall/friendswall-go/internal/api/v2"
)

// Server defines the interface for HTTP servers in FriendsWall.
// api.Server implements it.
type Server interface {
	// Run serves until ctx is cancelled and then shuts down gracefully.
	Run(ctx context.Context) error

	// Shutdown gracefully stops the server and releases resources.
	Shutdown() error

	// APIController returns the v2 API controller.
	// Returns nil if the API controller is not initialized.
	APIController() *api.Controller
}
