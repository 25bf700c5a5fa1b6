package routes

import (
	"context"

	"github.com/jmylchreest/sp108ed/internal/http/handlers"
)

// Handlers aggregates all handler interfaces for route registration.
// For the daemon, pass real handler implementations.
// For OpenAPI generation, pass stub implementations.
type Handlers struct {
	HealthCheck  func(ctx context.Context, input *handlers.HealthInput) (*handlers.HealthOutput, error)
	VersionCheck func(ctx context.Context, input *handlers.VersionInput) (*handlers.VersionOutput, error)
	Strip        handlers.StripHandlers
	Logging      handlers.LoggingHandlers
}
