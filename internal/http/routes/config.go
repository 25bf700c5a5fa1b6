// Package routes provides shared route registration for the sp108ed HTTP API.
// Both the daemon and the OpenAPI generator use the same route definitions,
// so the published document always matches the server.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/sp108ed/internal/http/mw"
)

// NewHumaConfig creates the shared Huma configuration for the API.
func NewHumaConfig(version, baseURL string) huma.Config {
	cfg := huma.DefaultConfig("sp108ed API", version)
	cfg.Info.Description = "REST API for controlling an SP108E LED strip controller via the sp108ed daemon."

	// Disable $schema field in responses
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	// Mutating routes accept the key as a Bearer token or an X-API-Key header.
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:        "http",
			Scheme:      "bearer",
			Description: "API key authentication. Send `Authorization: Bearer <key>` or `X-API-Key: <key>`. Only enforced when the daemon has keys configured.",
		},
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Strip", Description: "Strip status, state and wiring"},
		{Name: "Logging", Description: "Runtime log level"},
	}

	return cfg
}
