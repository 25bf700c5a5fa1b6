package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/sp108ed/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
func Register(api huma.API, h *Handlers) {
	// --- Health ---
	mw.Get(api, "/api/v1/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithDescription("Returns service health status. Does not contact the controller."),
		mw.WithOperationID("healthCheck"))

	mw.HiddenGet(api, "/healthz", h.HealthCheck)

	// --- Version ---
	mw.Get(api, "/api/v1/version", h.VersionCheck,
		mw.WithTags("Version"),
		mw.WithSummary("Daemon version"),
		mw.WithDescription("Returns the running daemon's version, commit, and build date."),
		mw.WithOperationID("getVersion"))

	// --- Strip ---
	mw.Get(api, "/api/v1/strip", h.Strip.GetStrip,
		mw.WithTags("Strip"),
		mw.WithSummary("Get strip status"),
		mw.WithDescription("Returns the cached controller status. Set refresh=true to query the controller."),
		mw.WithOperationID("getStrip"))

	mw.ProtectedPost(api, "/api/v1/strip/state", h.Strip.SetStripState,
		mw.WithTags("Strip"),
		mw.WithSummary("Set strip state"),
		mw.WithDescription("Set power, colour, brightness, speed or animation. Fields are applied in order and the first failure aborts the rest."),
		mw.WithOperationID("setStripState"))

	mw.ProtectedPut(api, "/api/v1/strip/config", h.Strip.ConfigureStrip,
		mw.WithTags("Strip"),
		mw.WithSummary("Configure strip wiring"),
		mw.WithDescription("Set chip type, colour order, segment count and LEDs per segment."),
		mw.WithOperationID("configureStrip"))

	mw.Get(api, "/api/v1/strip/options", h.Strip.GetOptions,
		mw.WithTags("Strip"),
		mw.WithSummary("List accepted names"),
		mw.WithDescription("Returns the chip types, colour orders and animation names the controller understands."),
		mw.WithOperationID("getStripOptions"))

	// --- Logging ---
	mw.Get(api, "/api/v1/logging/level", h.Logging.GetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Get global log level"),
		mw.WithOperationID("getLogLevel"))

	mw.ProtectedPut(api, "/api/v1/logging/level", h.Logging.SetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Set global log level"),
		mw.WithDescription("Changes the global log level at runtime. Valid values: debug, info, warn, error."),
		mw.WithOperationID("setLogLevel"))
}
