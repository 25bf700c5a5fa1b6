package mw

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/sp108ed/internal/apikey"
	"github.com/jmylchreest/sp108ed/internal/config"
)

// APIKeyHeader is the fallback header for clients that can't send Authorization.
const APIKeyHeader = "X-API-Key"

// KeyValidator checks presented API keys. *apikey.Manager satisfies it.
type KeyValidator interface {
	Enabled() bool
	ValidateAPIKey(key string) (config.APIKey, error)
}

var _ KeyValidator = (*apikey.Manager)(nil)

// HumaAuth returns a Huma middleware that enforces API keys on operations
// registered with a Security requirement. Operations without one, and every
// operation while no keys are configured, pass through.
func HumaAuth(api huma.API, logger *slog.Logger, keys KeyValidator) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op == nil || len(op.Security) == 0 || !keys.Enabled() {
			next(ctx)
			return
		}

		key := extractKey(ctx.Header("Authorization"), ctx.Header(APIKeyHeader))
		if key == "" {
			logger.Warn("API key missing",
				"method", ctx.Method(),
				"path", op.Path,
				"remote_addr", ctx.RemoteAddr(),
			)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "API key required")
			return
		}

		k, err := keys.ValidateAPIKey(key)
		if err != nil {
			logger.Warn("invalid API key used",
				"key_prefix", apikey.Prefix(key),
				"error", err,
				"method", ctx.Method(),
				"path", op.Path,
				"remote_addr", ctx.RemoteAddr(),
			)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, err.Error())
			return
		}

		logger.Debug("authenticated API key", "name", k.Name, "key_prefix", apikey.Prefix(k.Key))
		next(ctx)
	}
}

// extractKey prefers a Bearer token and falls back to the X-API-Key value.
func extractKey(authorization, apiKey string) string {
	const bearerPrefix = "Bearer "
	if strings.HasPrefix(authorization, bearerPrefix) {
		return strings.TrimSpace(authorization[len(bearerPrefix):])
	}
	return strings.TrimSpace(apiKey)
}
