package middleware

import (
	"log/slog"
	"slices"

	"classbook/internal/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewCORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	// The gateway identity and idempotency headers must stay allowed even
	// when the env overrides the default allow list.
	for _, h := range []string{HeaderTenantID, HeaderUserID, HeaderUserRole, "Idempotency-Key"} {
		if !slices.Contains(corsCfg.AllowHeaders, h) {
			corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, h)
		}
	}
	slog.Info("CORS middleware initialized", "AllowOrigins", cfg.AllowOrigins)
	return cors.New(corsCfg)
}
