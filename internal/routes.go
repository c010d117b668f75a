package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "shoplens/api/v1"
	"shoplens/internal/config"
	"shoplens/internal/http"
)

// publicCORSConfig returns the standard CORS configuration for public endpoints.
// All public endpoints share this permissive CORS setup for cross-origin access.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Helper to conditionally apply rate limiting (only in production)
	// In development/test, rate limiting would interfere with testing
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Rate limiter for public document ingestion (70 requests per minute per IP)
	// 70/min = ~1.2 req/sec - handles legitimate storefront traffic while preventing abuse
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Public ingestion config (document intake)
	// Rate limiting + CORS, CORS runs first so rejections carry CORS headers
	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	// Insights reads are GET-only but share the same rate limit and CORS
	insightsConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	// Health check endpoint
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === PUBLIC INGESTION ROUTES ===
	srv.Post("/x/api/v1/tracking", v1.CreateTrackingDocsHandler, publicAPIConfig)
	srv.Options("/x/api/v1/tracking", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)
	srv.Post("/x/api/v1/listings", v1.CreateListingDocsHandler, publicAPIConfig)
	srv.Options("/x/api/v1/listings", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)
	srv.Post("/x/api/v1/categories", v1.CreateCategoryDocsHandler, publicAPIConfig)
	srv.Options("/x/api/v1/categories", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	// === INSIGHTS ROUTES ===
	srv.Get("/api/insights", http.InsightsIndexAction, insightsConfig)
}
