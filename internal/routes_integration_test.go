package internal

import (
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
)

func TestPublicTrackingRouteRateLimited(t *testing.T) {
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: MountAppRoutes,
	})
	routes := srv.App.GetRoutes(true)

	var trackingRoute *fiber.Route
	for idx := range routes {
		route := routes[idx]
		if route.Method == fiber.MethodPost && route.Path == "/x/api/v1/tracking" {
			trackingRoute = &routes[idx]
			break
		}
	}

	require.NotNil(t, trackingRoute, "expected tracking route to be registered")

	// The rate limiter is wrapped in a conditional function that only applies
	// in production. In test environment, it passes through but the wrapper
	// still exists. Check for the conditional wrapper (defined in MountAppRoutes).
	hasRateLimiter := false
	var handlerNames []string
	for _, handler := range trackingRoute.Handlers {
		name := runtime.FuncForPC(reflect.ValueOf(handler).Pointer()).Name()
		handlerNames = append(handlerNames, name)
		// Check for either the raw limiter or our conditional wrapper
		if strings.Contains(name, "middleware/limiter") || strings.Contains(name, "MountAppRoutes.func") {
			hasRateLimiter = true
			break
		}
	}

	require.Truef(t, hasRateLimiter, "expected rate limiter middleware for public tracking route, handlers: %v", handlerNames)
}

func TestIngestionAndInsightsRoutesRegistered(t *testing.T) {
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: MountAppRoutes,
	})
	routes := srv.App.GetRoutes(true)

	wantPost := map[string]bool{
		"/x/api/v1/tracking":   false,
		"/x/api/v1/listings":   false,
		"/x/api/v1/categories": false,
	}
	var hasInsights, hasHealth bool

	for _, route := range routes {
		if route.Method == fiber.MethodPost {
			if _, ok := wantPost[route.Path]; ok {
				wantPost[route.Path] = true
			}
		}
		if route.Method == fiber.MethodGet && route.Path == "/api/insights" {
			hasInsights = true
		}
		if route.Method == fiber.MethodGet && route.Path == "/_health" {
			hasHealth = true
		}
	}

	for path, found := range wantPost {
		require.Truef(t, found, "expected POST %s to be registered", path)
	}
	require.True(t, hasInsights, "expected insights route to be registered")
	require.True(t, hasHealth, "expected health route to be registered")
}
