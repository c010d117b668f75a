package v1

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"shoplens/internal/config"
	"shoplens/internal/pkg/botfilter"
	"shoplens/internal/pkg/geoip"
	"shoplens/internal/rawdoc"
	"shoplens/internal/store"
)

const (
	msgDocsAccepted   = "Documents accepted"
	errInvalidRequest = "Invalid request"
	errEmptyBody      = "Empty request body"
)

// CreateTrackingDocsHandler ingests session tracking documents. Submissions
// from known crawlers are acknowledged but discarded, and documents without a
// country are enriched from the client IP when GeoIP is available.
func CreateTrackingDocsHandler(ctx *cartridge.Context) error {
	userAgent := ctx.Get("User-Agent")
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgent = forwardedUA
	}

	if botfilter.IsBot(userAgent) {
		ctx.Logger.Debug("Dropping tracking submission from bot",
			slog.String("userAgent", userAgent))
		return acceptedResponse(ctx, 0)
	}

	docs, err := parseDocs(ctx.Body())
	if err != nil {
		ctx.Logger.Debug("Failed to parse tracking documents", slog.Any("error", err))
		return handleError(ctx.Ctx, err)
	}

	enrichCountry(docs, getClientIP(ctx.Ctx))

	return storeDocs(ctx, config.GetConfig().TrackingCollection, docs)
}

// CreateListingDocsHandler ingests product listing documents.
func CreateListingDocsHandler(ctx *cartridge.Context) error {
	docs, err := parseDocs(ctx.Body())
	if err != nil {
		ctx.Logger.Debug("Failed to parse listing documents", slog.Any("error", err))
		return handleError(ctx.Ctx, err)
	}

	return storeDocs(ctx, config.GetConfig().ListingsCollection, docs)
}

// CreateCategoryDocsHandler ingests category documents.
func CreateCategoryDocsHandler(ctx *cartridge.Context) error {
	docs, err := parseDocs(ctx.Body())
	if err != nil {
		ctx.Logger.Debug("Failed to parse category documents", slog.Any("error", err))
		return handleError(ctx.Ctx, err)
	}

	return storeDocs(ctx, config.GetConfig().CategoriesCollection, docs)
}

// parseDocs accepts either a single JSON object or an array of objects.
// Clients batch however they like; ingestion is schema-free either way.
func parseDocs(body []byte) ([]rawdoc.Doc, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fiber.NewError(http.StatusBadRequest, errEmptyBody)
	}

	if trimmed[0] == '[' {
		var docs []rawdoc.Doc
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fiber.NewError(http.StatusBadRequest, errInvalidRequest)
		}
		return docs, nil
	}

	var doc rawdoc.Doc
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, errInvalidRequest)
	}
	return []rawdoc.Doc{doc}, nil
}

// enrichCountry fills in the country code from the client IP for documents
// that do not carry one. Documents that already name a country win.
func enrichCountry(docs []rawdoc.Doc, clientIP string) {
	var resolved string
	var looked bool

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if rawdoc.FirstString(doc, "countryCode", "country_code", "country") != "" {
			continue
		}
		if !looked {
			resolved = geoip.CountryCode(clientIP)
			looked = true
		}
		if resolved != "" {
			doc["countryCode"] = resolved
		}
	}
}

func storeDocs(ctx *cartridge.Context, collection string, docs []rawdoc.Doc) error {
	stored, err := store.SaveDocuments(ctx.DBManager, ctx.Logger, collection, docs)
	if err != nil {
		ctx.Logger.Error("Failed to store documents",
			slog.String("collection", collection),
			slog.Any("error", err))
		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "busy") {
			return ctx.Status(599).JSON(fiber.Map{}) // custom status code
		}
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store documents",
			"code":  "STORAGE_ERROR",
		})
	}

	ctx.Logger.Info("Stored documents",
		slog.String("collection", collection),
		slog.Int("count", stored))
	return acceptedResponse(ctx, stored)
}

func acceptedResponse(ctx *cartridge.Context, stored int) error {
	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgDocsAccepted,
		"status":  http.StatusAccepted,
		"stored":  stored,
	})
}

func handleError(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": errInvalidRequest,
	})
}
