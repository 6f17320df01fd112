package httpapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/koalabang/MUFCR6K2025/internal/common"
	"github.com/koalabang/MUFCR6K2025/internal/dx"
	"github.com/koalabang/MUFCR6K2025/internal/muf"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
// dxFetcher may be nil when the DX feed is disabled.
func RegisterRoutes(app *fiber.App, service *muf.Service, dxFetcher *dx.Fetcher) {
	api := app.Group("/api")

	api.Get("/muf/latest", func(c *fiber.Ctx) error {
		latest, ok := service.Latest()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no MUF data available yet")
		}
		return c.JSON(rounded(latest))
	})

	api.Get("/muf/series", func(c *fiber.Ctx) error {
		var q seriesQuery
		q.Window = c.QueryInt("window", 60)

		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "window must be between 1 and 60 minutes")
		}

		return c.JSON(service.SeriesWindow(q.Window))
	})

	if dxFetcher != nil {
		api.Get("/dx/spots", func(c *fiber.Ctx) error {
			return c.JSON(dxFetcher.Spots())
		})
	}
}

// seriesQuery holds query parameters for the series endpoint. The upper
// bound matches the retention horizon; older data is never available.
type seriesQuery struct {
	Window int `validate:"gte=1,lte=60"`
}

// rounded trims displayed values to 0.1 MHz without touching the stored
// point.
func rounded(p muf.Point) muf.Point {
	p.Roquetes = round1p(p.Roquetes)
	p.Arenosillo = round1p(p.Arenosillo)
	p.Avg = round1p(p.Avg)
	return p
}

func round1p(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := common.Round1(*v)
	return &r
}
