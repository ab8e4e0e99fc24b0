package http

import (
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/usecases"
)

// FireZoneHandler reports whether a point lies inside an active fire perimeter.
func FireZoneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := queryFloat(c, "lat")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		lon, err := queryFloat(c, "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		info, err := deps.Perimeters.FireZoneAt(c.UserContext(), domain.Coordinate{Lat: lat, Lon: lon})
		if err != nil {
			return writeError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(info)
	}
}

// ListFiresHandler returns incident summaries for perimeters intersecting a box.
func ListFiresHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		box, err := queryBox(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		incidents, err := deps.Perimeters.ListIncidents(c.UserContext(), box)
		if err != nil {
			return writeError(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(incidents)
		page := []domain.FireIncident{}
		if offset < total {
			end := offset + limit
			if end > total {
				end = total
			}
			page = incidents[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		c.Set("Cache-Control", "public, max-age=120")
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// WarmPerimetersHandler queues a cache warm-up for a region, or warms it inline
// when no event bus is configured.
func WarmPerimetersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.WarmRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := usecases.ValidateBox(req.Bounds); err != nil {
			return writeError(c, err)
		}

		if deps.Warmer == nil {
			if err := deps.Perimeters.Warm(c.UserContext(), &req); err != nil {
				return writeError(c, err)
			}
			return c.JSON(fiber.Map{"status": "warmed", "name": req.Name})
		}

		if err := deps.Warmer.PublishWarmRequest(c.UserContext(), &req); err != nil {
			return writeError(c, &domain.ProviderError{Provider: "event bus", Err: err})
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued", "name": req.Name})
	}
}

// PlanRouteHandler plans a fire-aware route and optionally persists a share link.
func PlanRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.PlanRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		req.BaseURL = c.BaseURL()

		plan, err := deps.Routing.PlanRoute(c.UserContext(), &req)
		if err != nil {
			return writeError(c, err)
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(plan)
	}
}

// GetLinkHandler returns the route spec stored behind a link id.
func GetLinkHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := deps.Links.Resolve(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}

		// Never let a cache serve the payload past its expiry.
		maxAge := int(time.Until(rec.ExpiresAt).Seconds())
		if maxAge > 300 {
			maxAge = 300
		}
		if maxAge < 0 {
			maxAge = 0
		}
		c.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
		c.Set("Expires", rec.ExpiresAt.UTC().Format(time.RFC1123))
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		return c.Send(rec.Payload)
	}
}

var viewTemplate = template.Must(template.New("view").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Fire-aware route {{.ID}}</title>
  <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
  <style>html,body,#map{height:100%;margin:0}</style>
</head>
<body>
  <div id="map" data-link="{{.ID}}" data-expires="{{.Expires}}"></div>
  <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
  <script>
    const el = document.getElementById('map');
    const map = L.map('map');
    L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {maxZoom: 18}).addTo(map);
    fetch('/v1/links/' + el.dataset.link).then(r => r.json()).then(spec => {
      const o = [spec.origin.lat, spec.origin.lon], d = [spec.destination.lat, spec.destination.lon];
      L.marker(o).addTo(map); L.marker(d).addTo(map);
      if (spec.overlay) L.geoJSON(spec.overlay, {style: {color: '#d33'}}).addTo(map);
      map.fitBounds([o, d], {padding: [40, 40]});
    });
  </script>
</body>
</html>`))

// ViewHandler serves the map viewer shell for a route link.
func ViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Query("id")
		if id == "" {
			return errBadRequest(c, "id is required")
		}
		rec, err := deps.Links.Resolve(c.UserContext(), id)
		if err != nil {
			return writeError(c, err)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Cache-Control", "no-cache")
		return viewTemplate.Execute(c.Response().BodyWriter(), struct {
			ID      string
			Expires string
		}{ID: rec.ID, Expires: rec.ExpiresAt.UTC().Format(time.RFC3339)})
	}
}

// queryFloat parses a required float query parameter. Zero is a valid value.
func queryFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

func queryBox(c *fiber.Ctx) (domain.BoundingBox, error) {
	var box domain.BoundingBox
	fields := []struct {
		name string
		dst  *float64
	}{
		{"min_lat", &box.MinLat},
		{"min_lon", &box.MinLon},
		{"max_lat", &box.MaxLat},
		{"max_lon", &box.MaxLon},
	}
	for _, f := range fields {
		v, err := queryFloat(c, f.name)
		if err != nil {
			return box, err
		}
		*f.dst = v
	}
	return box, nil
}
