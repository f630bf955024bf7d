package geocode

import (
	"strconv"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, client *Client) {
	r.Get("/reverse", func(c *fiber.Ctx) error {
		lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
		lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
		if err1 != nil || err2 != nil || !(geo.Point{Lat: lat, Lng: lng}).Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}
		place, err := client.Reverse(c.Context(), lat, lng)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(fiber.Map{"display_name": place.DisplayName})
	})

	r.Get("/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q required")
		}
		limit, _ := strconv.Atoi(c.Query("limit", "5"))
		places, err := client.Search(c.Context(), query, limit, c.Query("countrycodes"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(places)
	})

	r.Get("/eta", func(c *fiber.Ctx) error {
		originLat, e1 := strconv.ParseFloat(c.Query("originLat"), 64)
		originLng, e2 := strconv.ParseFloat(c.Query("originLng"), 64)
		destLat, e3 := strconv.ParseFloat(c.Query("destLat"), 64)
		destLng, e4 := strconv.ParseFloat(c.Query("destLng"), 64)
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return fiber.NewError(fiber.StatusBadRequest, "origin and dest coordinates required")
		}
		estimate, err := client.ETA(c.Context(),
			geo.Point{Lat: originLat, Lng: originLng},
			geo.Point{Lat: destLat, Lng: destLng})
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(estimate)
	})
}
