package presence

import (
	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Put("/me/location", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Lat       float64 `json:"lat"`
			Lng       float64 `json:"lng"`
			BookingID string  `json:"bookingId"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !(geo.Point{Lat: req.Lat, Lng: req.Lng}).Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "invalid coordinates")
		}
		userID, _ := c.Locals("user_id").(string)
		if err := svc.RecordLocation(c.Context(), userID, req.Lat, req.Lng, req.BookingID); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"ok": true})
	})

	r.Put("/me/online-status", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			IsOnline bool `json:"isOnline"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		userID, _ := c.Locals("user_id").(string)
		if err := svc.SetOnline(c.Context(), userID, req.IsOnline); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"ok": true})
	})
}
