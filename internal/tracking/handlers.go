package tracking

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/stream"
)

func RegisterRoutes(r fiber.Router, reg *Registry, authMiddleware fiber.Handler) {
	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		userID, role, subRole := identityOf(c)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		if role != "staff" {
			return fiber.NewError(fiber.StatusForbidden, "tracking is for workers")
		}

		var req struct {
			BookingID string `json:"bookingId"`
		}
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctl := reg.Session(userID, role, subRole)
		if req.BookingID != "" {
			ctl.Bind(c.Context(), req.BookingID)
		}
		if err := ctl.Start(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"tracking": true, "bookingId": ctl.ActiveBooking()})
	})

	r.Post("/stop", authMiddleware, func(c *fiber.Ctx) error {
		userID, _, _ := identityOf(c)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		if ctl := reg.Lookup(userID); ctl != nil {
			ctl.Unbind(c.Context())
			ctl.Stop(c.Context())
		}
		return c.JSON(fiber.Map{"tracking": false})
	})

	// REST fallback for devices without a live-channel connection.
	r.Post("/samples", authMiddleware, func(c *fiber.Ctx) error {
		userID, role, subRole := identityOf(c)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}

		var ev stream.LocationEvent
		if err := c.BodyParser(&ev); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !pointOf(ev.Lat, ev.Lng).Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "invalid coordinates")
		}

		reg.Ingest(userID, role, subRole, ev)
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Get("/session", authMiddleware, func(c *fiber.Ctx) error {
		userID, _, _ := identityOf(c)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}

		ctl := reg.Lookup(userID)
		if ctl == nil {
			return c.JSON(fiber.Map{"tracking": false})
		}
		resp := fiber.Map{
			"tracking":  ctl.Tracking(),
			"bookingId": ctl.ActiveBooking(),
		}
		if s := ctl.LastSample(); s != nil {
			resp["lastSample"] = s
		}
		if eta := ctl.ETA(); eta != nil {
			resp["eta"] = eta
		}
		return c.JSON(resp)
	})
}

func identityOf(c *fiber.Ctx) (userID, role, subRole string) {
	userID, _ = c.Locals("user_id").(string)
	role, _ = c.Locals("role").(string)
	subRole, _ = c.Locals("sub_role").(string)
	return userID, role, subRole
}
