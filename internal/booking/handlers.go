package booking

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/mine", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing identity")
		}
		bookings, err := svc.ListMine(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(bookings)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		b, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(b)
	})

	r.Post("/:id/status", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Status == "" {
			return fiber.NewError(fiber.StatusBadRequest, "status required")
		}
		b, err := svc.Transition(c.Context(), c.Params("id"), Status(req.Status))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(b)
	})

	r.Post("/:id/delivery-otp/verify", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			OTP string `json:"otp"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := svc.VerifyDeliveryOTP(c.Context(), c.Params("id"), req.OTP); err != nil {
			return statusError(err)
		}
		return c.JSON(fiber.Map{"verified": true})
	})

	r.Post("/:id/photos", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Stage string `json:"stage"`
			URL   string `json:"url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.URL == "" {
			return fiber.NewError(fiber.StatusBadRequest, "url required")
		}
		if req.Stage == "" {
			req.Stage = PhotoStagePrePickup
		}
		photo, err := svc.AddPhoto(c.Context(), c.Params("id"), req.Stage, req.URL)
		if err != nil {
			return statusError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(photo)
	})
}

func statusError(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fiber.NewError(fiber.StatusNotFound, "booking not found")
	case errors.Is(err, ErrInsufficientPhotos),
		errors.Is(err, ErrOTPRequired),
		errors.Is(err, ErrInvalidOTP):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrIllegalTransition):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
