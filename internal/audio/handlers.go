package audio

import (
	"bytes"
	"errors"

	"backend-carewatch/internal/syncer"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/:sessionID/clips", authMiddleware, func(c *fiber.Ctx) error {
		body := c.Body()
		if len(body) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "empty audio clip")
		}
		report, err := svc.ProcessClip(c.Context(), c.Params("sessionID"), bytes.NewReader(body))
		if err != nil {
			switch {
			case errors.Is(err, syncer.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, "session not found")
			case errors.Is(err, ErrSessionNotActive), errors.Is(err, ErrCryDisabled):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
		}
		return c.JSON(report)
	})
}
