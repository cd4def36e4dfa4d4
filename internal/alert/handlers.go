package alert

import (
	"context"
	"errors"
	"strconv"

	"backend-carewatch/internal/auth"
	"backend-carewatch/internal/syncer"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		alerts, err := svc.ListForUser(c.Context(), auth.CallerID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(alerts)
	})

	r.Get("/session/:sessionID", authMiddleware, func(c *fiber.Ctx) error {
		alerts, err := svc.ListForSession(c.Context(), c.Params("sessionID"), Status(c.Query("status")))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(alerts)
	})

	r.Post("/emergency", authMiddleware, func(c *fiber.Ctx) error {
		var req EmergencyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		created, err := svc.RaiseEmergency(c.Context(), req.SessionID, req.Message)
		if err != nil {
			return mapServiceError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		a, res, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return mapServiceError(err)
		}
		setProvenance(c, res)
		return c.JSON(a)
	})

	r.Post("/:id/view", authMiddleware, advanceHandler(svc.View))
	r.Post("/:id/acknowledge", authMiddleware, advanceHandler(svc.Acknowledge))
	r.Post("/:id/resolve", authMiddleware, advanceHandler(svc.Resolve))
}

func advanceHandler(op func(ctx context.Context, id string) (Alert, syncer.Result, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, res, err := op(c.Context(), c.Params("id"))
		if err != nil {
			return mapServiceError(err)
		}
		setProvenance(c, res)
		return c.JSON(a)
	}
}

func setProvenance(c *fiber.Ctx, res syncer.Result) {
	if res.Provenance != "" {
		c.Set("X-Data-Provenance", string(res.Provenance))
		c.Set("X-Data-Confirmed", strconv.FormatBool(res.Confirmed))
	}
}

func mapServiceError(err error) error {
	var invalid *InvalidAlertTransitionError
	switch {
	case errors.As(err, &invalid):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, syncer.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "alert not found")
	case errors.Is(err, ErrSessionRequired), errors.Is(err, ErrMessageRequired):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
