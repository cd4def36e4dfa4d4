package tracking

import (
	"errors"

	"backend-carewatch/internal/auth"
	"backend-carewatch/internal/syncer"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req RecordRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.SessionID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "session_id required")
		}
		sample, err := svc.Record(c.Context(), req, auth.CallerID(c), auth.CallerRole(c))
		if err != nil {
			return mapServiceError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(sample)
	})

	r.Get("/:sessionID", authMiddleware, sessionScoped(svc, func(c *fiber.Ctx) error {
		samples, err := svc.History(c.Context(), c.Params("sessionID"))
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(samples)
	}))

	r.Get("/:sessionID/latest", authMiddleware, sessionScoped(svc, func(c *fiber.Ctx) error {
		sample, err := svc.Latest(c.Context(), c.Params("sessionID"))
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(sample)
	}))

	r.Get("/:sessionID/stats", authMiddleware, sessionScoped(svc, func(c *fiber.Ctx) error {
		stats, err := svc.Stats(c.Context(), c.Params("sessionID"))
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(stats)
	}))
}

// sessionScoped gates a read on the caller actually being party to the
// session whose track they ask for.
func sessionScoped(svc *Service, next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, _, err := svc.sessions.Get(c.Context(), c.Params("sessionID"))
		if err != nil {
			return mapServiceError(err)
		}
		if !sess.CanAccess(auth.CallerID(c), auth.CallerRole(c)) {
			return fiber.NewError(fiber.StatusForbidden, "no access to this session")
		}
		return next(c)
	}
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, syncer.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "not found")
	case errors.Is(err, ErrNotAssigned):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrSessionNotActive), errors.Is(err, ErrGPSDisabled), errors.Is(err, ErrBadCoordinates):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
