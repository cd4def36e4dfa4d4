package child

import (
	"errors"

	"backend-carewatch/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		children, err := svc.List(c.Context(), auth.CallerID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(children)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		if auth.CallerRole(c) != auth.RoleParent && auth.CallerRole(c) != auth.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "only parents can add children")
		}
		var req Child
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		created, err := svc.Create(c.Context(), req, auth.CallerID(c))
		if err != nil {
			return mapServiceError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		child, err := svc.Get(c.Context(), c.Params("id"), auth.CallerID(c), auth.CallerRole(c))
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(child)
	})

	r.Patch("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		updated, err := svc.Update(c.Context(), c.Params("id"), auth.CallerID(c), auth.CallerRole(c), req)
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(updated)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id"), auth.CallerID(c), auth.CallerRole(c)); err != nil {
			return mapServiceError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrNameRequired):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
