package session

import (
	"errors"
	"strconv"
	"time"

	"backend-carewatch/internal/auth"
	"backend-carewatch/internal/syncer"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		sessions, err := svc.List(c.Context(), auth.CallerID(c), auth.CallerRole(c), Status(c.Query("status")))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(sessions)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Session
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.ParentID == "" || req.ChildID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "parent_id and child_id required")
		}
		created, err := svc.Create(c.Context(), req, auth.CallerID(c), auth.CallerRole(c))
		if err != nil {
			return mapServiceError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		sess, res, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return mapServiceError(err)
		}
		if !sess.CanAccess(auth.CallerID(c), auth.CallerRole(c)) {
			return fiber.NewError(fiber.StatusForbidden, "no access to this session")
		}
		setProvenance(c, res)
		return c.JSON(sess)
	})

	r.Get("/:id/durations", authMiddleware, func(c *fiber.Ctx) error {
		sess, _, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return mapServiceError(err)
		}
		if !sess.CanAccess(auth.CallerID(c), auth.CallerRole(c)) {
			return fiber.NewError(fiber.StatusForbidden, "no access to this session")
		}
		return c.JSON(svc.Durations(sess, time.Now()))
	})

	r.Post("/:id/accept", authMiddleware, func(c *fiber.Ctx) error {
		if auth.CallerRole(c) != auth.RoleSitter && auth.CallerRole(c) != auth.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "only sitters can accept sessions")
		}
		sess, res, err := svc.Accept(c.Context(), c.Params("id"), auth.CallerID(c))
		if err != nil {
			return mapServiceError(err)
		}
		setProvenance(c, res)
		return c.JSON(sess)
	})

	r.Post("/:id/activate", authMiddleware, transitionHandler(svc, func(c *fiber.Ctx) (Session, syncer.Result, error) {
		return svc.Activate(c.Context(), c.Params("id"))
	}))

	r.Post("/:id/complete", authMiddleware, transitionHandler(svc, func(c *fiber.Ctx) (Session, syncer.Result, error) {
		return svc.Complete(c.Context(), c.Params("id"))
	}))

	r.Post("/:id/cancel", authMiddleware, transitionHandler(svc, func(c *fiber.Ctx) (Session, syncer.Result, error) {
		var req CancelRequest
		if err := c.BodyParser(&req); err != nil {
			return Session{}, syncer.Result{}, err
		}
		return svc.Cancel(c.Context(), c.Params("id"), req.Reason)
	}))

	r.Patch("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		fields := req.Fields()
		if len(fields) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
		}

		current, _, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return mapServiceError(err)
		}
		if !current.CanAccess(auth.CallerID(c), auth.CallerRole(c)) {
			return fiber.NewError(fiber.StatusForbidden, "no access to this session")
		}

		updated, res, err := svc.UpdateFields(c.Context(), c.Params("id"), fields)
		if err != nil {
			return mapServiceError(err)
		}
		setProvenance(c, res)
		return c.JSON(updated)
	})
}

func transitionHandler(svc *Service, op func(*fiber.Ctx) (Session, syncer.Result, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, _, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return mapServiceError(err)
		}
		if !current.CanAccess(auth.CallerID(c), auth.CallerRole(c)) {
			return fiber.NewError(fiber.StatusForbidden, "no access to this session")
		}

		sess, res, err := op(c)
		if err != nil {
			return mapServiceError(err)
		}
		setProvenance(c, res)
		return c.JSON(sess)
	}
}

func setProvenance(c *fiber.Ctx, res syncer.Result) {
	if res.Provenance != "" {
		c.Set("X-Data-Provenance", string(res.Provenance))
		c.Set("X-Data-Confirmed", strconv.FormatBool(res.Confirmed))
	}
}

func mapServiceError(err error) error {
	var invalid *InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, syncer.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	case errors.Is(err, ErrParentOnly), errors.Is(err, ErrParentMismatch):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrReasonRequired), errors.Is(err, ErrBadScope), errors.Is(err, ErrBadDistance):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
