package web

import (
	"errors"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	body := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(body)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func unauthorized(c fiber.Ctx, detail string) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")

	return problem(c, fiber.StatusUnauthorized, "unauthorized", detail)
}

func internalError(c fiber.Ctx, err error) error {
	body := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

// handleServiceError maps the service error taxonomy onto problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, graph.ErrMalformedGraph):
		return problem(c, fiber.StatusUnprocessableEntity, "malformed_graph", err.Error())

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case errors.Is(err, auth.ErrForbidden):
		return problem(c, fiber.StatusForbidden, "forbidden", err.Error())

	case services.IsNotFound(err):
		return problem(c, fiber.StatusNotFound, "not_found", err.Error())

	case services.IsRetryable(err):
		c.Set(fiber.HeaderRetryAfter, "1")

		return problem(c, fiber.StatusServiceUnavailable, "store_failure", "the store is unavailable, retry later")

	default:
		return internalError(c, err)
	}
}
