package presenter

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/totegamma/questlog/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func BadRequest(c echo.Context, err error) error {
	return BadRequestMessage(c, err.Error())
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.DebugContext(
		c.Request().Context(), "bad request",
		slog.String("error", msg),
		slog.String("path", c.Path()),
		slog.String("module", "rest"),
	)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	slog.ErrorContext(
		c.Request().Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("path", c.Path()),
		slog.String("module", "rest"),
	)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// Error maps domain errors to their status codes.
func Error(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return BadRequest(c, err)
	case errors.Is(err, domain.ErrNotFound):
		return NotFound(c, err.Error())
	default:
		return InternalError(c, err)
	}
}
