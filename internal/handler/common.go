package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/repository"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// errorStatus maps repository and model errors to HTTP statuses.  Unknown
// errors are internal.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrInvalid),
		errors.Is(err, repository.ErrInvalidSlot),
		errors.Is(err, repository.ErrDuplicateRole),
		errors.Is(err, model.ErrInvalidShip):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrShipNotFound),
		errors.Is(err, repository.ErrTemplateNotFound),
		errors.Is(err, repository.ErrSlotNotFound),
		errors.Is(err, repository.ErrOperationNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrDuplicateShip),
		errors.Is(err, repository.ErrUsernameExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}.  Internal errors are logged and
// hidden behind msg.
func fail(c echo.Context, err error, msg string) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error(msg, "method", c.Request().Method, "path", c.Path(), "err", err)
		return c.JSON(status, echo.Map{"error": msg})
	}
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(status, echo.Map{"error": "operation not permitted: " + err.Error()})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
