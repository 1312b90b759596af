package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
	"github.com/OFFIS-RIT/graphvis/pkg/common"
	"github.com/OFFIS-RIT/graphvis/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

const uniqueViolation = "23505"

type messageResponse struct {
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindBadInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse writes err as {"message": ...} with the status of its kind.
// Store errors are logged; the client gets their classified message, such as
// the failing step and graph id, but not the underlying cause.
func errorResponse(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
		msg := apperr.Message(err)
		if msg == "" {
			msg = "Internal server error"
		}
		return c.JSON(status, messageResponse{Message: msg})
	}
	return c.JSON(status, messageResponse{Message: err.Error()})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// pageRequest reads the page and size query parameters. Missing or
// non-numeric values fall back to the defaults.
func pageRequest(c echo.Context) common.PageRequest {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	return common.PageRequest{Page: page, Size: size}.Normalize()
}
