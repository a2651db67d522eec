package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/agrokasa/advert_market/internal/service"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// messages overrides the client facing text per status for one handler.
type messages map[int]string

func defaultMessage(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		// argument errors are composed by this service and safe to show
		return strings.TrimPrefix(err.Error(), service.ErrInvalidArgument.Error()+": ")
	case http.StatusUnprocessableEntity:
		return "invalid id received"
	case http.StatusBadGateway:
		return "upstream service failed"
	case http.StatusInternalServerError:
		return "internal server error"
	}
	return strings.ToLower(http.StatusText(status))
}

// fail logs err under event and turns it into the HTTP error the client sees.
func fail(l *slog.Logger, event string, err error, msgs messages) error {
	status := statusOf(err)
	msg, ok := msgs[status]
	if !ok {
		msg = defaultMessage(status, err)
	}

	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg)
}

// invalidBody reports a bind or validation failure as a 400.
func invalidBody(l *slog.Logger, event string, err error) error {
	msg := "invalid body"

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
		}
		msg = "invalid fields: " + strings.Join(fields, ", ")
	}

	l.Warn(event, "status", 400, "reason", msg, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
