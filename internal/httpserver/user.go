package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrokasa/advert_market/internal/logging"
	"github.com/agrokasa/advert_market/internal/service"
	"github.com/agrokasa/advert_market/internal/transport"
)

type UserHTTP struct {
	Svc *service.AuthService
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func (h *UserHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.register")

	var req transport.RegisterRequest
	if err := bindValid(c, &req); err != nil {
		return invalidBody(l, "register_error", err)
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return fail(l, "register_error", err, messages{http.StatusConflict: "user already exists"})
	}

	l.Info("register_success", "user_id", user.ID, "role", user.Role)
	return c.JSON(http.StatusCreated, transport.MessageResponse{Message: "User registered successfully!"})
}

func (h *UserHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.login")

	var req transport.LoginRequest
	if err := bindValid(c, &req); err != nil {
		return invalidBody(l, "login_error", err)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_error", err, messages{
			http.StatusNotFound:     "user does not exist",
			http.StatusUnauthorized: "incorrect email or password",
		})
	}

	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, transport.LoginResponse{
		Message:     "User logged in successfully!",
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
	})
}
