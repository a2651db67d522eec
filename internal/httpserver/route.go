package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/agrokasa/advert_market/internal/authz"
	"github.com/agrokasa/advert_market/internal/db"
	authmw "github.com/agrokasa/advert_market/internal/middleware/auth"
	loggingmw "github.com/agrokasa/advert_market/internal/middleware/logging"
	"github.com/agrokasa/advert_market/internal/transport"
)

type Deps struct {
	DB            *gorm.DB
	Guard         *authmw.Guard
	UserHandler   *UserHTTP
	AdvertHandler *AdvertHTTP
	AIHandler     *AIHTTP
}

// New builds the echo instance with the middleware every route shares.
func New(logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", welcome)
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, d.DB); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	users := e.Group("/users")
	users.POST("/register", d.UserHandler.Register)
	users.POST("/login", d.UserHandler.Login)

	authn := d.Guard.Authenticate()
	need := func(p authz.Permission) []echo.MiddlewareFunc {
		return []echo.MiddlewareFunc{authn, authmw.Require(p)}
	}

	adverts := e.Group("/adverts")
	adverts.GET("", d.AdvertHandler.List)
	adverts.GET("/search", d.AdvertHandler.Search)
	adverts.GET("/user/me", d.AdvertHandler.Mine, need(authz.GetMyAdverts)...)
	adverts.GET("/:id", d.AdvertHandler.Get)
	adverts.GET("/:id/similar", d.AdvertHandler.Similar)
	adverts.POST("", d.AdvertHandler.Create, need(authz.PostAdverts)...)
	adverts.PUT("/:id", d.AdvertHandler.Replace, need(authz.ReplaceAdvert)...)
	adverts.DELETE("/:id", d.AdvertHandler.Delete, need(authz.DeleteAdvert)...)

	ai := e.Group("/ai", authn, authmw.Require(authz.UseAI))
	ai.POST("/generate-image", d.AIHandler.GenerateImage)
	ai.POST("/generate-description", d.AIHandler.GenerateDescription)
	ai.POST("/suggest-price", d.AIHandler.SuggestPrice)
	ai.POST("/score-quality", d.AIHandler.ScoreQuality)
}

func welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Akwaaba! Welcome to AGROKASA!"})
}
