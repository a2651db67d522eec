package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrokasa/advert_market/internal/logging"
	authmw "github.com/agrokasa/advert_market/internal/middleware/auth"
	"github.com/agrokasa/advert_market/internal/service"
	"github.com/agrokasa/advert_market/internal/transport"
	"github.com/agrokasa/advert_market/internal/util"
)

const maxFlyerBytes = 10 << 20

type AdvertHTTP struct {
	Svc *service.AdvertService
}

var advertMessages = messages{
	http.StatusNotFound:  "advert not found",
	http.StatusForbidden: "you do not own this advert",
	http.StatusConflict:  "you already have an advert with this title",
}

func (h *AdvertHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "adverts.create")
	user, _ := authmw.CurrentUser(c)

	in, flyer, err := readAdvertForm(c)
	if err != nil {
		return invalidBody(l, "advert_create_error", err)
	}

	advert, err := h.Svc.Create(ctx, user, in, flyer)
	if err != nil {
		return fail(l, "advert_create_error", err, advertMessages)
	}

	l.Info("advert_create_success", "advert_id", advert.ID)
	return c.JSON(http.StatusCreated, transport.AdvertEnvelope{
		Message: "Advert added successfully!",
		Data:    transport.NewAdvertResponse(advert),
	})
}

func (h *AdvertHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "adverts.list")

	var q transport.AdvertQuery
	if err := c.Bind(&q); err != nil {
		return invalidBody(l, "advert_list_error", err)
	}
	filter, err := q.Filter()
	if err != nil {
		return fail(l, "advert_list_error", err, nil)
	}
	offset, limit, err := util.Window(c.QueryParam("limit"), c.QueryParam("skip"))
	if err != nil {
		return fail(l, "advert_list_error", fmt.Errorf("%w: %w", service.ErrInvalidArgument, err), nil)
	}

	items, err := h.Svc.List(ctx, service.ListQuery{Filter: filter, Offset: offset, Limit: limit})
	if err != nil {
		return fail(l, "advert_list_error", err, nil)
	}
	return c.JSON(http.StatusOK, transport.AdvertListResponse{Data: transport.NewAdvertList(items)})
}

func (h *AdvertHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "adverts.search")

	offset, limit, err := util.Window(c.QueryParam("limit"), c.QueryParam("skip"))
	if err != nil {
		return fail(l, "advert_search_error", fmt.Errorf("%w: %w", service.ErrInvalidArgument, err), nil)
	}

	items, err := h.Svc.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "advert_search_error", err, nil)
	}
	return c.JSON(http.StatusOK, transport.AdvertListResponse{Data: transport.NewAdvertList(items)})
}

func (h *AdvertHTTP) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "adverts.mine")
	user, _ := authmw.CurrentUser(c)

	offset, limit, err := util.Window(c.QueryParam("limit"), c.QueryParam("skip"))
	if err != nil {
		return fail(l, "advert_mine_error", fmt.Errorf("%w: %w", service.ErrInvalidArgument, err), nil)
	}

	items, err := h.Svc.Mine(ctx, user, offset, limit)
	if err != nil {
		return fail(l, "advert_mine_error", err, nil)
	}
	return c.JSON(http.StatusOK, transport.AdvertListResponse{Data: transport.NewAdvertList(items)})
}

func (h *AdvertHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "adverts.get")

	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		return fail(l, "advert_get_error", err, nil)
	}

	advert, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "advert_get_error", err, advertMessages)
	}
	return c.JSON(http.StatusOK, transport.AdvertEnvelope{Data: transport.NewAdvertResponse(advert)})
}

func (h *AdvertHTTP) Similar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "adverts.similar")

	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		return fail(l, "advert_similar_error", err, nil)
	}
	offset, limit, err := util.Window(c.QueryParam("limit"), c.QueryParam("skip"))
	if err != nil {
		return fail(l, "advert_similar_error", fmt.Errorf("%w: %w", service.ErrInvalidArgument, err), nil)
	}

	items, err := h.Svc.Similar(ctx, id, offset, limit)
	if err != nil {
		return fail(l, "advert_similar_error", err, advertMessages)
	}
	return c.JSON(http.StatusOK, transport.AdvertListResponse{Data: transport.NewAdvertList(items)})
}

func (h *AdvertHTTP) Replace(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "adverts.replace")
	user, _ := authmw.CurrentUser(c)

	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		return fail(l, "advert_replace_error", err, nil)
	}

	in, flyer, err := readAdvertForm(c)
	if err != nil {
		return invalidBody(l, "advert_replace_error", err)
	}

	advert, err := h.Svc.Replace(ctx, user, id, in, flyer)
	if err != nil {
		return fail(l, "advert_replace_error", err, advertMessages)
	}

	l.Info("advert_replace_success", "advert_id", advert.ID)
	return c.JSON(http.StatusOK, transport.AdvertEnvelope{
		Message: "Advert replaced successfully!",
		Data:    transport.NewAdvertResponse(advert),
	})
}

func (h *AdvertHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "adverts.delete")
	user, _ := authmw.CurrentUser(c)

	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		return fail(l, "advert_delete_error", err, nil)
	}

	if err := h.Svc.Delete(ctx, user, id); err != nil {
		return fail(l, "advert_delete_error", err, advertMessages)
	}

	l.Info("advert_delete_success", "advert_id", id)
	return c.JSON(http.StatusOK, transport.DeleteAdvertResponse{
		Message: "Advert deleted successfully!",
		UserID:  user.ID.String(),
	})
}

// readAdvertForm binds the advert fields and reads the optional "flyer" file.
func readAdvertForm(c echo.Context) (service.AdvertInput, []byte, error) {
	var form transport.AdvertForm
	if err := bindValid(c, &form); err != nil {
		return service.AdvertInput{}, nil, err
	}
	in, err := form.Input()
	if err != nil {
		return service.AdvertInput{}, nil, err
	}

	fh, err := c.FormFile("flyer")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil, nil
		}
		return service.AdvertInput{}, nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return service.AdvertInput{}, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFlyerBytes+1))
	if err != nil {
		return service.AdvertInput{}, nil, err
	}
	if len(data) > maxFlyerBytes {
		return service.AdvertInput{}, nil, fmt.Errorf("flyer is larger than %d bytes", maxFlyerBytes)
	}
	return in, data, nil
}
