package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agrokasa/advert_market/internal/db"
	"github.com/agrokasa/advert_market/internal/logging"
	authmw "github.com/agrokasa/advert_market/internal/middleware/auth"
	"github.com/agrokasa/advert_market/internal/models"
	"github.com/agrokasa/advert_market/internal/mykafka"
	"github.com/agrokasa/advert_market/internal/repo"
	"github.com/agrokasa/advert_market/internal/service"
	"github.com/agrokasa/advert_market/internal/tokens"
	"github.com/agrokasa/advert_market/internal/transport"
)

type stubUploader struct{ n int }

func (s *stubUploader) Upload(ctx context.Context, data []byte) (string, error) {
	s.n++
	return "https://cdn.test/adverts/" + uuid.NewString() + ".jpg", nil
}

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("\xff\xd8\xff\xe0generated"), nil
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type testEnv struct {
	e     *echo.Echo
	db    *gorm.DB
	repo  *repo.GormRepo
	auth  *service.AuthService
	gen   *stubGenerator
	media *stubUploader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb, true))
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := &repo.GormRepo{DB: gdb}
	gen := &stubGenerator{}
	media := &stubUploader{}
	authSvc := &service.AuthService{
		Users:  r,
		Tokens: tokens.NewIssuer([]byte("test-jwt-secret"), 5*time.Minute),
		Events: mykafka.Noop{},
	}

	e := New(logging.Discard())
	Register(e, &Deps{
		DB:          gdb,
		Guard:       &authmw.Guard{Resolver: authSvc},
		UserHandler: &UserHTTP{Svc: authSvc},
		AdvertHandler: &AdvertHTTP{Svc: &service.AdvertService{
			Store:          r,
			Media:          media,
			Images:         gen,
			Events:         mykafka.Noop{},
			UniqueTitles:   true,
			GatewayTimeout: time.Second,
		}},
		AIHandler: &AIHTTP{Svc: &service.AIService{Gen: gen, Timeout: time.Second}},
	})

	return &testEnv{e: e, db: gdb, repo: r, auth: authSvc, gen: gen, media: media}
}

func (env *testEnv) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, flyer []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if flyer != nil {
		fw, err := w.CreateFormFile("flyer", "flyer.png")
		require.NoError(t, err)
		_, err = fw.Write(flyer)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// signup registers and logs in, returning the access token.
func (env *testEnv) signup(t *testing.T, email, role string) string {
	t.Helper()

	rec := env.do(t, formRequest(http.MethodPost, "/users/register", url.Values{
		"username": {strings.Split(email, "@")[0]},
		"email":    {email},
		"password": {"password123"},
		"role":     {role},
	}), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, formRequest(http.MethodPost, "/users/login", url.Values{
		"email":    {email},
		"password": {"password123"},
	}), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[transport.LoginResponse](t, rec)
	require.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "bearer", res.TokenType)
	return res.AccessToken
}

func advertFields(title string, price string) map[string]string {
	return map[string]string{
		"title":       title,
		"description": "Freshly harvested " + title,
		"price":       price,
		"category":    "Vegetables",
		"quantity":    "12",
	}
}

func TestWelcomeAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Akwaaba! Welcome to AGROKASA!", decode[transport.MessageResponse](t, rec).Message)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec = env.do(t, httptest.NewRequest(http.MethodGet, path, nil), "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ama@farm.gh", "vendor")

	tests := []struct {
		name   string
		path   string
		values url.Values
		want   int
	}{
		{name: "duplicate email", path: "/users/register", values: url.Values{"username": {"ama2"}, "email": {"ama@farm.gh"}, "password": {"password123"}}, want: http.StatusConflict},
		{name: "bad role", path: "/users/register", values: url.Values{"username": {"x"}, "email": {"x@farm.gh"}, "password": {"password123"}, "role": {"admin"}}, want: http.StatusBadRequest},
		{name: "short password", path: "/users/register", values: url.Values{"username": {"x"}, "email": {"x@farm.gh"}, "password": {"short"}}, want: http.StatusBadRequest},
		{name: "bad email", path: "/users/register", values: url.Values{"username": {"x"}, "email": {"not-an-email"}, "password": {"password123"}}, want: http.StatusBadRequest},
		{name: "unknown email", path: "/users/login", values: url.Values{"email": {"nobody@farm.gh"}, "password": {"password123"}}, want: http.StatusNotFound},
		{name: "wrong password", path: "/users/login", values: url.Values{"email": {"ama@farm.gh"}, "password": {"password999"}}, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, formRequest(http.MethodPost, tt.path, tt.values), "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAdvertLifecycle(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.signup(t, "kofi@farm.gh", "vendor")

	rec := env.do(t, multipartRequest(t, http.MethodPost, "/adverts", advertFields("Okra", "7.5"), []byte("\x89PNG\r\n\x1a\nflyer")), vendor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[transport.AdvertEnvelope](t, rec).Data
	assert.Equal(t, "Okra", created.Title)
	assert.Equal(t, 7.5, created.Price)
	assert.Equal(t, int64(12), created.Quantity)
	assert.Equal(t, 1, env.media.n)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/"+created.ID, nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decode[transport.AdvertEnvelope](t, rec).Data
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Owner, fetched.Owner)
	assert.Equal(t, "Freshly harvested Okra", fetched.Description)

	// same title from the same vendor
	rec = env.do(t, multipartRequest(t, http.MethodPost, "/adverts", advertFields("Okra", "8"), nil), vendor)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// no flyer: image is generated, urlencoded forms work too
	values := url.Values{}
	for k, v := range advertFields("Garden Eggs", "3") {
		values.Set(k, v)
	}
	rec = env.do(t, formRequest(http.MethodPost, "/adverts", values), vendor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 2, env.media.n)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts?min_price=5&max_price=10", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[transport.AdvertListResponse](t, rec).Data
	require.Len(t, list, 1)
	assert.Equal(t, "Okra", list[0].Title)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/user/me", nil), vendor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[transport.AdvertListResponse](t, rec).Data, 2)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/"+created.ID+"/similar", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	similar := decode[transport.AdvertListResponse](t, rec).Data
	require.Len(t, similar, 1)
	assert.Equal(t, "Garden Eggs", similar[0].Title)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/search?q=garden", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[transport.AdvertListResponse](t, rec).Data, 1)

	rec = env.do(t, multipartRequest(t, http.MethodPut, "/adverts/"+created.ID, advertFields("Fresh Okra", "9"), nil), vendor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Fresh Okra", decode[transport.AdvertEnvelope](t, rec).Data.Title)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/adverts/"+created.ID, nil), vendor)
	require.Equal(t, http.StatusOK, rec.Code)
	del := decode[transport.DeleteAdvertResponse](t, rec)
	assert.Equal(t, created.Owner, del.UserID)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/"+created.ID, nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdvertAccessControl(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "owner@farm.gh", "vendor")
	other := env.signup(t, "other@farm.gh", "vendor")
	buyer := env.signup(t, "buyer@farm.gh", "user")

	rec := env.do(t, multipartRequest(t, http.MethodPost, "/adverts", advertFields("Yam", "20"), []byte("img")), owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[transport.AdvertEnvelope](t, rec).Data.ID

	// a different vendor may reuse the title
	rec = env.do(t, multipartRequest(t, http.MethodPost, "/adverts", advertFields("Yam", "18"), []byte("img")), other)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name  string
		req   *http.Request
		token string
		want  int
	}{
		{name: "create without token", req: multipartRequest(t, http.MethodPost, "/adverts", advertFields("A", "1"), nil), want: http.StatusUnauthorized},
		{name: "create as buyer", req: multipartRequest(t, http.MethodPost, "/adverts", advertFields("A", "1"), nil), token: buyer, want: http.StatusForbidden},
		{name: "mine as buyer", req: httptest.NewRequest(http.MethodGet, "/adverts/user/me", nil), token: buyer, want: http.StatusForbidden},
		{name: "replace as other vendor", req: multipartRequest(t, http.MethodPut, "/adverts/"+id, advertFields("Yam!", "1"), nil), token: other, want: http.StatusForbidden},
		{name: "delete as other vendor", req: httptest.NewRequest(http.MethodDelete, "/adverts/"+id, nil), token: other, want: http.StatusForbidden},
		{name: "delete as buyer", req: httptest.NewRequest(http.MethodDelete, "/adverts/"+id, nil), token: buyer, want: http.StatusForbidden},
		{name: "delete malformed id", req: httptest.NewRequest(http.MethodDelete, "/adverts/not-an-id", nil), token: owner, want: http.StatusUnprocessableEntity},
		{name: "delete missing advert", req: httptest.NewRequest(http.MethodDelete, "/adverts/"+uuid.NewString(), nil), token: owner, want: http.StatusNotFound},
		{name: "get malformed id", req: httptest.NewRequest(http.MethodGet, "/adverts/123", nil), want: http.StatusUnprocessableEntity},
		{name: "similar missing advert", req: httptest.NewRequest(http.MethodGet, "/adverts/"+uuid.NewString()+"/similar", nil), want: http.StatusNotFound},
		{name: "negative price", req: multipartRequest(t, http.MethodPost, "/adverts", advertFields("B", "-1"), nil), token: owner, want: http.StatusBadRequest},
		{name: "missing quantity", req: multipartRequest(t, http.MethodPost, "/adverts", map[string]string{"title": "C", "description": "d", "price": "1", "category": "x"}, nil), token: owner, want: http.StatusBadRequest},
		{name: "garbage token", req: httptest.NewRequest(http.MethodGet, "/adverts/user/me", nil), token: "abc.def.ghi", want: http.StatusUnauthorized},
		{name: "bad limit", req: httptest.NewRequest(http.MethodGet, "/adverts?limit=ten", nil), want: http.StatusBadRequest},
		{name: "inverted price range", req: httptest.NewRequest(http.MethodGet, "/adverts?min_price=10&max_price=5", nil), want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.req, tt.token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	// the advert survived every rejected attempt
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/"+id, nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Yam", decode[transport.AdvertEnvelope](t, rec).Data.Title)
}

func TestAdminBypassesOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "owner@farm.gh", "vendor")

	admin := &models.User{Username: "root", Email: "root@agrokasa.gh", PasswordHash: "x", Role: models.RoleAdmin}
	require.NoError(t, env.repo.CreateUser(context.Background(), admin))
	adminToken, _, err := env.auth.Tokens.Issue(admin.ID.String(), string(admin.Role))
	require.NoError(t, err)

	rec := env.do(t, multipartRequest(t, http.MethodPost, "/adverts", advertFields("Pepper", "5"), []byte("img")), owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[transport.AdvertEnvelope](t, rec).Data

	rec = env.do(t, multipartRequest(t, http.MethodPut, "/adverts/"+created.ID, advertFields("Hot Pepper", "6"), nil), adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	replaced := decode[transport.AdvertEnvelope](t, rec).Data
	assert.Equal(t, created.Owner, replaced.Owner)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/adverts/"+created.ID, nil), adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "kofi@farm.gh", "vendor")

	user, err := env.repo.UserByEmail(context.Background(), "kofi@farm.gh")
	require.NoError(t, err)

	past := tokens.NewIssuer([]byte("test-jwt-secret"), 5*time.Minute).
		WithClock(func() time.Time { return time.Now().Add(-10 * time.Minute) })
	stale, _, err := past.Issue(user.ID.String(), string(user.Role))
	require.NoError(t, err)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/user/me", nil), stale)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestAuthenticationFailures(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.signup(t, "kofi@farm.gh", "vendor")

	ghost, _, err := env.auth.Tokens.Issue(uuid.NewString(), "vendor")
	require.NoError(t, err)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/user/me", nil), ghost)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "user not found")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/user/me", nil), "abc.def.ghi")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/user/me", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	// a valid token against an unreachable store is a server fault, not a bad login
	require.NoError(t, db.Close(env.db))
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/adverts/user/me", nil), vendor)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAIEndpoints(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.signup(t, "kofi@farm.gh", "vendor")
	buyer := env.signup(t, "ama@farm.gh", "user")

	rec := env.do(t, jsonRequest(http.MethodPost, "/ai/generate-image", `{"description":"ripe mangoes"}`), vendor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img := decode[transport.GenerateImageResponse](t, rec)
	assert.Equal(t, "jpeg", img.Format)
	assert.NotEmpty(t, img.ImageBase64)

	rec = env.do(t, jsonRequest(http.MethodPost, "/ai/generate-image", `{"description":"ripe mangoes"}`), buyer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, jsonRequest(http.MethodPost, "/ai/generate-image", `{}`), vendor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.gen.text = `{"min_price": 10, "max_price": 15, "reasoning": "dry season"}`
	rec = env.do(t, formRequest(http.MethodPost, "/ai/suggest-price", url.Values{"title": {"Mangoes"}, "category": {"Fruits"}}), vendor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	price := decode[transport.PriceSuggestionResponse](t, rec)
	assert.Equal(t, 10.0, price.MinPrice)
	assert.Equal(t, 15.0, price.MaxPrice)

	env.gen.text = `{"score": 64, "feedback": "mention the variety"}`
	rec = env.do(t, jsonRequest(http.MethodPost, "/ai/score-quality", `{"title":"Mangoes","description":"sweet"}`), vendor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 64, decode[transport.QualityScoreResponse](t, rec).Score)

	env.gen.text = "Juicy Kent mangoes from Somanya."
	rec = env.do(t, jsonRequest(http.MethodPost, "/ai/generate-description", `{"title":"Mangoes"}`), vendor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Juicy Kent mangoes from Somanya.", decode[transport.DescriptionResponse](t, rec).Description)

	env.gen.err = io.ErrUnexpectedEOF
	rec = env.do(t, jsonRequest(http.MethodPost, "/ai/generate-description", `{"title":"Mangoes"}`), vendor)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
