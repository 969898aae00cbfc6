package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/morerecipes/apiserver/config"
	"github.com/morerecipes/apiserver/internal/auth"
	"github.com/morerecipes/apiserver/internal/services"
	"github.com/morerecipes/apiserver/internal/storage"
	"github.com/morerecipes/apiserver/internal/store/memstore"
	"github.com/morerecipes/apiserver/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	router http.Handler
	tokens *auth.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memstore.New()
	v := validation.New()
	tokens, err := auth.NewTokenService("handler-secret")
	require.NoError(t, err)

	users := services.NewUserService(st.Users(), auth.NewBcryptHasher(bcrypt.MinCost), tokens, v, time.Hour, logger)
	recipes := services.NewRecipeService(st.Recipes(), st.Users(), v, config.PaginationConfig{DefaultLimit: 2, MaxLimit: 100}, nil, logger)
	images := services.NewImageService(storage.New(storage.NewMemoryBackend("recipes"), "http://cdn.local"), st.Users())

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Route("/auth", func(r chi.Router) { AuthRouter(r, users, tokens, logger) })
	r.Route("/recipes", func(r chi.Router) { RecipeRouter(r, recipes, images, tokens, logger) })
	return &testAPI{router: r, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, username string) (int, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"fullname":         username + " Tester",
		"username":         username,
		"email":            username + "@example.com",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		User  struct{ ID int } `json:"user"`
		Token string           `json:"token"`
	}
	decode(t, rec, &body)
	return body.User.ID, body.Token
}

func (a *testAPI) createRecipe(t *testing.T, token, name string) int {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/recipes", token, map[string]string{
		"name": name, "description": "tasty", "ingredient": "salt",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Recipe struct{ ID int } `json:"recipe"`
	}
	decode(t, rec, &body)
	return body.Recipe.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	decode(t, rec, &body)
	return body
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	api := newTestAPI(t)
	id, token := api.register(t, "ada")

	rec := api.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	decode(t, rec, &me)
	assert.EqualValues(t, id, me["id"])
	assert.Equal(t, "ada", me["username"])
	assert.NotContains(t, me, "email")
	assert.NotContains(t, me, "password_hash")

	rec = api.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	decode(t, rec, &login)
	assert.NotEmpty(t, login.Message)
	claims, err := api.tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
}

func TestAuth_Failures(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "ada")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		kind   services.Kind
	}{
		{"duplicate user", "/auth/register", map[string]string{"fullname": "A", "username": "other", "email": "ada@example.com", "password": "secret1", "confirm_password": "secret1"}, http.StatusConflict, services.KindDuplicateUser},
		{"password mismatch", "/auth/register", map[string]string{"fullname": "B", "username": "bob", "email": "bob@example.com", "password": "secret1", "confirm_password": "secret2"}, http.StatusBadRequest, services.KindPasswordMismatch},
		{"register validation", "/auth/register", map[string]string{"username": "b"}, http.StatusBadRequest, services.KindValidation},
		{"unknown email", "/auth/login", map[string]string{"email": "ghost@example.com", "password": "secret1"}, http.StatusNotFound, services.KindUserNotFound},
		{"wrong password", "/auth/login", map[string]string{"email": "ada@example.com", "password": "nope"}, http.StatusUnauthorized, services.KindInvalidCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, tc.path, "", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.kind, errorOf(t, rec).Kind)
		})
	}
}

func TestAuth_Tokens(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, services.KindInvalidToken, errorOf(t, rec).Kind)

	rec = api.do(t, http.MethodGet, "/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  1,
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("handler-secret"))
	require.NoError(t, err)
	rec = api.do(t, http.MethodGet, "/auth/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, services.KindExpiredToken, errorOf(t, rec).Kind)

	other, err := auth.NewTokenService("another-secret")
	require.NoError(t, err)
	forged, err := other.Issue(auth.Claims{UserID: 1}, auth.IssueOptions{})
	require.NoError(t, err)
	rec = api.do(t, http.MethodGet, "/auth/me", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_AccessTokenHeader(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.register(t, "ada")

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("x-access-token", token)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecipes_Lifecycle(t *testing.T) {
	api := newTestAPI(t)
	_, adaToken := api.register(t, "ada")
	_, bobToken := api.register(t, "bob")
	id := api.createRecipe(t, adaToken, "Stew")
	path := "/recipes/" + strconv.Itoa(id)

	rec := api.do(t, http.MethodPost, "/recipes", adaToken, map[string]string{"name": "Stew", "description": "d", "ingredient": "i"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, services.KindDuplicateRecipe, errorOf(t, rec).Kind)

	rec = api.do(t, http.MethodPost, "/recipes", "", map[string]string{"name": "x", "description": "d", "ingredient": "i"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var got struct {
		Recipe struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Views       int    `json:"views"`
		} `json:"recipe"`
	}
	rec = api.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Equal(t, 1, got.Recipe.Views)

	rec = api.do(t, http.MethodGet, path, adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Equal(t, 1, got.Recipe.Views)

	rec = api.do(t, http.MethodGet, path, "not-a-token", nil)
	require.Equal(t, http.StatusOK, rec.Code, "bad tokens on optional routes read anonymously")
	decode(t, rec, &got)
	assert.Equal(t, 3, got.Recipe.Views)

	rec = api.do(t, http.MethodPut, path, bobToken, map[string]string{"name": "Mine"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "recipe not found", errorOf(t, rec).Error)

	rec = api.do(t, http.MethodPut, path, adaToken, map[string]string{"description": "richer"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Equal(t, "Stew", got.Recipe.Name)
	assert.Equal(t, "richer", got.Recipe.Description)

	rec = api.do(t, http.MethodPut, path, adaToken, map[string]string{"image_url": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec).Fields, "image_url")

	rec = api.do(t, http.MethodDelete, path, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, path, adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/recipes/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecipes_List(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.register(t, "ada")
	for _, name := range []string{"a", "b", "c"} {
		api.createRecipe(t, token, name)
	}

	var page struct {
		Meta struct {
			TotalCount  int `json:"total_count"`
			Limit       int `json:"limit"`
			PageCount   int `json:"page_count"`
			CurrentPage int `json:"current_page"`
		} `json:"pagination_meta"`
		Recipes []struct {
			Name string `json:"name"`
		} `json:"recipes"`
	}

	rec := api.do(t, http.MethodGet, "/recipes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	assert.Equal(t, 3, page.Meta.TotalCount)
	assert.Equal(t, 2, page.Meta.Limit)
	assert.Equal(t, 2, page.Meta.PageCount)
	assert.Equal(t, 1, page.Meta.CurrentPage)
	require.Len(t, page.Recipes, 2)
	assert.Equal(t, "a", page.Recipes[0].Name)

	rec = api.do(t, http.MethodGet, "/recipes?limit=1&offset=0&order=DESC", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	require.Len(t, page.Recipes, 1)
	assert.Equal(t, "c", page.Recipes[0].Name)

	rec = api.do(t, http.MethodGet, "/recipes?limit=two", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec).Fields, "limit")

	rec = api.do(t, http.MethodGet, "/recipes?offset=-3", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecipes_InvalidBody(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.register(t, "ada")

	req := httptest.NewRequest(http.MethodPost, "/recipes", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.KindValidation, errorOf(t, rec).Kind)
}

func TestImages_Upload(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.register(t, "ada")

	upload := func(contentType string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="dish.png"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/recipes/images", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("image/png", []byte("\x89PNG"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		ImageURL string `json:"image_url"`
		Key      string `json:"key"`
	}
	decode(t, rec, &body)
	assert.Regexp(t, `^recipes/\d+/[0-9a-f-]{36}\.png$`, body.Key)
	assert.Equal(t, "http://cdn.local/"+body.Key, body.ImageURL)

	rec = upload("text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec).Fields, "image")
}

func TestStatusFor(t *testing.T) {
	tests := map[services.Kind]int{
		services.KindValidation:         http.StatusBadRequest,
		services.KindDuplicateRecipe:    http.StatusConflict,
		services.KindDuplicateUser:      http.StatusConflict,
		services.KindNotFound:           http.StatusNotFound,
		services.KindUserNotFound:       http.StatusNotFound,
		services.KindForbidden:          http.StatusNotFound,
		services.KindPasswordMismatch:   http.StatusBadRequest,
		services.KindInvalidCredentials: http.StatusUnauthorized,
		services.KindPersistence:        http.StatusBadRequest,
		services.KindInvalidToken:       http.StatusUnauthorized,
		services.KindExpiredToken:       http.StatusUnauthorized,
		services.Kind("mystery"):        http.StatusInternalServerError,
	}
	for kind, status := range tests {
		assert.Equal(t, status, statusFor(kind), kind)
	}
}
