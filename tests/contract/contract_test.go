// Package contract validates API responses against the OpenAPI document.
package contract

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/campusshare/campusshare/internal/auth"
	"github.com/campusshare/campusshare/internal/config"
	"github.com/campusshare/campusshare/internal/metrics"
	"github.com/campusshare/campusshare/internal/server"
	"github.com/campusshare/campusshare/internal/service"
	"github.com/campusshare/campusshare/internal/testutil"
	"github.com/campusshare/campusshare/internal/testutil/memstore"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// baseURL must match the first server entry in the document so routes resolve.
const baseURL = "http://localhost:5000"

func specPath(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("OPENAPI_SPEC_PATH"); p != "" {
		return p
	}
	root, err := testutil.ProjectRoot()
	require.NoError(t, err)
	return filepath.Join(root, "docs", "api", "openapi.yaml")
}

// loadSpec loads and validates the OpenAPI document.
func loadSpec(t *testing.T) (*openapi3.T, routers.Router) {
	t.Helper()

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath(t))
	require.NoError(t, err, "load OpenAPI document")
	require.NoError(t, doc.Validate(context.Background()), "OpenAPI document is invalid")

	router, err := gorillamux.NewRouter(doc)
	require.NoError(t, err)

	return doc, router
}

// contractClient drives the in-process API and checks every exchange
// against the document.
type contractClient struct {
	t       *testing.T
	api     http.Handler
	routes  routers.Router
	options *openapi3filter.Options
}

func newContractClient(t *testing.T) *contractClient {
	t.Helper()

	_, routes := loadSpec(t)

	cfg := &config.Config{
		AppEnv:             "test",
		JWTIssuer:          "campusshare",
		JWTAudience:        "campusshare-api",
		JWTTTL:             time.Hour,
		MaxRequestBodySize: 1 << 20,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memstore.New()
	cache := memstore.NewCache()
	rec := metrics.NewInMemory()
	tokens := auth.NewTokenManager(cfg.JWTIssuer, cfg.JWTAudience, "contract-test-secret-contract-test", cfg.JWTTTL)
	hasher := auth.NewHasher(auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})

	users, err := service.NewUserService(store, hasher, tokens, cache, rec, logger)
	require.NoError(t, err)

	borrows := service.NewBorrowService(store, store, rec)
	borrows.SetEventPublisher(store)

	api := server.NewRouter(cfg, logger, server.Dependencies{
		Resources:   service.NewResourceService(store, cache, time.Minute, rec, logger),
		Borrows:     borrows,
		Users:       users,
		Activity:    service.NewActivityService(store, store),
		Tokens:      tokens,
		Revocations: cache,
		DB:          store,
		Cache:       cache,
		Counts:      store,
		Metrics:     rec,
	})

	return &contractClient{
		t:      t,
		api:    api,
		routes: routes,
		options: &openapi3filter.Options{
			IncludeResponseStatus: true,
			AuthenticationFunc:    openapi3filter.NoopAuthenticationFunc,
		},
	}
}

func (c *contractClient) newRequest(method, path, token string, payload []byte) *http.Request {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, baseURL+path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// call sends the request, validates the request and response against the
// document, and returns the response.
func (c *contractClient) call(method, path, token string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(c.t, err)
	}

	req := c.newRequest(method, path, token, payload)
	route, params, err := c.routes.FindRoute(req)
	require.NoError(c.t, err, "%s %s is not documented", method, path)

	reqInput := &openapi3filter.RequestValidationInput{
		Request:    c.newRequest(method, path, token, payload),
		PathParams: params,
		Route:      route,
		Options:    c.options,
	}

	rec := httptest.NewRecorder()
	c.api.ServeHTTP(rec, req)

	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: reqInput,
		Status:                 rec.Code,
		Header:                 rec.Header(),
		Body:                   io.NopCloser(bytes.NewReader(rec.Body.Bytes())),
		Options:                c.options,
	})
	require.NoError(c.t, err, "%s %s -> %d: %s", method, path, rec.Code, rec.Body.String())

	return rec
}

// validRequest reports whether the document accepts the request as sent.
func (c *contractClient) validRequest(method, path, token string, body any) error {
	c.t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(c.t, err)

	req := c.newRequest(method, path, token, payload)
	route, params, err := c.routes.FindRoute(req)
	require.NoError(c.t, err)

	return openapi3filter.ValidateRequest(context.Background(), &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: params,
		Route:      route,
		Options:    c.options,
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestOpenAPISpecValid(t *testing.T) {
	doc, _ := loadSpec(t)

	for _, path := range []string{
		"/healthz",
		"/readyz",
		"/api/users/register",
		"/api/users/login",
		"/api/users/logout",
		"/api/resources",
		"/api/resources/{id}",
		"/api/resources/{id}/status",
		"/api/borrows",
		"/api/borrows/{id}",
		"/api/borrows/{id}/status",
		"/api/borrows/{id}/history",
	} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("path %s not documented", path)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	c := newContractClient(t)

	for _, path := range []string{"/healthz", "/readyz", "/api/health/detailed"} {
		t.Run(path, func(t *testing.T) {
			rec := c.call(http.MethodGet, path, "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestAccountFlow(t *testing.T) {
	c := newContractClient(t)

	register := map[string]string{"username": "alice", "email": "alice@example.com", "password": "secret123"}
	rec := c.call(http.MethodPost, "/api/users/register", "", register)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = c.call(http.MethodPost, "/api/users/register", "", register)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.call(http.MethodPost, "/api/users/login", "", map[string]string{"email": "alice@example.com", "password": "nope-nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.call(http.MethodPost, "/api/users/login", "", map[string]string{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string `json:"token"`
	}
	decode(t, rec, &login)

	rec = c.call(http.MethodPost, "/api/users/logout", login.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.call(http.MethodPost, "/api/users/logout", login.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.call(http.MethodPost, "/api/users/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResourceAndBorrowFlow(t *testing.T) {
	c := newContractClient(t)

	c.call(http.MethodPost, "/api/users/register", "", map[string]string{"username": "alice", "email": "alice@example.com", "password": "secret123"})
	rec := c.call(http.MethodPost, "/api/users/login", "", map[string]string{"email": "alice@example.com", "password": "secret123"})
	var login struct {
		Token string `json:"token"`
	}
	decode(t, rec, &login)
	token := login.Token

	rec = c.call(http.MethodGet, "/api/resources", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.call(http.MethodPost, "/api/resources", token, map[string]string{"title": "Calculator", "description": "TI-84", "owner": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resource struct {
		ID string `json:"id"`
	}
	decode(t, rec, &resource)

	rec = c.call(http.MethodPost, "/api/resources", token, map[string]string{"title": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.call(http.MethodGet, "/api/resources/"+resource.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.call(http.MethodGet, "/api/resources/does-not-exist", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.call(http.MethodPut, "/api/resources/"+resource.ID+"/status", token, map[string]string{"status": "Unavailable"})
	require.Equal(t, http.StatusOK, rec.Code)

	borrow := map[string]string{"resourceId": resource.ID, "borrower": "bob", "owner": "alice"}
	rec = c.call(http.MethodPost, "/api/borrows", token, borrow)
	require.Equal(t, http.StatusCreated, rec.Code)
	var request struct {
		ID string `json:"id"`
	}
	decode(t, rec, &request)

	rec = c.call(http.MethodPost, "/api/borrows", token, borrow)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.call(http.MethodPut, "/api/borrows/"+request.ID+"/status", token, map[string]string{"status": "Returned"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.call(http.MethodPut, "/api/borrows/"+request.ID+"/status", token, map[string]string{"status": "Approved"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.call(http.MethodGet, "/api/borrows/"+request.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.call(http.MethodGet, "/api/borrows/"+request.ID+"/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.call(http.MethodGet, "/api/borrows?owner=alice", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.call(http.MethodGet, "/api/borrows", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestSchemas(t *testing.T) {
	c := newContractClient(t)

	require.NoError(t, c.validRequest(http.MethodPost, "/api/users/register", "",
		map[string]string{"username": "a", "email": "a@example.com", "password": "secret123"}))
	require.Error(t, c.validRequest(http.MethodPost, "/api/users/register", "",
		map[string]string{"username": "a"}))
	require.Error(t, c.validRequest(http.MethodPost, "/api/borrows", "token",
		map[string]string{"borrower": "bob"}))
}
