package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"authgate/internal/repository/memory"
	"authgate/internal/service"
	"authgate/internal/token"
)

const testOrigin = "http://localhost:3000"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sessions := service.NewSessionService(
		memory.NewUserRepository(),
		token.NewIssuer(cfg),
		token.NewVerifier(cfg),
		logger,
	)

	router := gin.New()
	handler := NewHandler(sessions, cfg.RefreshTTL)
	handler.RegisterRoutes(router, testOrigin)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatalf("refresh cookie not set")
	return nil
}

func registerAndLogin(t *testing.T, router *gin.Engine) (string, *http.Cookie) {
	t.Helper()

	creds := gin.H{"email": "alice@example.com", "password": "s3cret"}
	rec := doJSON(t, router, http.MethodPost, "/register", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "User Created!", decodeBody(t, rec)["message"])

	rec = doJSON(t, router, http.MethodPost, "/login", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.NotEmpty(t, body["accessToken"])
	require.Equal(t, "alice@example.com", body["email"])

	return body["accessToken"], refreshCookie(t, rec)
}

func TestLogin_SetsConfidentialCookie(t *testing.T) {
	router := newTestRouter(t)

	_, cookie := registerAndLogin(t, router)
	require.True(t, cookie.HttpOnly, "refresh cookie must be inaccessible to script")
	require.Equal(t, refreshCookiePath, cookie.Path)
	require.NotEmpty(t, cookie.Value)
}

func TestLogin_BadCredentials(t *testing.T) {
	router := newTestRouter(t)
	registerAndLogin(t, router)

	rec := doJSON(t, router, http.MethodPost, "/login", gin.H{"email": "alice@example.com", "password": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotEmpty(t, decodeBody(t, rec)["message"])

	rec = doJSON(t, router, http.MethodPost, "/login", gin.H{"email": "ghost@example.com", "password": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_Duplicate(t *testing.T) {
	router := newTestRouter(t)
	registerAndLogin(t, router)

	rec := doJSON(t, router, http.MethodPost, "/register", gin.H{"email": "alice@example.com", "password": "other"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "user already exists", decodeBody(t, rec)["message"])
}

func TestProtected(t *testing.T) {
	router := newTestRouter(t)
	accessToken, _ := registerAndLogin(t, router)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "This is protected data.", decodeBody(t, rec)["data"])
}

func TestProtected_Unauthorized(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/protected", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestRefresh_RotatesCookie(t *testing.T) {
	router := newTestRouter(t)
	_, cookie := registerAndLogin(t, router)

	rec := doJSON(t, router, http.MethodPost, "/refresh_token", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, decodeBody(t, rec)["accessToken"])

	rotated := refreshCookie(t, rec)
	require.NotEqual(t, cookie.Value, rotated.Value)

	// the old cookie was rotated out: replaying it soft-fails
	rec = doJSON(t, router, http.MethodPost, "/refresh_token", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodeBody(t, rec)["accessToken"])

	// the rotated cookie still works
	rec = doJSON(t, router, http.MethodPost, "/refresh_token", nil, rotated)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, decodeBody(t, rec)["accessToken"])
}

func TestRefresh_NoCookieSoftPath(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/refresh_token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	value, ok := body["accessToken"]
	require.True(t, ok)
	require.Empty(t, value)
}

func TestLogout_ClearsCookie(t *testing.T) {
	router := newTestRouter(t)
	registerAndLogin(t, router)

	rec := doJSON(t, router, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Logged Out!", decodeBody(t, rec)["message"])

	cleared := refreshCookie(t, rec)
	require.Empty(t, cleared.Value)
	require.Less(t, cleared.MaxAge, 0)
}

func TestCORS(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
