package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*mux.Router, *fixture) {
	t.Helper()
	f := newFixture(t)
	r := mux.NewRouter()
	NewController(f.uc, nil).Register(r)
	return r, f
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestController_RegisterLoginFlow(t *testing.T) {
	r, _ := newRouter(t)

	rec := do(t, r, http.MethodPost, "/api/auth/register", `{"email":"x@example.com","password":"pw-123456"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reg := decodeBody[AuthResult](t, rec)
	assert.True(t, reg.Success)
	require.NotNil(t, reg.Tokens)

	rec = do(t, r, http.MethodPost, "/api/auth/register", `{"email":"x@example.com","password":"pw-123456"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeBody[AuthResult](t, rec).Success)

	rec = do(t, r, http.MethodPost, "/api/auth/login", `{"email":"x@example.com","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgBadCredentials, decodeBody[AuthResult](t, rec).Message)

	rec = do(t, r, http.MethodPost, "/api/auth/login", `{"email":"x@example.com","password":"pw-123456"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeBody[AuthResult](t, rec)
	require.NotNil(t, login.Tokens)

	rec = do(t, r, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+login.Tokens.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rot := decodeBody[RefreshResult](t, rec)
	require.True(t, rot.Success)

	rec = do(t, r, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+login.Tokens.RefreshToken+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/auth/logout", `{"refreshToken":"`+rot.Tokens.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[StatusResult](t, rec).Success)

	rec = do(t, r, http.MethodPost, "/api/auth/logout", `{"refreshToken":"`+rot.Tokens.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody[StatusResult](t, rec)
	assert.False(t, out.Success)
	assert.Equal(t, MsgTokenNotFound, out.Message)
}

func TestController_LogoutAllRequiresBearer(t *testing.T) {
	r, f := newRouter(t)
	reg := f.register(t, "y@example.com")

	rec := do(t, r, http.MethodPost, "/api/auth/logout-all", ``, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"unauthorized"}`, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/api/auth/logout-all", ``,
		map[string]string{"Authorization": "Bearer " + reg.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/auth/logout-all", ``,
		map[string]string{"Authorization": "Bearer " + reg.Tokens.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgLoggedOutAll, decodeBody[StatusResult](t, rec).Message)
	assert.Equal(t, 0, f.tokens.CountForOwner(reg.User.ID))
}

func TestController_Validation(t *testing.T) {
	r, _ := newRouter(t)

	rec := do(t, r, http.MethodPost, "/api/auth/register", `{"email":`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "Validation Failed", body["message"])

	rec = do(t, r, http.MethodPost, "/api/auth/login", `{"email":"a@b.c"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var v struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "required", v.Details["password"])
}

func TestController_RegisterPasswordTooLong(t *testing.T) {
	r, _ := newRouter(t)

	long := strings.Repeat("p", 73)
	rec := do(t, r, http.MethodPost, "/api/auth/register", `{"email":"long@x.com","password":"`+long+`"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var v struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "too long", v.Details["password"])
}

func TestController_RefreshTokenRequired(t *testing.T) {
	r, _ := newRouter(t)

	for _, path := range []string{"/api/auth/refresh", "/api/auth/logout"} {
		rec := do(t, r, http.MethodPost, path, `{}`, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, path)
		var v struct {
			Message string            `json:"message"`
			Details map[string]string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
		assert.Equal(t, "Validation Failed", v.Message)
		assert.Equal(t, "required", v.Details["refreshToken"], path)
	}
}
