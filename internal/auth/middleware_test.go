package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	principal Principal
	err       error
	gotToken  string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (Principal, error) {
	s.gotToken = token
	return s.principal, s.err
}

func doRequest(t *testing.T, authn Authenticator, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		p, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, map[string]string{"sub": p.Subject})
	}, Middleware(authn))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_PassesBearerTokenThrough(t *testing.T) {
	stub := &stubAuthenticator{principal: Principal{Subject: "user-1"}}
	rec := doRequest(t, stub, "Bearer tok-123")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tok-123", stub.gotToken)
	require.Contains(t, rec.Body.String(), "user-1")
}

func TestMiddleware_MissingToken(t *testing.T) {
	stub := &stubAuthenticator{err: ErrMissingToken}
	rec := doRequest(t, stub, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Missing authorization token")
	require.Empty(t, stub.gotToken)
}

func TestMiddleware_InvalidToken(t *testing.T) {
	stub := &stubAuthenticator{err: &InvalidTokenError{Err: errors.New("token is expired")}}
	rec := doRequest(t, stub, "Bearer expired")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid token: token is expired")
}

func TestMiddleware_AnonymousPassthroughNeedsNoHeader(t *testing.T) {
	rec := doRequest(t, AnonymousPassthrough{}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "anonymous")
}

func TestBearerToken_Parsing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	require.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "Bearer abc")
	require.Equal(t, "abc", bearerToken(req))

	req.Header.Set("Authorization", "bearer abc")
	require.Equal(t, "abc", bearerToken(req))
}
