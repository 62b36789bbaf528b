package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(s *echo.Echo) {
	s.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	s.GET("/boom", func(echo.Context) error { panic("boom") })
}

func TestServerRecoversAndTagsRequests(t *testing.T) {
	srv := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv.RegisterRouter(pingRoutes{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("expected request id header")
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected recovered panic as 500, got %d", rec.Code)
	}
}
