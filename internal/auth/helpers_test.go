package auth_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/rentora-erp/rentora-erp/internal/auth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mountAndServe(handler *auth.Handler, res *httptest.ResponseRecorder, req *http.Request) {
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	r.ServeHTTP(res, req)
}
