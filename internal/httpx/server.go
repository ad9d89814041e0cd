package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(requestTimeout time.Duration) *chi.Mux {
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(requestTimeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// authContext is the gateway-verified identity: the edge strips and re-sets
// these headers, so inside the mesh they are trusted.
type authContext struct {
	CustomerID string
	Role       string
}

func auth(r *http.Request) authContext {
	return authContext{
		CustomerID: r.Header.Get("X-Customer-Id"),
		Role:       r.Header.Get("X-Role"),
	}
}

func (a authContext) staff() bool { return a.Role == "admin" || a.Role == "ops" }
