package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// App serves the read-only summary API over one generator database.
type App struct {
	db      *DB
	timeout time.Duration
	logReqs bool
}

// NewApp creates an App over db. A zero timeout disables the per-request limit.
func NewApp(db *sql.DB, timeout time.Duration, logReqs bool) *App {
	return &App{db: NewDB(db), timeout: timeout, logReqs: logReqs}
}

// Handler returns the router with CORS and panic recovery in front of /api.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	if a.logReqs {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(allowCrossOrigin)
	if a.timeout > 0 {
		r.Use(middleware.Timeout(a.timeout))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/", a.handleIndex)
		r.Get("/functions", a.handleFunctions)
		r.Get("/summary", a.handleSummary)
		r.Get("/shared", a.handleShared)
		r.Get("/overview", a.handleOverview)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/", http.StatusFound)
	})
	return r
}

// allowCrossOrigin lets a browser page on another origin read the API.
func allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
