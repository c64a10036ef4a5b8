package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-user-registry/internal/api"
	"github.com/FACorreiaa/go-user-registry/internal/api/auth"
	"github.com/FACorreiaa/go-user-registry/internal/api/transfer"
	"github.com/FACorreiaa/go-user-registry/internal/api/user"
)

// Config carries the handlers and middleware the router mounts. Server-wide
// middleware (request ID, recoverer, request logger) is applied in main,
// before mounting this router.
type Config struct {
	UserHandler        user.Handler
	TransferHandler    transfer.Handler
	AuthHandler        *auth.AuthHandler
	InternalMiddleware func(http.Handler) http.Handler
	Version            string
}

// SetupRouter wires all API routes.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Internal-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, req *http.Request) {
			api.WriteJSONResponse(w, req, http.StatusOK, map[string]string{"version": cfg.Version})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", cfg.UserHandler.ListUsers)
			r.Post("/", cfg.UserHandler.CreateUser)
			r.Get("/{userID}", cfg.UserHandler.GetUser)
			r.Put("/{userID}", cfg.UserHandler.ReplaceUser)
			r.Patch("/{userID}", cfg.UserHandler.PatchUser)
			r.Delete("/{userID}", cfg.UserHandler.DeleteUser)

			r.Post("/import/csv", cfg.TransferHandler.ImportCSV)
			r.Post("/import/json", cfg.TransferHandler.ImportJSON)
			r.Get("/export/csv", cfg.TransferHandler.ExportCSV)
		})

		// Service-to-service only; guarded by the shared internal token.
		r.Group(func(r chi.Router) {
			r.Use(cfg.InternalMiddleware)
			r.Post("/internal/verify-password", cfg.AuthHandler.VerifyPassword)
		})
	})

	return r
}
