package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/drag/pkg/api/handlers"
	"github.com/cbodonnell/drag/pkg/api/middleware"
	authproviders "github.com/cbodonnell/drag/pkg/auth/providers"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/repositories"
	"github.com/cbodonnell/drag/pkg/store"
	"github.com/gorilla/mux"
)

// APIServer exposes open lobbies, live games and local history over HTTP.
type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port  int
	TLS   *TLSConfig
	Store store.Store
	// History is optional. Without it the history routes are not served.
	History repositories.Repository
	// AuthProvider is optional. When set the history routes require a valid
	// bearer token.
	AuthProvider authproviders.AuthProvider
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewRouter(opts),
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// NewRouter builds the API routes.
func NewRouter(opts NewAPIServerOptions) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.CORS)

	r.HandleFunc("/health", handlers.HandleHealth()).Methods(http.MethodGet)
	r.HandleFunc("/lobbies", handlers.HandleListLobbies(opts.Store)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/games/{gameID}", handlers.HandleGetGame(opts.Store)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/games/{gameID}/watch", handlers.HandleWatchGame(opts.Store)).Methods(http.MethodGet)

	if opts.History != nil {
		history := r.PathPrefix("/history").Subrouter()
		history.Use(middleware.NewAuthMiddleware(opts.AuthProvider))
		history.HandleFunc("", handlers.HandleListHistory(opts.History)).Methods(http.MethodGet, http.MethodOptions)
		history.HandleFunc("/{gameID}", handlers.HandleGetHistory(opts.History)).Methods(http.MethodGet, http.MethodOptions)
	}
	return r
}

// Start starts the APIServer
func (s *APIServer) Start() {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
