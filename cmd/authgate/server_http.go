package main

import (
	"context"
	"net/http"
	"time"

	config "github.com/NordCoder/Authgate/internal/config/authgate"
	"github.com/NordCoder/Authgate/internal/httpx"
	"github.com/NordCoder/Authgate/internal/obs"
	authsvc "github.com/NordCoder/Authgate/internal/services/authgate/auth"
	userssvc "github.com/NordCoder/Authgate/internal/services/authgate/users"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func buildRouter(cfg *config.Config, logger *zap.Logger, health func(context.Context) error, authUC *authsvc.Usecase, usersUC *userssvc.Usecase) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = httpx.NotFound()
	r.MethodNotAllowedHandler = httpx.MethodNotAllowed()
	r.Use(obs.AccessLog(logger))

	r.Handle("/metrics", obs.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", obs.HealthHandler(health)).Methods(http.MethodGet)

	authsvc.NewController(authUC, logger).Register(r)
	userssvc.NewController(usersUC, authUC, logger).Register(r)

	return obs.HTTPHandler(httpx.CORS(cfg.CORS)(r), "authgate.http")
}

func buildHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}
