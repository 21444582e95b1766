package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	authn "github.com/NordCoder/Authgate/internal/auth"
	config "github.com/NordCoder/Authgate/internal/config/authgate"
	"github.com/NordCoder/Authgate/internal/password"
	authsvc "github.com/NordCoder/Authgate/internal/services/authgate/auth"
	"github.com/NordCoder/Authgate/internal/services/authgate/janitor"
	userssvc "github.com/NordCoder/Authgate/internal/services/authgate/users"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("AUTHGATE_CONFIG"), "path to YAML config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting authgate",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("db_driver", cfg.DB.Driver),
	)

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := initStorage(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init", zap.Error(err))
	}
	defer st.close()

	ev, err := initEvents(rootCtx, cfg, logger, st)
	if err != nil {
		logger.Fatal("events init", zap.Error(err))
	}
	defer ev.close()

	issuerCfg := cfg.Auth.IssuerConfig()
	if issuerCfg.UsesDefaultSecrets() {
		logger.Warn("using development JWT secrets; set JWT_ACCESS_SECRET and JWT_REFRESH_SECRET")
	}
	issuer := authn.NewIssuer(issuerCfg)
	store := authn.NewStore(issuer, st.tokens)
	hasher := password.NewBcrypt(cfg.Auth.BcryptCost)

	authUC := authsvc.NewUseCase(authsvc.Deps{
		Users:    st.users,
		Tokens:   store,
		Verifier: issuer,
		Hasher:   hasher,
		Tx:       st.tx,
		Events:   ev.events,
		Logger:   logger,
	})
	usersUC := userssvc.New(userssvc.Deps{
		Users:   st.users,
		Revoker: store,
		Hasher:  hasher,
		Tx:      st.tx,
		Events:  ev.events,
		Logger:  logger,
	})

	var workers sync.WaitGroup
	workCtx, stopWork := context.WithCancel(rootCtx)
	defer stopWork()

	if cfg.Janitor.Enabled {
		j := janitor.New(logger, store, cfg.Janitor)
		workers.Add(1)
		go func() {
			defer workers.Done()
			_ = j.Run(workCtx)
		}()
	}
	if ev.runner != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			ev.runner.Run(workCtx)
		}()
	}

	gs, grpcLn, err := buildGRPCServer(cfg, logger)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	workers.Add(1)
	go func() {
		defer workers.Done()
		watchHealth(workCtx, gs.health, st.health, logger)
	}()

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(gs, grpcLn, cfg, logger) }()

	httpSrv := buildHTTPServer(cfg, buildRouter(cfg, logger, st.health, authUC, usersUC))
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-grpcErrCh:
		if err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	gracefulStopGRPC(gs)
	stopWork()
	workers.Wait()

	logger.Info("bye")
}
