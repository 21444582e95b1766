// Command migrator applies the embedded schema migrations.
//
//	migrator [-dsn URL] [-timeout 1m] [up|down|status|redo|version ...]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/NordCoder/Authgate/internal/obs"
	"github.com/NordCoder/Authgate/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func defaultDSN() string {
	if v := os.Getenv("DB_DSN"); v != "" {
		return v
	}
	return os.Getenv("DATABASE_URL")
}

func main() {
	dsn := flag.String("dsn", defaultDSN(), "postgres connection string")
	timeout := flag.Duration("timeout", time.Minute, "overall migration timeout")
	flag.Parse()

	logger, err := obs.NewLogger(obs.LogConfig{Level: "info", Service: "authgate-migrator"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if *dsn == "" {
		logger.Fatal("no dsn: set -dsn, DB_DSN or DATABASE_URL")
	}
	command, args := "up", flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal("set dialect", zap.Error(err))
	}
	db, err := goose.OpenDBWithDriver("pgx", *dsn)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		logger.Fatal("migrate", zap.String("command", command), zap.Error(err))
	}
	logger.Info("migrations done", zap.String("command", command))
}
