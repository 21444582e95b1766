package main

import (
	"context"

	config "github.com/NordCoder/Authgate/internal/config/authgate"
	domainauth "github.com/NordCoder/Authgate/internal/domain/auth"
	"github.com/NordCoder/Authgate/internal/domain/outbox"
	"github.com/NordCoder/Authgate/internal/domain/user"
	"github.com/NordCoder/Authgate/internal/repository/memory"
	pg "github.com/NordCoder/Authgate/internal/repository/postgres"

	"go.uber.org/zap"
)

type storage struct {
	users  user.Repo
	tokens domainauth.RefreshTokenRepo
	// tx and outbox stay nil for the memory driver
	tx     pg.Transactor
	outbox outbox.Repository
	health func(context.Context) error
	close  func()
}

func initStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.DB.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		db := memory.New(nil)
		return &storage{
			users:  db,
			tokens: db.Tokens(),
			health: func(context.Context) error { return nil },
			close:  func() {},
		}, nil
	}

	db, err := pg.NewDB(ctx, cfg.DB.Config)
	if err != nil {
		return nil, err
	}
	if cfg.DB.Migrate {
		if err := pg.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}
	return &storage{
		users:  pg.NewUserRepo(db),
		tokens: pg.NewRefreshTokenRepo(db),
		tx:     pg.NewTransactor(db, logger),
		outbox: pg.NewOutboxRepo(db),
		health: db.Ping,
		close:  db.Close,
	}, nil
}
