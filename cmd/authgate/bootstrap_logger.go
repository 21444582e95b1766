package main

import (
	"fmt"

	config "github.com/NordCoder/Authgate/internal/config/authgate"
	"github.com/NordCoder/Authgate/internal/obs"

	"go.uber.org/zap"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger.Named("authgate"), nil
}
