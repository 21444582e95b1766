package main

import (
	"context"
	"fmt"

	config "github.com/NordCoder/Authgate/internal/config/authgate"
	"github.com/NordCoder/Authgate/internal/obs"
)

func initOTel(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	tr, err := obs.SetupOTel(ctx, cfg.AsOTELConfig())
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	return tr.Shutdown, nil
}
