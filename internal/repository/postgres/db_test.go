package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig_AppliesOverrides(t *testing.T) {
	pcfg, err := poolConfig(Config{
		DSN:             "postgres://u:p@localhost:5432/authgate?sslmode=disable",
		MaxConns:        7,
		MaxConnLifetime: time.Minute,
		ConnectTimeout:  3 * time.Second,
		ApplicationName: "authgate",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(7), pcfg.MaxConns)
	assert.Equal(t, time.Minute, pcfg.MaxConnLifetime)
	assert.Equal(t, 3*time.Second, pcfg.ConnConfig.ConnectTimeout)
	assert.Equal(t, "authgate", pcfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_KeepsDefaults(t *testing.T) {
	base, err := poolConfig(Config{DSN: "postgres://u:p@localhost:5432/authgate"})
	require.NoError(t, err)
	assert.Positive(t, base.MaxConns)
	assert.NotContains(t, base.ConnConfig.RuntimeParams, "application_name")
}

func TestPoolConfig_BadDSN(t *testing.T) {
	_, err := poolConfig(Config{DSN: "postgres://%zz"})
	require.Error(t, err)
}

func TestWithTimeout(t *testing.T) {
	db := &DB{}
	ctx, cancel := db.withTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	db.QueryTimeout = time.Second
	ctx, cancel2 := db.withTimeout(context.Background())
	defer cancel2()
	_, ok = ctx.Deadline()
	assert.True(t, ok)
}
