package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/ledger-bot/internal/config"
)

func TestPoolConfigSetsSessionLimits(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL:        "postgres://u:p@h:5432/db?sslmode=disable",
		DBMaxConns:         8,
		DBMinConns:         1,
		DBStatementTimeout: 5 * time.Second,
		DBLockTimeout:      1500 * time.Millisecond,
		DBAppName:          "ledgerctl",
	}

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)

	params := pc.ConnConfig.RuntimeParams
	assert.Equal(t, "5000", params["statement_timeout"])
	assert.Equal(t, "1500", params["lock_timeout"])
	assert.Equal(t, "10000", params["idle_in_transaction_session_timeout"])
	assert.Equal(t, "UTC", params["TimeZone"])
	assert.Equal(t, "ledgerctl", params["application_name"])
}

func TestPoolConfigBadDSN(t *testing.T) {
	_, err := PoolConfig(&config.Config{DatabaseURL: "postgres://%zz"})
	assert.Error(t, err)
}
