// Package pgtest поднимает пул к тестовой БД для интеграционных тестов репозиториев.
// Без LEDGER_TEST_DATABASE_URL тесты пропускаются.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/ledger-bot/internal/db/postgres"
)

// EnvDatabaseURL — переменная окружения со строкой подключения к тестовой БД.
const EnvDatabaseURL = "LEDGER_TEST_DATABASE_URL"

// Pool применяет миграции и возвращает пул.
// Таблицы не очищаются: пакеты тестов идут параллельно,
// поэтому каждый тест заводит свои счета через Username.
// Пул закрывается через t.Cleanup.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skipf("%s не задан, интеграционный тест пропущен", EnvDatabaseURL)
	}

	require.NoError(t, postgres.RunMigrations(dsn))

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// Username возвращает уникальное имя пользователя вида prefix_1a2b3c4d.
// prefix должен быть не длиннее 11 символов, чтобы уложиться в 20.
func Username(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}
