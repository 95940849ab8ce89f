package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/db/postgres"
	"serotonyl.ru/ledger-bot/internal/db/postgres/pgtest"
)

func TestRepositoryRoundTrip(t *testing.T) {
	pool := pgtest.Pool(t)
	ctx := context.Background()
	repo := NewRepository(pool)

	username := pgtest.Username("repo")
	id, err := repo.Create(ctx, NewAccount{
		Username:       username,
		PinHash:        "$argon2id$v=19$m=64,t=1,p=1$AAAA",
		Salt:           "0011223344556677",
		InitialBalance: decimal.RequireFromString("12.34"),
	})
	require.NoError(t, err)

	acc, err := repo.FindByUsername(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, id, acc.ID)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("12.34")))
	assert.Zero(t, acc.LockedUntil)

	_, err = repo.Create(ctx, NewAccount{Username: username, PinHash: "x", Salt: "0011223344556677"})
	assert.ErrorIs(t, err, common.ErrDuplicateUsername)

	acc.FailedAttempts = 2
	acc.LockedUntil = time.Now().Unix() + 60
	require.NoError(t, repo.UpdateAuthState(ctx, acc))

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FailedAttempts)
	assert.Equal(t, acc.LockedUntil, got.LockedUntil)

	require.NoError(t, repo.LogLogin(ctx, id, false, "test", time.Now()))

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)
}

func TestRepositoryFindForUpdateInTx(t *testing.T) {
	pool := pgtest.Pool(t)
	ctx := context.Background()

	id, err := NewRepository(pool).Create(ctx, NewAccount{
		Username: pgtest.Username("lock"),
		PinHash:  "x",
		Salt:     "0011223344556677",
	})
	require.NoError(t, err)

	err = postgres.WithTx(ctx, pool, func(tx pgx.Tx) error {
		repo := NewRepository(tx)
		acc, err := repo.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return repo.UpdateBalance(ctx, acc.ID, acc.Balance.Add(decimal.NewFromInt(5)))
	})
	require.NoError(t, err)

	acc, err := NewRepository(pool).FindByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(5)))
}

func TestRepositoryNotFound(t *testing.T) {
	pool := pgtest.Pool(t)
	repo := NewRepository(pool)

	_, err := repo.FindByUsername(context.Background(), pgtest.Username("ghost"))
	assert.ErrorIs(t, err, common.ErrAccountNotFound)

	err = repo.UpdateBalance(context.Background(), -1, decimal.Zero)
	assert.ErrorIs(t, err, common.ErrAccountNotFound)
}
