package ledger

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/ledger-bot/internal/common"
	"serotonyl.ru/ledger-bot/internal/features/accounts"
)

// memStore — Store в памяти. Atomic сериализует операции и откатывает
// всё сделанное fn, если она вернула ошибку.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]accounts.Account
	records  []Record
	nextID   int64
	nextRec  int64
	clock    time.Time

	failAppend int // Если > 0, Append с этим порядковым номером вернёт ошибку
	appends    int
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[int64]accounts.Account),
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) Atomic(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	accSnap := maps.Clone(m.accounts)
	recSnap := slices.Clone(m.records)
	nextID, nextRec := m.nextID, m.nextRec

	if err := fn(&memTx{m: m}); err != nil {
		m.accounts = accSnap
		m.records = recSnap
		m.nextID, m.nextRec = nextID, nextRec
		return err
	}
	return nil
}

func (m *memStore) History(_ context.Context, accountID int64, f HistoryFilter) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Record
	for i := range m.records {
		r := m.records[i]
		if r.AccountID != accountID {
			continue
		}
		if !f.From.IsZero() && r.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !r.CreatedAt.Before(f.To) {
			continue
		}
		out = append(out, &r)
	}
	if f.NewestFirst {
		slices.Reverse(out)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) balance(id int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *memStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type memTx struct {
	m *memStore
}

func (t *memTx) LockAccount(_ context.Context, id int64) (*accounts.Account, error) {
	a, ok := t.m.accounts[id]
	if !ok {
		return nil, common.ErrAccountNotFound
	}
	return &a, nil
}

func (t *memTx) FindAccountByUsername(_ context.Context, username string) (*accounts.Account, error) {
	for _, a := range t.m.accounts {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, common.ErrAccountNotFound
}

func (t *memTx) CreateAccount(_ context.Context, acc accounts.NewAccount) (int64, error) {
	for _, a := range t.m.accounts {
		if a.Username == acc.Username {
			return 0, common.ErrDuplicateUsername
		}
	}
	t.m.nextID++
	t.m.accounts[t.m.nextID] = accounts.Account{
		ID:       t.m.nextID,
		Username: acc.Username,
		PinHash:  acc.PinHash,
		Salt:     acc.Salt,
		Balance:  acc.InitialBalance,
	}
	return t.m.nextID, nil
}

func (t *memTx) SetBalance(_ context.Context, id int64, balance decimal.Decimal) error {
	a, ok := t.m.accounts[id]
	if !ok {
		return common.ErrAccountNotFound
	}
	a.Balance = balance
	t.m.accounts[id] = a
	return nil
}

func (t *memTx) Append(_ context.Context, rec NewRecord) (*Record, error) {
	t.m.appends++
	if t.m.failAppend > 0 && t.m.appends == t.m.failAppend {
		return nil, common.StoreError("append", errors.New("connection lost"))
	}
	t.m.nextRec++
	t.m.clock = t.m.clock.Add(time.Minute)
	r := Record{
		ID:           t.m.nextRec,
		AccountID:    rec.AccountID,
		Type:         rec.Type,
		Amount:       rec.Amount,
		Counterparty: rec.Counterparty,
		Note:         rec.Note,
		CreatedAt:    t.m.clock,
	}
	t.m.records = append(t.m.records, r)
	return &r, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func open(t *testing.T, svc *Service, username, initial string) int64 {
	t.Helper()
	id, err := svc.OpenAccount(context.Background(), accounts.NewAccount{
		Username:       username,
		PinHash:        "hash",
		Salt:           "0011223344556677",
		InitialBalance: dec(initial),
	})
	require.NoError(t, err)
	return id
}

func TestOpenAccountWritesInitialDeposit(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)

	id := open(t, svc, "alice", "100")

	history, err := svc.History(context.Background(), id, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, TypeInitialDeposit, history[0].Type)
	assert.True(t, history[0].Amount.Equal(dec("100.00")))
	assert.True(t, store.balance(id).Equal(dec("100")))
}

func TestOpenAccountZeroBalanceHasNoRecord(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)

	open(t, svc, "bob", "0")
	assert.Zero(t, store.recordCount())
}

func TestOpenAccountDuplicate(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	open(t, svc, "alice", "10")

	_, err := svc.OpenAccount(context.Background(), accounts.NewAccount{Username: "alice", InitialBalance: dec("5")})
	assert.ErrorIs(t, err, common.ErrDuplicateUsername)
	assert.Equal(t, 1, store.recordCount())
}

func TestDepositThenWithdrawRestoresBalance(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	id := open(t, svc, "alice", "50.25")
	ctx := context.Background()
	before := store.recordCount()

	r, err := svc.Deposit(ctx, id, dec("19.99"))
	require.NoError(t, err)
	assert.True(t, r.Balance.Equal(dec("70.24")))

	r, err = svc.Withdraw(ctx, id, dec("19.99"))
	require.NoError(t, err)
	assert.True(t, r.Balance.Equal(dec("50.25")))

	assert.True(t, store.balance(id).Equal(dec("50.25")))
	assert.Equal(t, before+2, store.recordCount())
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	id := open(t, svc, "alice", "10")
	before := store.recordCount()

	_, err := svc.Withdraw(context.Background(), id, dec("10.01"))
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	assert.True(t, store.balance(id).Equal(dec("10")))
	assert.Equal(t, before, store.recordCount())

	// Ровно весь баланс снять можно
	r, err := svc.Withdraw(context.Background(), id, dec("10"))
	require.NoError(t, err)
	assert.True(t, r.Balance.IsZero())
}

func TestAmountValidation(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	id := open(t, svc, "alice", "10")
	ctx := context.Background()

	for _, amount := range []string{"0", "-5", "0.001"} {
		_, err := svc.Deposit(ctx, id, dec(amount))
		assert.True(t, common.IsValidation(err), amount)
		_, err = svc.Withdraw(ctx, id, dec(amount))
		assert.True(t, common.IsValidation(err), amount)
		_, err = svc.Transfer(ctx, id, "bob", dec(amount))
		assert.True(t, common.IsValidation(err), amount)
		_, err = svc.RecordSimulatedTransfer(ctx, id, "bob", dec(amount))
		assert.True(t, common.IsValidation(err), amount)
	}
	assert.Equal(t, 1, store.recordCount())
}

func TestDepositAboveBalanceLimitChangesNothing(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	id := open(t, svc, "alice", "999999999999.00")
	before := store.recordCount()

	_, err := svc.Deposit(context.Background(), id, dec("1.00"))
	assert.ErrorIs(t, err, common.ErrBalanceLimit)
	assert.False(t, common.IsValidation(err))
	assert.True(t, store.balance(id).Equal(dec("999999999999.00")))
	assert.Equal(t, before, store.recordCount())

	// До самого предела зачислить можно
	r, err := svc.Deposit(context.Background(), id, dec("0.99"))
	require.NoError(t, err)
	assert.True(t, r.Balance.Equal(common.MaxBalance))
}

func TestDepositAmountAboveColumnIsValidationError(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	id := open(t, svc, "alice", "0")

	_, err := svc.Deposit(context.Background(), id, dec("100000000000000"))
	assert.True(t, common.IsValidation(err))
	assert.True(t, store.balance(id).IsZero())
}

func TestTransferRecipientAboveBalanceLimit(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	alice := open(t, svc, "alice", "100")
	bob := open(t, svc, "bob", "999999999999.99")
	before := store.recordCount()

	_, err := svc.Transfer(context.Background(), alice, "bob", dec("0.01"))
	assert.ErrorIs(t, err, common.ErrBalanceLimit)
	assert.True(t, store.balance(alice).Equal(dec("100")))
	assert.True(t, store.balance(bob).Equal(common.MaxBalance))
	assert.Equal(t, before, store.recordCount())
}

func TestDepositUnknownAccount(t *testing.T) {
	svc := NewService(newMemStore())

	_, err := svc.Deposit(context.Background(), 99, dec("1"))
	assert.ErrorIs(t, err, common.ErrAccountNotFound)
}

func TestTransferMovesMoney(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	alice := open(t, svc, "alice", "100")
	bob := open(t, svc, "bob", "5")
	ctx := context.Background()

	r, err := svc.Transfer(ctx, alice, "@bob", dec("30.50"))
	require.NoError(t, err)
	assert.True(t, r.Balance.Equal(dec("69.50")))
	require.Len(t, r.Records, 2)

	assert.True(t, store.balance(alice).Equal(dec("69.50")))
	assert.True(t, store.balance(bob).Equal(dec("35.50")))

	out := r.Records[0]
	in := r.Records[1]
	assert.Equal(t, TypeTransferOut, out.Type)
	assert.Equal(t, alice, out.AccountID)
	assert.Equal(t, "bob", out.Counterparty)
	assert.Equal(t, TypeTransferIn, in.Type)
	assert.Equal(t, bob, in.AccountID)
	assert.Equal(t, "alice", in.Counterparty)
	assert.True(t, out.Amount.Equal(in.Amount))
}

func TestTransferFailuresChangeNothing(t *testing.T) {
	cases := []struct {
		name   string
		to     string
		amount string
		want   error
	}{
		{"не хватает денег", "bob", "100.01", common.ErrInsufficientFunds},
		{"себе", "alice", "1", common.ErrSelfTransfer},
		{"нет получателя", "carol", "1", common.ErrRecipientNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			svc := NewService(store)
			alice := open(t, svc, "alice", "100")
			bob := open(t, svc, "bob", "0")
			before := store.recordCount()

			_, err := svc.Transfer(context.Background(), alice, tc.to, dec(tc.amount))
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, store.balance(alice).Equal(dec("100")))
			assert.True(t, store.balance(bob).IsZero())
			assert.Equal(t, before, store.recordCount())
		})
	}
}

func TestTransferRollsBackOnStoreFailure(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	alice := open(t, svc, "alice", "100")
	bob := open(t, svc, "bob", "0")
	before := store.recordCount()

	// Второй Append (TransferIn) падает: TransferOut и балансы должны откатиться
	store.failAppend = store.appends + 2
	_, err := svc.Transfer(context.Background(), alice, "bob", dec("40"))
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	assert.True(t, store.balance(alice).Equal(dec("100")))
	assert.True(t, store.balance(bob).IsZero())
	assert.Equal(t, before, store.recordCount())
}

func TestRecordSimulatedTransferKeepsBalances(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	alice := open(t, svc, "alice", "10")
	bob := open(t, svc, "bob", "10")

	// Сумма больше баланса, получателя не существует — всё равно только запись
	rec, err := svc.RecordSimulatedTransfer(context.Background(), alice, "nobody", dec("1000000"))
	require.NoError(t, err)
	assert.Equal(t, TypeFakeTransfer, rec.Type)
	assert.Equal(t, SimulatedNote, rec.Note)
	assert.Equal(t, "nobody", rec.Counterparty)
	assert.Equal(t, DirectionNone, rec.Type.Direction())

	_, err = svc.RecordSimulatedTransfer(context.Background(), alice, "bob", dec("5"))
	require.NoError(t, err)

	assert.True(t, store.balance(alice).Equal(dec("10")))
	assert.True(t, store.balance(bob).Equal(dec("10")))
}

func TestConcurrentTransfersConserveMoney(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	alice := open(t, svc, "alice", "1000")
	bob := open(t, svc, "bob", "1000")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(ctx, alice, "bob", dec("7.77"))
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(ctx, bob, "alice", dec("3.33"))
		}()
	}
	wg.Wait()

	total := store.balance(alice).Add(store.balance(bob))
	assert.True(t, total.Equal(dec("2000")), "сумма балансов %s", total)
	assert.True(t, store.balance(alice).Equal(dec("778.00")))
}

func TestHistoryFilter(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	id := open(t, svc, "alice", "10")
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := svc.Deposit(ctx, id, dec("1"))
		require.NoError(t, err)
	}

	all, err := svc.History(ctx, id, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, TypeInitialDeposit, all[0].Type)

	latest, err := svc.History(ctx, id, HistoryFilter{Limit: 2, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, all[4].ID, latest[0].ID)

	window, err := svc.History(ctx, id, HistoryFilter{From: all[1].CreatedAt, To: all[3].CreatedAt})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, all[1].ID, window[0].ID)
}

func TestTxTypeDirection(t *testing.T) {
	assert.Equal(t, DirectionIn, TypeDeposit.Direction())
	assert.Equal(t, DirectionIn, TypeInitialDeposit.Direction())
	assert.Equal(t, DirectionIn, TypeTransferIn.Direction())
	assert.Equal(t, DirectionOut, TypeWithdraw.Direction())
	assert.Equal(t, DirectionOut, TypeTransferOut.Direction())
	assert.Equal(t, DirectionNone, TypeFakeTransfer.Direction())
	assert.False(t, TxType("Bonus").Valid())
}
