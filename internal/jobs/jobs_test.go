package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/ledger-bot/internal/common"
)

func TestDispatcherRunsTasksWithoutBlocking(t *testing.T) {
	d := NewDispatcher(2, time.Second)

	release := make(chan struct{})
	var done atomic.Int32

	submitted := time.Now()
	for i := 0; i < 5; i++ {
		id := d.Submit("slow", func(ctx context.Context) error {
			<-release
			done.Add(1)
			return nil
		})
		assert.NotEmpty(t, id)
	}
	assert.Less(t, time.Since(submitted), 500*time.Millisecond, "Submit не должен ждать задачу")

	close(release)
	d.Wait()
	assert.Equal(t, int32(5), done.Load())
}

func TestDispatcherLimitsConcurrency(t *testing.T) {
	d := NewDispatcher(2, time.Second)

	var running, peak atomic.Int32
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		d.Submit("count", func(ctx context.Context) error {
			n := running.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	d.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatcherSwallowsErrorsAndPanics(t *testing.T) {
	d := NewDispatcher(1, time.Second)

	var after atomic.Bool
	d.Submit("fails", func(ctx context.Context) error { return errors.New("boom") })
	d.Submit("panics", func(ctx context.Context) error { panic("oops") })
	d.Submit("after", func(ctx context.Context) error {
		after.Store(true)
		return nil
	})
	d.Wait()

	assert.True(t, after.Load())
}

func TestDispatcherTimeout(t *testing.T) {
	d := NewDispatcher(1, 20*time.Millisecond)

	var ctxErr atomic.Value
	d.Submit("hangs", func(ctx context.Context) error {
		<-ctx.Done()
		ctxErr.Store(ctx.Err())
		return ctx.Err()
	})
	d.Wait()

	assert.ErrorIs(t, ctxErr.Load().(error), context.DeadlineExceeded)
}

func TestDispatcherShutdown(t *testing.T) {
	d := NewDispatcher(1, time.Minute)

	started := make(chan struct{})
	d.Submit("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))

	assert.Empty(t, d.Submit("late", func(ctx context.Context) error { return nil }))
}

type fakeGenerator struct {
	mu    sync.Mutex
	year  int
	month time.Month
	calls int
}

func (f *fakeGenerator) GenerateAll(_ context.Context, year int, month time.Month) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.year, f.month = year, month
	f.calls++
	return 3, nil
}

func TestSchedulerMonthlyStatementsUsePreviousMonth(t *testing.T) {
	gen := &fakeGenerator{}
	s := NewScheduler(ScheduleConfig{StatementsSpec: "0 3 1 * *", Location: time.UTC}, gen, nil)

	s.runMonthlyStatements(context.Background())

	year, month := common.PreviousMonth(time.Now().UTC())
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, year, gen.year)
	assert.Equal(t, month, gen.month)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(ScheduleConfig{StatementsSpec: "not a cron"}, &fakeGenerator{}, nil)
	assert.Error(t, s.Start(context.Background()))
}

type ctxKey struct{}

type recordingNotifier struct {
	mu      sync.Mutex
	texts   []string
	ctxErrs []error
	values  []any
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, _ int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	n.values = append(n.values, ctx.Value(ctxKey{}))
	return n.err
}

func (n *recordingNotifier) NotifyDocument(context.Context, int64, string, []byte, string) error {
	return nil
}

func TestNotifyFailureOutlivesTaskContext(t *testing.T) {
	parent := context.WithValue(context.Background(), ctxKey{}, "task-7")
	ctx, cancel := context.WithTimeout(parent, time.Millisecond)
	defer cancel()
	<-ctx.Done()

	n := &recordingNotifier{}
	NotifyFailure(ctx, n, 42, "❌ сбой")

	require.Len(t, n.texts, 1)
	assert.Equal(t, "❌ сбой", n.texts[0])
	assert.NoError(t, n.ctxErrs[0])
	assert.Equal(t, "task-7", n.values[0])
}

func TestNotifyFailureSwallowsSendError(t *testing.T) {
	n := &recordingNotifier{err: errors.New("telegram down")}

	assert.NotPanics(t, func() {
		NotifyFailure(context.Background(), n, 42, "❌ сбой")
	})
	assert.Len(t, n.texts, 1)
}
