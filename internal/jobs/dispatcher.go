// Package jobs — dispatcher.go запускает фоновые задачи (выписки, выгрузки)
// так, чтобы они не блокировали обработку следующей команды пользователя.
package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Task — фоновая задача. ctx отменяется по таймауту или при остановке.
type Task func(ctx context.Context) error

// Notifier доставляет результат фоновой задачи пользователю.
// Реализуется ботом.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
	NotifyDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
}

// NotifyTimeout — сколько ждём доставки уведомления о сбое задачи.
const NotifyTimeout = 10 * time.Second

// NotifyFailure сообщает пользователю, что задача не удалась.
// ctx задачи к этому моменту может быть отменён по таймауту,
// поэтому отправка идёт с собственным сроком, но с теми же значениями ctx.
func NotifyFailure(ctx context.Context, n Notifier, chatID int64, text string) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), NotifyTimeout)
	defer cancel()

	if err := n.Notify(nctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("Не удалось сообщить о сбое задачи")
	}
}

// Dispatcher выполняет задачи в горутинах с ограничением параллелизма.
// Ошибки задач логируются и вызывающему не возвращаются.
type Dispatcher struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sem     chan struct{}
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher создаёт диспетчер.
//
// Параметры:
//   - maxConcurrent: сколько задач выполняется одновременно (остальные ждут)
//   - timeout: предельное время одной задачи
func NewDispatcher(maxConcurrent int, timeout time.Duration) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		ctx:     ctx,
		cancel:  cancel,
		sem:     make(chan struct{}, maxConcurrent),
		timeout: timeout,
	}
}

// Submit ставит задачу и сразу возвращает её id.
// После Shutdown задачи не принимаются, возвращается пустой id.
func (d *Dispatcher) Submit(name string, task Task) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		log.WithField("task", name).Warn("Диспетчер остановлен, задача отклонена")
		return ""
	}

	id := uuid.NewString()
	d.wg.Add(1)
	go d.run(id, name, task)
	return id
}

func (d *Dispatcher) run(id, name string, task Task) {
	defer d.wg.Done()

	logger := log.WithFields(log.Fields{
		"task":    name,
		"task_id": id,
	})

	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-d.ctx.Done():
		logger.Warn("Задача отменена до запуска")
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	started := time.Now()
	err := safeRun(ctx, task)
	logger = logger.WithField("duration", time.Since(started).Round(time.Millisecond))
	if err != nil {
		logger.WithError(err).Error("Фоновая задача завершилась с ошибкой")
		return
	}
	logger.Debug("Фоновая задача выполнена")
}

// safeRun превращает панику задачи в ошибку.
func safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в задаче: %v\n%s", r, debug.Stack())
		}
	}()
	return task(ctx)
}

// Shutdown отменяет ожидающие задачи и ждёт завершения запущенных
// (не дольше, чем живёт ctx).
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait ждёт завершения всех поставленных задач (для тестов и ledgerctl).
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
