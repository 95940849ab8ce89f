// Package jobs управляет фоновыми задачами.
// scheduler.go настраивает расписание: ежемесячные выписки по всем счетам
// и периодическая очистка истёкших сессий бота.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/ledger-bot/internal/common"
)

// StatementGenerator — массовая генерация выписок (statements.Service).
type StatementGenerator interface {
	GenerateAll(ctx context.Context, year int, month time.Month) (int, error)
}

// SessionSweeper удаляет истёкшие сессии (accounts.Sessions).
type SessionSweeper interface {
	Sweep() int
}

// ScheduleConfig — расписания задач в формате cron (5 полей).
type ScheduleConfig struct {
	StatementsSpec   string // Пусто — ежемесячные выписки выключены
	SessionSweepSpec string
	Location         *time.Location
}

// Scheduler управляет фоновыми задачами по расписанию.
type Scheduler struct {
	cron       *cron.Cron
	cfg        ScheduleConfig
	statements StatementGenerator
	sessions   SessionSweeper
}

// NewScheduler создаёт планировщик задач в заданном часовом поясе.
func NewScheduler(cfg ScheduleConfig, statements StatementGenerator, sessions SessionSweeper) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SessionSweepSpec == "" {
		cfg.SessionSweepSpec = "*/5 * * * *"
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(cfg.Location)),
		cfg:        cfg,
		statements: statements,
		sessions:   sessions,
	}
}

// Start регистрирует и запускает все задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.StatementsSpec != "" && s.statements != nil {
		if _, err := s.cron.AddFunc(s.cfg.StatementsSpec, func() {
			s.runMonthlyStatements(ctx)
		}); err != nil {
			return err
		}
	}

	if s.sessions != nil {
		if _, err := s.cron.AddFunc(s.cfg.SessionSweepSpec, func() {
			if n := s.sessions.Sweep(); n > 0 {
				log.WithField("removed", n).Debug("[CRON] Удалены истёкшие сессии")
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"statements": s.cfg.StatementsSpec,
		"timezone":   s.cfg.Location.String(),
	}).Info("Планировщик задач запущен")
	return nil
}

// runMonthlyStatements формирует выписки за прошлый месяц.
func (s *Scheduler) runMonthlyStatements(ctx context.Context) {
	year, month := common.PreviousMonth(time.Now().In(s.cfg.Location))
	log.WithField("month", common.FormatYearMonth(year, month)).Info("[CRON] Ежемесячные выписки")

	n, err := s.statements.GenerateAll(ctx, year, month)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка генерации выписок")
		return
	}
	log.WithField("generated", n).Info("[CRON] Выписки сформированы")
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
