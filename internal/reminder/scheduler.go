// Package reminder рассылает напоминания о предстоящих платежах по расписанию.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffee-rent-bot/internal/finance"
	"github.com/mmeshcher/coffee-rent-bot/internal/model"
)

// DefaultSchedule это расписание обхода по умолчанию.
const DefaultSchedule = "@every 24h"

// Дни до платежа, в которые отправляется напоминание.
const (
	upcomingDays = 3
	dueTodayDays = 0
)

// Source предоставляет сделки и платежи для обхода.
type Source interface {
	ListDeals(ctx context.Context) ([]model.Deal, error)
	ListPayments(ctx context.Context) ([]model.Payment, error)
}

// Notifier доставляет текст напоминания оператору.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Result это итог одного обхода.
type Result struct {
	Checked int
	Sent    int
	Failed  int
}

// Scheduler периодически обходит активные сделки и отправляет напоминания.
type Scheduler struct {
	source   Source
	notifier Notifier
	logger   *zap.Logger
	schedule cron.Schedule
	spec     string
	now      func() time.Time
}

// NewScheduler создаёт планировщик. spec задаётся в формате cron, например "@every 24h" или "0 9 * * *".
func NewScheduler(source Source, notifier Notifier, logger *zap.Logger, spec string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse reminder schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		source:   source,
		notifier: notifier,
		logger:   logger,
		schedule: schedule,
		spec:     spec,
		now:      time.Now,
	}, nil
}

// Run выполняет первый обход сразу, затем по расписанию до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.Sweep(ctx) }))

	s.logger.Info("reminder scheduler started", zap.String("schedule", s.spec))
	s.Sweep(ctx)
	c.Start()

	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	s.logger.Info("reminder scheduler stopped")
	return nil
}

// Sweep выполняет один обход. Ошибка доставки одного напоминания не прерывает обход.
func (s *Scheduler) Sweep(ctx context.Context) Result {
	var res Result
	if ctx.Err() != nil {
		return res
	}

	deals, err := s.source.ListDeals(ctx)
	if err != nil {
		s.logger.Error("reminder: list deals failed", zap.Error(err))
		return res
	}
	payments, err := s.source.ListPayments(ctx)
	if err != nil {
		s.logger.Error("reminder: list payments failed", zap.Error(err))
		return res
	}
	p := finance.NewPortfolio(deals, payments, nil)

	today := finance.Day(s.now())
	for _, d := range p.Deals {
		if d.Status != model.DealStatusActive {
			continue
		}
		res.Checked++

		due := finance.NextPaymentDue(d, p.PaymentsOf(d.ID))
		text, ok := Message(d, due, finance.DaysBetween(today, due))
		if !ok {
			continue
		}

		if err := s.notifier.Notify(ctx, text); err != nil {
			res.Failed++
			s.logger.Warn("reminder: notify failed",
				zap.Int64("deal_id", d.ID),
				zap.String("tenant", d.Tenant),
				zap.Error(err),
			)
			continue
		}
		res.Sent++
	}

	s.logger.Info("reminder sweep done",
		zap.Int("checked", res.Checked),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
	)
	return res
}

// Message возвращает текст напоминания для сделки, если на daysLeft оно положено.
func Message(d model.Deal, due time.Time, daysLeft int) (string, bool) {
	switch daysLeft {
	case upcomingDays:
		return fmt.Sprintf("⏰ У арендатора %s платёж %.0f через 3 дня (%s)\n%s, штрих-код %s",
			d.Tenant, d.RentPrice, due.Format("02.01.2006"), d.Model, d.Barcode), true
	case dueTodayDays:
		return fmt.Sprintf("🔴 СЕГОДНЯ платёж от %s: %.0f\n%s, штрих-код %s, тел. %s",
			d.Tenant, d.RentPrice, d.Model, d.Barcode, d.Phone), true
	}
	return "", false
}
