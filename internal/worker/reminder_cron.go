package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"buildpos/internal/infra"
	"buildpos/internal/model"
	"buildpos/internal/repository"

	"github.com/rs/zerolog/log"
)

const reminderTickInterval = time.Hour

// ReminderCronConfig holds the dependencies for the reminder goroutine.
type ReminderCronConfig struct {
	Snapshots  repository.SnapshotRepository
	Dispatcher *Dispatcher
	// Days before the due date at which a reminder fires.
	ReminderDays int
}

// StartReminderCron launches a goroutine that periodically scans the debtors
// collection and enqueues a reminder job for debts due within the window.
// It respects the context for graceful shutdown.
func StartReminderCron(ctx context.Context, cfg ReminderCronConfig) {
	go func() {
		ticker := time.NewTicker(reminderTickInterval)
		defer ticker.Stop()

		log.Info().Int("reminder_days", cfg.ReminderDays).Msg("reminder cron started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reminder cron shutting down")
				return
			case <-ticker.C:
				runReminderScan(ctx, cfg)
			}
		}
	}()
}

func runReminderScan(ctx context.Context, cfg ReminderCronConfig) {
	snap, err := cfg.Snapshots.Get(ctx, model.TableDebtors)
	if errors.Is(err, repository.ErrTableNotFound) {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("reminder cron: debtors read failed")
		return
	}

	var debtors []model.Debtor
	if err := json.Unmarshal(snap.Items, &debtors); err != nil {
		log.Error().Err(err).Msg("reminder cron: debtors unmarshal failed")
		return
	}

	due := DueReminders(debtors, time.Now(), cfg.ReminderDays)
	if len(due) == 0 {
		return
	}
	if err := cfg.Dispatcher.EnqueueDebtReminders(ctx, due); err != nil {
		log.Error().Err(err).Msg("reminder cron: enqueue failed")
	}
}

// DueReminders selects active debtors whose due date falls between now and
// now+days. Unparseable due dates are skipped rather than alerting forever.
func DueReminders(debtors []model.Debtor, now time.Time, days int) []infra.DebtReminder {
	cutoff := now.AddDate(0, 0, days)
	var due []infra.DebtReminder

	for _, d := range debtors {
		if d.Status != model.DebtorActive || !d.RemainingDebt.IsPositive() {
			continue
		}
		dueDate, err := time.Parse("2006-01-02", d.DueDate)
		if err != nil {
			continue
		}
		// End of the due day, so a debt due today still reminds.
		endOfDue := dueDate.AddDate(0, 0, 1)
		if endOfDue.Before(now) || dueDate.After(cutoff) {
			continue
		}
		due = append(due, infra.DebtReminder{
			CustomerName:  d.CustomerName,
			CustomerPhone: d.CustomerPhone,
			RemainingDebt: d.RemainingDebt,
			DueDate:       d.DueDate,
		})
	}
	return due
}
