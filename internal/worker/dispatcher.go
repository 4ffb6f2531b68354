// Package worker runs the background notification pipeline: a cron that
// scans debtors for approaching due dates, a Redis list used as the job
// queue, and a goroutine pool draining it into the Telegram notifier.
package worker

import (
	"context"
	"encoding/json"

	"buildpos/internal/infra"

	"github.com/redis/go-redis/v9"
)

// QueueNotifications is the Redis list all notification jobs go through.
const QueueNotifications = "jobs:notifications"

// Job types.
const (
	JobDebtReminder = "debt_reminder"
)

// Job is the generic envelope for queued tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DebtReminderPayload is the body of a JobDebtReminder job.
type DebtReminderPayload struct {
	Reminders []infra.DebtReminder `json:"reminders"`
}

// Dispatcher enqueues jobs into the Redis list; the pool dequeues them via
// BRPOP. Enqueueing is best-effort from the caller's point of view — a
// failed enqueue never fails the data path that triggered it.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueDebtReminders pushes one reminder job covering the given debtors.
func (d *Dispatcher) EnqueueDebtReminders(ctx context.Context, reminders []infra.DebtReminder) error {
	return d.enqueue(ctx, JobDebtReminder, DebtReminderPayload{Reminders: reminders})
}

func (d *Dispatcher) enqueue(ctx context.Context, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueNotifications, encoded).Err()
}
