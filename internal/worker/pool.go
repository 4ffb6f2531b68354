package worker

import (
	"context"
	"encoding/json"
	"time"

	"buildpos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StartPool launches numWorkers goroutines consuming the notification queue.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartPool(ctx context.Context, rdb *redis.Client, notifier *infra.Notifier, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, notifier, i)
	}
	log.Info().Int("workers", numWorkers).Msg("notification pool started")
}

func runWorker(ctx context.Context, rdb *redis.Client, notifier *infra.Notifier, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("notification worker shutting down")
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx.
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueNotifications).Result()
			if err != nil || len(result) < 2 {
				continue
			}
			processJob(notifier, result[1])
		}
	}
}

func processJob(notifier *infra.Notifier, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Msg("notification pool: bad job envelope")
		return
	}

	switch job.Type {
	case JobDebtReminder:
		var payload DebtReminderPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			log.Error().Err(err).Msg("notification pool: bad reminder payload")
			return
		}
		if err := notifier.SendDebtReminders(payload.Reminders); err != nil {
			log.Error().Err(err).Int("debtors", len(payload.Reminders)).Msg("debt reminder send failed")
			return
		}
		log.Info().Int("debtors", len(payload.Reminders)).Msg("debt reminder sent")
	default:
		log.Warn().Str("type", job.Type).Msg("notification pool: unknown job type")
	}
}
