package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"buildpos/internal/model"

	"github.com/rs/zerolog/log"
)

const (
	defaultMaxRetries = 3
	backoffBase       = 50 * time.Millisecond
)

// Coordinator applies logical changes as read-modify-write cycles against
// the store. Per table it holds a local queue lock so a terminal's own rapid
// double-click cannot race itself; a version conflict from another terminal
// restarts the cycle from a fresh get, up to a bounded retry count.
//
// A stuck mutation on one table never blocks mutations to other tables —
// each table has its own lock.
type Coordinator struct {
	store      *Store
	maxRetries int

	mu     sync.Mutex
	queues map[model.Table]*sync.Mutex
}

func NewCoordinator(store *Store) *Coordinator {
	return &Coordinator{
		store:      store,
		maxRetries: defaultMaxRetries,
		queues:     make(map[model.Table]*sync.Mutex),
	}
}

// Result carries the post-mutation collection and its committed version, so
// callers can broadcast or cache it without another round-trip.
type Result[T any] struct {
	Items   []T
	Version int64
}

// Mutate runs one get → transform → put cycle for table, serialized against
// this terminal's other mutations of the same table.
//
// transform must be a pure function of its input: it is re-invoked on a
// freshly fetched collection after every version conflict. Returning an
// error from transform aborts the mutation without writing anything.
//
// Puts are retried only on an explicit version conflict — then the store
// provably rejected the write, so reapplying the transform is safe. An
// ambiguous network failure mid-put surfaces as ErrStoreUnavailable instead
// of risking a double-applied transform.
func Mutate[T any](ctx context.Context, co *Coordinator, table model.Table, transform func([]T) ([]T, error)) (*Result[T], error) {
	queue := co.queue(table)
	queue.Lock()
	defer queue.Unlock()

	for attempt := 0; attempt <= co.maxRetries; attempt++ {
		if attempt > 0 {
			sleepJittered(ctx, attempt)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}

		env, err := co.store.Get(ctx, table)
		if err != nil {
			return nil, err
		}

		var items []T
		if len(env.Items) > 0 {
			if err := json.Unmarshal(env.Items, &items); err != nil {
				return nil, fmt.Errorf("%w: corrupt %s collection: %v", ErrStoreUnavailable, table, err)
			}
		}

		next, err := transform(items)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(next)
		if err != nil {
			return nil, err
		}

		version, err := co.store.Put(ctx, table, env.Version, raw)
		if errors.Is(err, ErrVersionConflict) {
			log.Debug().Str("table", string(table)).Int("attempt", attempt+1).
				Msg("version conflict, refetching")
			continue
		}
		if err != nil {
			return nil, err
		}
		return &Result[T]{Items: next, Version: version}, nil
	}

	return nil, fmt.Errorf("%w: table %s", ErrConcurrentModification, table)
}

func (co *Coordinator) queue(table model.Table) *sync.Mutex {
	co.mu.Lock()
	defer co.mu.Unlock()
	q, ok := co.queues[table]
	if !ok {
		q = &sync.Mutex{}
		co.queues[table] = q
	}
	return q
}

// sleepJittered backs off attempt*base plus up to base of jitter, so two
// conflicting terminals don't re-collide in lockstep.
func sleepJittered(ctx context.Context, attempt int) {
	d := time.Duration(attempt)*backoffBase + time.Duration(rand.Int63n(int64(backoffBase)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
