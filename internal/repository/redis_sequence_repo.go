package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// SequenceReceipt is the sequence backing receipt numbers.
const SequenceReceipt = "receipt"

type redisSequenceRepo struct{ rdb *redis.Client }

// NewRedisSequenceRepository issues sequence values via Redis INCR, which is
// atomic across every connected terminal.
func NewRedisSequenceRepository(rdb *redis.Client) SequenceRepository {
	return &redisSequenceRepo{rdb: rdb}
}

func (r *redisSequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	return r.rdb.Incr(ctx, "seq:"+name).Result()
}
