package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"buildpos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemSnapshotRepoUnwrittenTable(t *testing.T) {
	repo := NewMemSnapshotRepository()
	_, err := repo.Get(context.Background(), model.TableProducts)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestMemSnapshotRepoReplaceBumpsVersion(t *testing.T) {
	repo := NewMemSnapshotRepository()
	ctx := context.Background()

	snap, err := repo.Replace(ctx, model.TableProducts, 0, json.RawMessage(`[{"id":"a"}]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)

	snap, err = repo.Replace(ctx, model.TableProducts, 1, json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version)

	got, err := repo.Get(ctx, model.TableProducts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.JSONEq(t, `[]`, string(got.Items))
}

func TestMemSnapshotRepoStaleBaseVersion(t *testing.T) {
	repo := NewMemSnapshotRepository()
	ctx := context.Background()

	_, err := repo.Replace(ctx, model.TableSales, 0, json.RawMessage(`[]`))
	require.NoError(t, err)

	// A writer holding the pre-write version loses.
	_, err = repo.Replace(ctx, model.TableSales, 0, json.RawMessage(`[{"id":"x"}]`))
	assert.ErrorIs(t, err, ErrVersionConflict)

	// So does a writer from the future.
	_, err = repo.Replace(ctx, model.TableSales, 7, json.RawMessage(`[]`))
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestMemSnapshotRepoConcurrentFirstWrite(t *testing.T) {
	repo := NewMemSnapshotRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Replace(ctx, model.TableUsers, 0, json.RawMessage(`[]`))
		}(i)
	}
	wg.Wait()

	// Exactly one creator wins; the loser sees a conflict, never a
	// silent overwrite.
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrVersionConflict)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestMemSequenceRepo(t *testing.T) {
	seq := NewMemSequenceRepository()
	ctx := context.Background()

	v, err := seq.Next(ctx, SequenceReceipt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	seq.Seed(SequenceReceipt, 41)
	v, err = seq.Next(ctx, SequenceReceipt)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}
