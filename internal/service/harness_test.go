package service_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"buildpos/internal/cache"
	"buildpos/internal/client"
	"buildpos/internal/config"
	"buildpos/internal/mirror"
	"buildpos/internal/model"
	"buildpos/internal/repository"
	"buildpos/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// env is a full in-process store: real router, real middleware chain, memory
// backends. Terminals connect to it over real HTTP the way they would in
// production.
type env struct {
	srv       *httptest.Server
	snapshots *repository.MemSnapshotRepository
	sequences *repository.MemSequenceRepository
	hub       *mirror.Hub

	admin   model.User
	cashier model.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &env{
		snapshots: repository.NewMemSnapshotRepository(),
		sequences: repository.NewMemSequenceRepository(),
		hub:       mirror.NewHub(),
	}
	go e.hub.Run()
	t.Cleanup(e.hub.Close)

	e.admin = model.User{ID: "u-admin", Username: "admin", Name: "Admin", Role: model.RoleAdmin}
	e.cashier = model.User{ID: "u-cashier", Username: "kassir", Name: "Kassir", Role: model.RoleCashier}
	e.seedUsers(t, e.admin, e.cashier)

	cfg := &config.Config{
		Env:                "development",
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
	}
	engine := router.New(cfg, router.Deps{
		Snapshots: e.snapshots,
		Sequences: e.sequences,
		Hub:       e.hub,
	})
	e.srv = httptest.NewServer(engine)
	t.Cleanup(e.srv.Close)
	return e
}

// seedUsers writes the users collection directly into the store, hashing
// every password as "<username>123".
func (e *env) seedUsers(t *testing.T, users ...model.User) {
	t.Helper()
	for i := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(users[i].Username+"123"), bcrypt.MinCost)
		require.NoError(t, err)
		users[i].PasswordHash = string(hash)
	}
	raw, err := json.Marshal(users)
	require.NoError(t, err)
	_, err = e.snapshots.Replace(context.Background(), model.TableUsers, 0, raw)
	require.NoError(t, err)
}

// terminal logs one operator in and returns their wired client stack, with
// an isolated cache directory per call.
func (e *env) terminal(t *testing.T, username string) (*client.Store, *client.Coordinator, *cache.Cache) {
	t.Helper()
	store := client.NewStore(e.srv.URL)
	_, err := store.Login(context.Background(), username, username+"123")
	require.NoError(t, err)

	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	return store, client.NewCoordinator(store), c
}

// seedTable force-writes a collection, read-modify-write so it works on
// already-written tables too.
func (e *env) seedTable(t *testing.T, table model.Table, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)

	base := int64(0)
	if snap, err := e.snapshots.Get(context.Background(), table); err == nil {
		base = snap.Version
	}
	_, err = e.snapshots.Replace(context.Background(), table, base, raw)
	require.NoError(t, err)
}

// readTable decodes the store's current state of a collection.
func readTable[T any](t *testing.T, e *env, table model.Table) []T {
	t.Helper()
	snap, err := e.snapshots.Get(context.Background(), table)
	require.NoError(t, err)
	var items []T
	require.NoError(t, json.Unmarshal(snap.Items, &items))
	return items
}
