package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"buildpos/internal/config"
	"buildpos/internal/dto"
	"buildpos/internal/mirror"
	"buildpos/internal/model"
	"buildpos/internal/repository"
	"buildpos/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	srv       *httptest.Server
	snapshots *repository.MemSnapshotRepository
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	snapshots := repository.NewMemSnapshotRepository()
	sequences := repository.NewMemSequenceRepository()
	hub := mirror.NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)

	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	cashierHash, err := bcrypt.GenerateFromPassword([]byte("kassir123"), bcrypt.MinCost)
	require.NoError(t, err)
	users, err := json.Marshal([]model.User{
		{ID: "u1", Username: "admin", Role: model.RoleAdmin, PasswordHash: string(adminHash)},
		{ID: "u2", Username: "kassir", Role: model.RoleCashier, PasswordHash: string(cashierHash)},
	})
	require.NoError(t, err)
	_, err = snapshots.Replace(context.Background(), model.TableUsers, 0, users)
	require.NoError(t, err)

	cfg := &config.Config{Env: "development", JWTSecret: "test-secret", JWTExpirationHours: 1}
	engine := router.New(cfg, router.Deps{Snapshots: snapshots, Sequences: sequences, Hub: hub})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, snapshots: snapshots}
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(dto.LoginRequest{Username: username, Password: password})
	resp, err := http.Post(ts.srv.URL+"/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.AccessToken
}

func (ts *testServer) request(t *testing.T, method, path, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func putBody(baseVersion int64, items string) []byte {
	b, _ := json.Marshal(dto.PutCollectionRequest{
		BaseVersion: baseVersion,
		Items:       json.RawMessage(items),
	})
	return b
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newServer(t)

	body, _ := json.Marshal(dto.LoginRequest{Username: "admin", Password: "nope"})
	resp, err := http.Post(ts.srv.URL+"/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTablesRequireAuth(t *testing.T) {
	ts := newServer(t)
	resp := ts.request(t, http.MethodGet, "/v1/tables/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownTableIs404(t *testing.T) {
	ts := newServer(t)
	token := ts.login(t, "admin", "admin123")
	resp := ts.request(t, http.MethodGet, "/v1/tables/invoices", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnwrittenTableReadsEmptyAtVersionZero(t *testing.T) {
	ts := newServer(t)
	token := ts.login(t, "admin", "admin123")

	resp := ts.request(t, http.MethodGet, "/v1/tables/products", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env dto.CollectionEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, int64(0), env.Version)
	assert.JSONEq(t, "[]", string(env.Items))
}

func TestPutThenConflict(t *testing.T) {
	ts := newServer(t)
	token := ts.login(t, "admin", "admin123")

	resp := ts.request(t, http.MethodPut, "/v1/tables/products", token, putBody(0, `[{"id":"p1"}]`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ack dto.PutCollectionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.Equal(t, int64(1), ack.Version)

	// Same base again: somebody else already won.
	resp = ts.request(t, http.MethodPut, "/v1/tables/products", token, putBody(0, `[{"id":"p2"}]`))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var apiErr struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "version_conflict", apiErr.Code)
}

func TestPutRejectsMalformedItems(t *testing.T) {
	ts := newServer(t)
	token := ts.login(t, "admin", "admin123")

	body := []byte(`{"base_version":0,"items":"not-an-array`)
	resp := ts.request(t, http.MethodPut, "/v1/tables/products", token, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCashierCannotWriteUsersTable(t *testing.T) {
	ts := newServer(t)
	cashier := ts.login(t, "kassir", "kassir123")

	resp := ts.request(t, http.MethodPut, "/v1/tables/users", cashier, putBody(1, `[]`))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Sale-path tables stay writable for cashiers.
	resp = ts.request(t, http.MethodPut, "/v1/tables/sales", cashier, putBody(0, `[]`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReceiptSequenceIsMonotonic(t *testing.T) {
	ts := newServer(t)
	token := ts.login(t, "kassir", "kassir123")

	var prev int64
	for i := 0; i < 3; i++ {
		resp := ts.request(t, http.MethodPost, "/v1/sequences/receipt", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out dto.SequenceResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, prev+1, out.Value)
		prev = out.Value
	}
}

func TestUnknownSequenceRejected(t *testing.T) {
	ts := newServer(t)
	token := ts.login(t, "admin", "admin123")

	resp := ts.request(t, http.MethodPost, "/v1/sequences/invoice", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpointIsPublic(t *testing.T) {
	ts := newServer(t)
	resp, err := http.Get(ts.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
