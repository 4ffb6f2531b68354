package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"buildpos/internal/dto"
	"buildpos/internal/infra"
	"buildpos/internal/model"
)

// DefaultTimeout bounds every store round-trip. A stuck request fails as
// ErrStoreUnavailable instead of hanging the mutation queue.
const DefaultTimeout = 10 * time.Second

// Store is the HTTP client for the snapshot store. All methods are safe for
// concurrent use. A circuit breaker fast-fails requests while the store is
// down so retry loops don't pile up behind timeouts.
type Store struct {
	baseURL string
	http    *http.Client
	cb      *infra.CircuitBreaker

	mu    sync.RWMutex
	token string
}

// NewStore builds a client for the given base URL (e.g. "http://pos-host:8000").
func NewStore(baseURL string) *Store {
	return &Store{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		cb:      infra.NewCircuitBreaker(5, 2, 30*time.Second),
	}
}

// Login authenticates and stores the bearer token for subsequent requests.
func (s *Store) Login(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	body, _ := json.Marshal(dto.LoginRequest{Username: username, Password: password})

	var out dto.LoginResponse
	status, err := s.do(ctx, http.MethodPost, "/v1/auth/login", body, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: login status %d", ErrStoreUnavailable, status)
	}

	s.mu.Lock()
	s.token = out.AccessToken
	s.mu.Unlock()
	return &out, nil
}

// SetToken installs an externally obtained bearer token.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Token returns the current bearer token (used by the mirror dialer).
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// BaseURL returns the store endpoint this client talks to.
func (s *Store) BaseURL() string { return s.baseURL }

// Get fetches the entire collection with its version stamp. The result may
// already be stale by the time it is displayed; only Put decides freshness.
func (s *Store) Get(ctx context.Context, table model.Table) (*dto.CollectionEnvelope, error) {
	var out dto.CollectionEnvelope
	status, err := s.do(ctx, http.MethodGet, "/v1/tables/"+string(table), nil, &out)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return &out, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("%w: get %s status %d", ErrStoreUnavailable, table, status)
	}
}

// Put replaces the whole collection, conditioned on baseVersion. Returns the
// new version on success and ErrVersionConflict when another writer won.
func (s *Store) Put(ctx context.Context, table model.Table, baseVersion int64, items json.RawMessage) (int64, error) {
	body, err := json.Marshal(dto.PutCollectionRequest{BaseVersion: baseVersion, Items: items})
	if err != nil {
		return 0, err
	}

	var out dto.PutCollectionResponse
	status, err := s.do(ctx, http.MethodPut, "/v1/tables/"+string(table), body, &out)
	if err != nil {
		return 0, err
	}
	switch status {
	case http.StatusOK:
		return out.Version, nil
	case http.StatusConflict:
		return 0, ErrVersionConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return 0, ErrUnauthorized
	default:
		return 0, fmt.Errorf("%w: put %s status %d", ErrStoreUnavailable, table, status)
	}
}

// NextReceipt reserves the next receipt number from the store-side sequence.
func (s *Store) NextReceipt(ctx context.Context) (int64, error) {
	var out dto.SequenceResponse
	status, err := s.do(ctx, http.MethodPost, "/v1/sequences/receipt", nil, &out)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("%w: sequence status %d", ErrStoreUnavailable, status)
	}
	return out.Value, nil
}

// do executes one request through the circuit breaker. Transport errors and
// 5xx responses count as breaker failures; 4xx responses (conflicts,
// validation, auth) are application answers and pass through untouched.
func (s *Store) do(ctx context.Context, method, path string, body []byte, out interface{}) (int, error) {
	var status int
	var respBody []byte

	err := s.cb.Execute(func() error {
		var reader *bytes.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		} else {
			reader = bytes.NewReader(nil)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if tok := s.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if status >= 500 {
			return fmt.Errorf("server status %d", status)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if out != nil && status < 300 && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return 0, fmt.Errorf("%w: malformed response: %v", ErrStoreUnavailable, err)
		}
	}
	return status, nil
}
