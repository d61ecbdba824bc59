// internal/service/helpers_test.go
package service

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"skillspark/internal/backend"

	"github.com/stretchr/testify/require"
)

// memStore は KeyValueStore のテスト用インメモリ実装です。
type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) RemoveMatching(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memStore) AllKeys(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memStore) keys() []string {
	keys, _ := m.AllKeys(context.Background())
	return keys
}

// newTestClient は httptest サーバーを向くバックエンドクライアントを作ります。
func newTestClient(t *testing.T, srv *httptest.Server) *backend.Client {
	t.Helper()
	client, err := backend.NewWithHTTPClient(srv.URL, srv.Client())
	require.NoError(t, err)
	return client
}
