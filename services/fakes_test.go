package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-service/events"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/repository"
)

// ---- mock publisher ----

type mockPublisher struct {
	mu     sync.Mutex
	events []events.OrderCompletedEvent
	err    error
}

func (m *mockPublisher) PublishOrderCompleted(_ context.Context, e events.OrderCompletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

// ---- mock catalog cache ----

type mockCatalogCache struct {
	lists       map[string][]models.Item
	version     int64
	getErr      error
	gets        int
	sets        int
	invalidated int
}

func newMockCatalogCache() *mockCatalogCache {
	return &mockCatalogCache{lists: make(map[string][]models.Item)}
}

func mockListKey(version int64, name string) string {
	return fmt.Sprintf("%d:%s", version, name)
}

func (m *mockCatalogCache) GetList(_ context.Context, name string) ([]models.Item, int64, bool, error) {
	m.gets++
	if m.getErr != nil {
		return nil, 0, false, m.getErr
	}
	items, ok := m.lists[mockListKey(m.version, name)]
	if !ok {
		return nil, m.version, false, nil
	}
	return append([]models.Item(nil), items...), m.version, true, nil
}

func (m *mockCatalogCache) SetList(_ context.Context, name string, version int64, items []models.Item) error {
	m.sets++
	m.lists[mockListKey(version, name)] = append([]models.Item(nil), items...)
	return nil
}

func (m *mockCatalogCache) Invalidate(_ context.Context) error {
	m.invalidated++
	m.version++
	return nil
}

// ---- mock idempotency store ----

type mockIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]uuid.UUID
	// misses makes the next Get calls report no key, as if the key was
	// stored just after they ran.
	misses int
}

func newMockIdempotencyStore() *mockIdempotencyStore {
	return &mockIdempotencyStore{keys: make(map[string]uuid.UUID)}
}

func (m *mockIdempotencyStore) Get(_ context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.misses > 0 {
		m.misses--
		return uuid.Nil, false, nil
	}
	id, ok := m.keys[userID.String()+":"+key]
	return id, ok, nil
}

func (m *mockIdempotencyStore) Set(_ context.Context, userID uuid.UUID, key string, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[userID.String()+":"+key] = orderID
	return nil
}

// ---- mock metrics ----

type mockMetrics struct {
	mu    sync.Mutex
	count map[string]int
}

func (m *mockMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count == nil {
		m.count = make(map[string]int)
	}
	m.count[name]++
	return nil
}

// ---- mock signer ----

type mockSigner struct{ err error }

func (m *mockSigner) PresignGet(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "https://images.example.com/" + key + "?sig=1", nil
}

var errBoom = errors.New("boom")

func seedItem(t *testing.T, store repository.Store, name string, price string, qty int) *models.Item {
	t.Helper()
	item := &models.Item{Name: name, Price: decimal.RequireFromString(price), Quantity: qty}
	require.NoError(t, store.CreateItem(context.Background(), item))
	return item
}

func stockOf(t *testing.T, store repository.Store, id uuid.UUID) int {
	t.Helper()
	item, err := store.GetItem(context.Background(), id)
	require.NoError(t, err)
	return item.Quantity
}
