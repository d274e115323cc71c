package app

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"shoplink/api/internal/store"
)

// memStore is a stateful in-memory dataStore used by the HTTP round-trip
// tests, where a scenario spans many operations.
type memStore struct {
	mu     sync.Mutex
	users  map[string]store.User
	lists  map[string]store.List
	items  map[string]store.Item
	shares map[string]store.Share
	seq    int
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]store.User),
		lists:  make(map[string]store.List),
		items:  make(map[string]store.Item),
		shares: make(map[string]store.Share),
	}
}

func (m *memStore) now() time.Time {
	// Monotonic stamps keep created_at ordering deterministic.
	m.seq++
	return time.Unix(1700000000, int64(m.seq)*int64(time.Millisecond))
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) CreateUser(_ context.Context, user store.User) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.CreatedAt = m.now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memStore) GetUserByID(_ context.Context, userID string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (m *memStore) InsertList(_ context.Context, list store.List) (store.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list.CreatedAt = m.now()
	list.UpdatedAt = list.CreatedAt
	m.lists[list.ID] = list
	return list, nil
}

func (m *memStore) ListsByOwner(_ context.Context, ownerID string) ([]store.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lists := make([]store.List, 0)
	for _, list := range m.lists {
		if list.OwnerID == ownerID {
			lists = append(lists, list)
		}
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].CreatedAt.Before(lists[j].CreatedAt) })
	return lists, nil
}

func (m *memStore) GetList(_ context.Context, listID string) (store.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, ok := m.lists[listID]
	if !ok {
		return store.List{}, sql.ErrNoRows
	}
	return list, nil
}

func (m *memStore) UpdateList(_ context.Context, list store.List) (store.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.lists[list.ID]
	if !ok {
		return store.List{}, sql.ErrNoRows
	}
	stored.Name = list.Name
	stored.Status = list.Status
	stored.UpdatedAt = m.now()
	m.lists[list.ID] = stored
	return stored, nil
}

func (m *memStore) DeleteList(_ context.Context, listID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, listID)
	return nil
}

func (m *memStore) InsertItem(_ context.Context, item store.Item) (store.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.CreatedAt = m.now()
	item.UpdatedAt = item.CreatedAt
	m.items[item.ID] = item
	return item, nil
}

func (m *memStore) InsertItems(ctx context.Context, items []store.Item) error {
	for _, item := range items {
		if _, err := m.InsertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) ItemsByList(_ context.Context, listID string) ([]store.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]store.Item, 0)
	for _, item := range m.items {
		if item.ListID == listID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (m *memStore) GetItem(_ context.Context, itemID string) (store.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return store.Item{}, sql.ErrNoRows
	}
	return item, nil
}

func (m *memStore) UpdateItem(_ context.Context, item store.Item) (store.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[item.ID]
	if !ok {
		return store.Item{}, sql.ErrNoRows
	}
	stored.Name = item.Name
	stored.Quantity = item.Quantity
	stored.Unit = item.Unit
	stored.Notes = item.Notes
	stored.Status = item.Status
	stored.UpdatedAt = m.now()
	m.items[item.ID] = stored
	return stored, nil
}

func (m *memStore) DeleteItem(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemID)
	return nil
}

func (m *memStore) DeleteItemsByList(_ context.Context, listID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.items {
		if item.ListID == listID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *memStore) InsertShare(_ context.Context, share store.Share) (store.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	share.CreatedAt = m.now()
	share.UpdatedAt = share.CreatedAt
	m.shares[share.ID] = share
	return share, nil
}

func (m *memStore) RevokeActiveShares(_ context.Context, listID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, share := range m.shares {
		if share.ListID == listID && share.Status == store.ShareStatusActive {
			share.Status = store.ShareStatusRevoked
			share.UpdatedAt = m.now()
			m.shares[id] = share
		}
	}
	return nil
}

func (m *memStore) GetActiveShareByToken(_ context.Context, token string) (store.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, share := range m.shares {
		if share.Token == token && share.Status == store.ShareStatusActive {
			return share, nil
		}
	}
	return store.Share{}, sql.ErrNoRows
}

func (m *memStore) UpdateShareShopkeeper(_ context.Context, shareID, shopkeeperName string) (store.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[shareID]
	if !ok {
		return store.Share{}, sql.ErrNoRows
	}
	share.ShopkeeperName = shopkeeperName
	share.UpdatedAt = m.now()
	m.shares[shareID] = share
	return share, nil
}

func (m *memStore) activeShareCount(listID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, share := range m.shares {
		if share.ListID == listID && share.Status == store.ShareStatusActive {
			count++
		}
	}
	return count
}
