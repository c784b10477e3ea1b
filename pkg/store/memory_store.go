package store

import (
	"sort"
	"sync"

	"tesebook/pkg/domain"
)

// MemoryStore keeps all data in-process. It backs tests and local
// development without Postgres.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	email     map[string]string // email -> user ID
	profiles  map[string]domain.UserProfile
	works     map[string]domain.WorkRecord
	workOrder []string
	favorites map[string][]string // user ID -> work IDs, oldest first
	topics    []domain.SuggestedTopic
	sess      map[string]string // token -> user ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		email:     make(map[string]string),
		profiles:  make(map[string]domain.UserProfile),
		works:     make(map[string]domain.WorkRecord),
		favorites: make(map[string][]string),
		sess:      make(map[string]string),
	}
}

// SaveUser stores or replaces a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.users[u.ID]; ok && old.Email != u.Email {
		delete(m.email, old.Email)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// SaveProfile upserts a profile by user ID.
func (m *MemoryStore) SaveProfile(p domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return nil
}

// GetProfile returns a profile by user ID.
func (m *MemoryStore) GetProfile(id string) (domain.UserProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	return p, ok, nil
}

// SaveWork stores or replaces a work record and tracks insertion order.
func (m *MemoryStore) SaveWork(w domain.WorkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.works[w.ID]; !exists {
		m.workOrder = append(m.workOrder, w.ID)
	}
	m.works[w.ID] = w
	return nil
}

// ListWorks returns works newest first, insertion order breaking ties.
func (m *MemoryStore) ListWorks() ([]domain.WorkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectWorks(func(domain.WorkRecord) bool { return true }), nil
}

// ListWorksByOwner returns the owner's works, newest first.
func (m *MemoryStore) ListWorksByOwner(ownerID string) ([]domain.WorkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectWorks(func(w domain.WorkRecord) bool { return w.OwnerID == ownerID }), nil
}

func (m *MemoryStore) collectWorks(keep func(domain.WorkRecord) bool) []domain.WorkRecord {
	res := make([]domain.WorkRecord, 0, len(m.workOrder))
	for _, id := range m.workOrder {
		if w, ok := m.works[id]; ok && keep(w) {
			res = append(res, w)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res
}

// GetWork retrieves a work record by ID.
func (m *MemoryStore) GetWork(id string) (domain.WorkRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.works[id]
	return w, ok, nil
}

// DeleteWork removes a work and any favorite references to it.
func (m *MemoryStore) DeleteWork(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.works, id)
	filtered := m.workOrder[:0]
	for _, item := range m.workOrder {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.workOrder = filtered
	for uid, ids := range m.favorites {
		kept := ids[:0]
		for _, wid := range ids {
			if wid != id {
				kept = append(kept, wid)
			}
		}
		m.favorites[uid] = kept
	}
	return nil
}

// AddFavorite records a favorite; repeated calls are no-ops.
func (m *MemoryStore) AddFavorite(userID, workID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.favorites[userID] {
		if id == workID {
			return nil
		}
	}
	m.favorites[userID] = append(m.favorites[userID], workID)
	return nil
}

// RemoveFavorite removes a favorite reference.
func (m *MemoryStore) RemoveFavorite(userID, workID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.favorites[userID]
	kept := ids[:0]
	for _, id := range ids {
		if id != workID {
			kept = append(kept, id)
		}
	}
	m.favorites[userID] = kept
	return nil
}

// ListFavoriteWorks returns favorited works, most recently favorited first.
func (m *MemoryStore) ListFavoriteWorks(userID string) ([]domain.WorkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.favorites[userID]
	res := make([]domain.WorkRecord, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if w, ok := m.works[ids[i]]; ok {
			res = append(res, w)
		}
	}
	return res, nil
}

// SaveSuggestedTopic appends a topic suggestion.
func (m *MemoryStore) SaveSuggestedTopic(t domain.SuggestedTopic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, t)
	return nil
}

// ListSuggestedTopics returns the newest suggestions up to limit.
func (m *MemoryStore) ListSuggestedTopics(limit int) ([]domain.SuggestedTopic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.SuggestedTopic, 0, len(m.topics))
	for i := len(m.topics) - 1; i >= 0; i-- {
		res = append(res, m.topics[i])
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// NewSession creates a token for the user.
func (m *MemoryStore) NewSession(userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := NewID()
	m.sess[token] = userID
	return token, nil
}

// GetUserIDByToken resolves a session token.
func (m *MemoryStore) GetUserIDByToken(token string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.sess[token]
	return uid, ok, nil
}

// DeleteSession invalidates a session token.
func (m *MemoryStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, token)
	return nil
}
