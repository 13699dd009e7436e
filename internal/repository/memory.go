package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-users-api/internal/model"
	"go-users-api/internal/security"
)

// MemoryUserStore is a process-local UserStore used by tests and STORE_DRIVER=memory.
type MemoryUserStore struct {
	mu         sync.RWMutex
	byID       map[string]model.User
	byNickname map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:       map[string]model.User{},
		byNickname: map[string]string{},
	}
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *MemoryUserStore) FindByNickname(_ context.Context, nickname string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNickname[nicknameKey(nickname)]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryUserStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := nicknameKey(u.Nickname)
	if _, exists := s.byNickname[key]; exists {
		return model.ErrConflict
	}
	if _, exists := s.byID[u.ID]; exists {
		return model.ErrConflict
	}

	s.byID[u.ID] = u
	s.byNickname[key] = u.ID
	return nil
}

func (s *MemoryUserStore) UpdatePassword(_ context.Context, id string, digest security.Digest, updatedAt time.Time) error {
	return s.mutate(id, func(u *model.User) {
		u.PasswordHash = digest.Hash
		u.PasswordSalt = digest.Salt
		u.UpdatedAt = updatedAt
	})
}

func (s *MemoryUserStore) UpdateProfile(_ context.Context, user model.User) error {
	return s.mutate(user.ID, func(u *model.User) {
		u.FirstName = user.FirstName
		u.LastName = user.LastName
		u.UpdatedAt = user.UpdatedAt
	})
}

func (s *MemoryUserStore) UpdateRole(_ context.Context, id string, role model.Role, updatedAt time.Time) error {
	return s.mutate(id, func(u *model.User) {
		u.Role = role
		u.UpdatedAt = updatedAt
	})
}

func (s *MemoryUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return model.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byNickname, nicknameKey(u.Nickname))
	return nil
}

func (s *MemoryUserStore) List(_ context.Context, limit int, offset int) ([]model.User, error) {
	s.mu.RLock()
	users := make([]model.User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, u)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i int, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Nickname < users[j].Nickname
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	if offset >= len(users) {
		return []model.User{}, nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end], nil
}

func (s *MemoryUserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *MemoryUserStore) mutate(id string, apply func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return model.ErrNotFound
	}
	apply(&u)
	s.byID[id] = u
	return nil
}

func nicknameKey(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}

type memoryToken struct {
	hash      string
	expiresAt time.Time
}

// MemoryTokenStore mirrors TokenRepository: one slot per owner, keyed by token digest.
type MemoryTokenStore struct {
	mu      sync.Mutex
	byOwner map[string]memoryToken
	byHash  map[string]string
	now     func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		byOwner: map[string]memoryToken{},
		byHash:  map[string]string{},
		now:     time.Now,
	}
}

func (s *MemoryTokenStore) Save(_ context.Context, token string, ownerID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putLocked(ownerID, security.HashToken(token), expiresAt)
	return nil
}

func (s *MemoryTokenStore) IsValid(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownerID, ok := s.byHash[security.HashToken(token)]
	if !ok {
		return false, nil
	}
	return s.now().Before(s.byOwner[ownerID].expiresAt), nil
}

func (s *MemoryTokenStore) Rotate(_ context.Context, oldToken string, newToken string, ownerID string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byOwner[ownerID]
	if !ok || current.hash != security.HashToken(oldToken) || !s.now().Before(current.expiresAt) {
		return false, nil
	}

	s.putLocked(ownerID, security.HashToken(newToken), expiresAt)
	return true, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := security.HashToken(token)
	if ownerID, ok := s.byHash[hash]; ok {
		delete(s.byHash, hash)
		delete(s.byOwner, ownerID)
	}
	return nil
}

func (s *MemoryTokenStore) DeleteByOwner(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.byOwner[ownerID]; ok {
		delete(s.byHash, current.hash)
		delete(s.byOwner, ownerID)
	}
	return nil
}

func (s *MemoryTokenStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for ownerID, current := range s.byOwner {
		if now.Before(current.expiresAt) {
			continue
		}
		delete(s.byHash, current.hash)
		delete(s.byOwner, ownerID)
		removed++
	}
	return removed, nil
}

func (s *MemoryTokenStore) putLocked(ownerID string, hash string, expiresAt time.Time) {
	if previous, ok := s.byOwner[ownerID]; ok {
		delete(s.byHash, previous.hash)
	}
	s.byOwner[ownerID] = memoryToken{hash: hash, expiresAt: expiresAt}
	s.byHash[hash] = ownerID
}

// MemoryAuditStore keeps audit entries in insertion order.
type MemoryAuditStore struct {
	mu      sync.RWMutex
	entries []model.AuditEntry
	nextID  int64
}

func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) Log(_ context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryAuditStore) Query(_ context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error) {
	s.mu.RLock()
	matched := make([]model.AuditEntry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if query.Action != "" && !strings.EqualFold(e.Action, query.Action) {
			continue
		}
		if query.ActorID != "" && e.Actor.UserID != query.ActorID {
			continue
		}
		if query.Status != "" && !strings.EqualFold(e.Status, query.Status) {
			continue
		}
		if !query.From.IsZero() && e.OccurredAt.Before(query.From) {
			continue
		}
		if !query.To.IsZero() && e.OccurredAt.After(query.To) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	total := len(matched)
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = total
	}
	start := (query.Page - 1) * query.Limit
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}
