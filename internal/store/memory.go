package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/contactsbook/apiserver/types"
	"github.com/google/uuid"
)

// MemoryUserRepository keeps users in process memory. It backs DB_DRIVER=memory
// and the service and handler tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]types.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]types.User)}
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByVerificationToken(ctx context.Context, token string) (types.User, error) {
	return r.find(func(u types.User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == token
	})
}

func (r *MemoryUserRepository) find(match func(types.User) bool) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return types.User{}, ErrNotFound
}

func (r *MemoryUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, ErrDuplicate
		}
	}

	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

// UpdateToken sets or, with a nil token, clears the session token of a user.
func (r *MemoryUserRepository) UpdateToken(ctx context.Context, id string, token *string) error {
	return r.update(id, func(u *types.User) { u.Token = copyString(token) })
}

func (r *MemoryUserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return r.update(id, func(u *types.User) { u.AvatarURL = avatarURL })
}

func (r *MemoryUserRepository) UpdateSubscription(ctx context.Context, id, subscription string) error {
	return r.update(id, func(u *types.User) { u.Subscription = subscription })
}

func (r *MemoryUserRepository) MarkVerified(ctx context.Context, id string) error {
	return r.update(id, func(u *types.User) {
		u.Verify = true
		u.VerificationToken = nil
	})
}

func (r *MemoryUserRepository) update(id string, mutate func(*types.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	mutate(&user)
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

func cloneUser(u types.User) types.User {
	u.Token = copyString(u.Token)
	u.VerificationToken = copyString(u.VerificationToken)
	return u
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// MemoryContactRepository keeps contacts in process memory.
type MemoryContactRepository struct {
	mu       sync.RWMutex
	contacts map[string]types.Contact
	seq      int64
	order    map[string]int64
}

func NewMemoryContactRepository() *MemoryContactRepository {
	return &MemoryContactRepository{
		contacts: make(map[string]types.Contact),
		order:    make(map[string]int64),
	}
}

func (r *MemoryContactRepository) List(ctx context.Context, filter types.ContactFilter, offset, limit int) ([]types.Contact, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]types.Contact, 0, len(r.contacts))
	for _, contact := range r.contacts {
		if filter.Favorite != nil && contact.Favorite != *filter.Favorite {
			continue
		}
		matched = append(matched, contact)
	}
	sort.Slice(matched, func(i, j int) bool {
		return r.order[matched[i].ID] < r.order[matched[j].ID]
	})

	total := len(matched)
	if offset >= total {
		return []types.Contact{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *MemoryContactRepository) Get(ctx context.Context, id string) (types.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contact, ok := r.contacts[id]
	if !ok {
		return types.Contact{}, ErrNotFound
	}
	return contact, nil
}

func (r *MemoryContactRepository) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	contact.ID = uuid.NewString()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	r.seq++
	r.order[contact.ID] = r.seq
	r.contacts[contact.ID] = contact
	return contact, nil
}

func (r *MemoryContactRepository) Update(ctx context.Context, contact types.Contact) (types.Contact, error) {
	return r.update(contact.ID, func(c *types.Contact) {
		c.Name = contact.Name
		c.Email = contact.Email
		c.Phone = contact.Phone
		c.Favorite = contact.Favorite
	})
}

func (r *MemoryContactRepository) UpdateFavorite(ctx context.Context, id string, favorite bool) (types.Contact, error) {
	return r.update(id, func(c *types.Contact) { c.Favorite = favorite })
}

func (r *MemoryContactRepository) update(id string, mutate func(*types.Contact)) (types.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contact, ok := r.contacts[id]
	if !ok {
		return types.Contact{}, ErrNotFound
	}
	mutate(&contact)
	contact.UpdatedAt = time.Now()
	r.contacts[id] = contact
	return contact, nil
}

func (r *MemoryContactRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(r.contacts, id)
	delete(r.order, id)
	return nil
}
