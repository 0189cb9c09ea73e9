package user

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryRepository is an in-memory user store for tests and local development.
// The zero value is not usable; construct it with NewMemoryRepository.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
}

// NewMemoryRepository builds an in-memory user store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, users: make(map[int64]User)}
}

// Create assigns the next identifier and stores the user.
func (r *MemoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return User{}, ErrEmailTaken
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

// FindByID resolves a user by identifier.
func (r *MemoryRepository) FindByID(_ context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

// FindByEmail resolves a user by email.
func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

// Adjust applies a set of balance deltas as one all-or-nothing mutation.
// It fails without side effects if any id is unknown or any resulting
// balance would go negative. Returns the updated balances keyed by id.
func (r *MemoryRepository) Adjust(_ context.Context, deltas map[int64]decimal.Decimal) (map[int64]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[int64]decimal.Decimal, len(deltas))
	for id, delta := range deltas {
		current, ok := r.users[id]
		if !ok {
			return nil, ErrNotFound
		}
		balance := current.Balance.Add(delta)
		if balance.IsNegative() {
			return nil, ErrNegativeBalance
		}
		next[id] = balance
	}

	for id, balance := range next {
		current := r.users[id]
		current.Balance = balance
		r.users[id] = current
	}
	return next, nil
}
