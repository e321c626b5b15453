package memory

import (
	"context"

	"github.com/iho/bankcore/internal/domain"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	s *Store
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

// Create stores a new user. Emails are unique.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.s.lock(ctx); err != nil {
		return err
	}
	defer r.s.unlock()

	if _, ok := r.s.usersByEmail[user.Email]; ok {
		return domain.ErrUserExists
	}

	cp := *user
	r.s.users[user.ID] = &cp
	r.s.usersByEmail[user.Email] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.unlock()

	id, ok := r.s.usersByEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *r.s.users[id]
	return &cp, nil
}
