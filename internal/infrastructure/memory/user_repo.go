package memory

import (
	"context"
	"sort"

	"github.com/catboard/auth-service/internal/domain"
)

type UserRepo struct {
	s *Store
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.s.users[id], nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		return domain.User{}, domain.ErrValidation("id", "required")
	}
	if !u.Role.Valid() {
		return domain.User{}, domain.ErrInvalidRole(string(u.Role))
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	if _, exists := r.s.users[u.ID]; exists {
		return domain.User{}, domain.ErrInternal(nil)
	}

	r.s.users[u.ID] = u
	r.s.byEmail[u.Email] = u.ID
	return u, nil
}

// Update replaces the stored row. Email changes keep the index consistent.
func (r *UserRepo) Update(ctx context.Context, u domain.User) (domain.User, error) {
	if !u.Role.Valid() {
		return domain.User{}, domain.ErrInvalidRole(string(u.Role))
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.users[u.ID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if old.Email != u.Email {
		if _, taken := r.s.byEmail[u.Email]; taken {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		delete(r.s.byEmail, old.Email)
		r.s.byEmail[u.Email] = u.ID
	}
	u.CreatedAt = old.CreatedAt
	r.s.users[u.ID] = u
	return u, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	delete(r.s.users, id)
	delete(r.s.byEmail, u.Email)
	delete(r.s.codes, id)
	for v, t := range r.s.tokens {
		if t.UserID == id {
			delete(r.s.tokens, v)
		}
	}
	return nil
}

func (r *UserRepo) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, u := range r.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// ListVerificationRequests pages pending users newest first, ties by id.
func (r *UserRepo) ListVerificationRequests(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	r.s.mu.RLock()
	pending := make([]domain.User, 0)
	for _, u := range r.s.users {
		if u.VerificationRequested {
			pending = append(pending, u)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.After(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})

	total := len(pending)
	if offset >= total {
		return []domain.User{}, total, nil
	}
	end := min(offset+limit, total)
	return pending[offset:end], total, nil
}
