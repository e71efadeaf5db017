package memory

import (
	"context"
	"time"

	"github.com/geocoder89/eventparser/internal/domain/user"
)

type UsersRepo struct {
	s *state
}

func (r *UsersRepo) Create(_ context.Context, username, passwordHash, role string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return user.User{}, user.ErrUsernameTaken
		}
	}

	r.s.nextUserID++
	u := user.User{
		ID:           r.s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	r.s.users[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	r.s.users[id] = u
	return nil
}

// Delete removes the user and every registration pair it belongs to.
func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.s.users, id)
	for p := range r.s.pairs {
		if p.userID == id {
			delete(r.s.pairs, p)
		}
	}
	return nil
}
