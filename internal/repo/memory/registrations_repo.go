package memory

import (
	"context"
	"time"

	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/domain/registration"
)

type RegistrationsRepo struct {
	s *state
}

func (r *RegistrationsRepo) Register(_ context.Context, userID, eventID int64) (event.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[eventID]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	current := r.s.countLocked(eventID)
	if !e.HasCapacityFor(current) {
		return event.Event{}, registration.ErrEventFull
	}

	key := pair{userID: userID, eventID: eventID}
	if _, exists := r.s.pairs[key]; exists {
		return event.Event{}, registration.ErrAlreadyRegistered
	}

	r.s.pairs[key] = time.Now().UTC()
	e.RegistrationCount = current + 1
	return e, nil
}

func (r *RegistrationsRepo) Unregister(_ context.Context, userID, eventID int64) (event.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[eventID]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	key := pair{userID: userID, eventID: eventID}
	if _, exists := r.s.pairs[key]; !exists {
		return event.Event{}, registration.ErrNotRegistered
	}

	delete(r.s.pairs, key)
	return r.s.withCountLocked(e), nil
}

func (r *RegistrationsRepo) CountForEvent(_ context.Context, eventID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.countLocked(eventID), nil
}
