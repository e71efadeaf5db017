package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/eventparser/internal/domain/event"
)

type EventsRepo struct {
	s *state
}

func (r *EventsRepo) Create(_ context.Context, req event.CreateEventRequest) (event.Event, error) {
	e := event.NewFromCreateRequest(req)

	r.s.mu.Lock()
	r.s.nextEventID++
	e.ID = r.s.nextEventID
	r.s.events[e.ID] = e
	r.s.mu.Unlock()

	return e, nil
}

func (r *EventsRepo) List(_ context.Context) ([]event.WithParticipants, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]event.WithParticipants, 0, len(r.s.events))
	for _, e := range r.s.events {
		out = append(out, event.WithParticipants{
			Event:        r.s.withCountLocked(e),
			Participants: r.s.participantsLocked(e.ID),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *EventsRepo) GetByID(_ context.Context, id int64) (event.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return r.s.withCountLocked(e), nil
}

func (r *EventsRepo) ListForUser(_ context.Context, userID int64) ([]event.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]event.Event, 0)
	for p := range r.s.pairs {
		if p.userID != userID {
			continue
		}
		if e, ok := r.s.events[p.eventID]; ok {
			out = append(out, r.s.withCountLocked(e))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *EventsRepo) Patch(_ context.Context, id int64, patch event.PatchEventRequest) (event.Event, error) {
	if patch.IsEmpty() {
		return event.Event{}, event.ErrEmptyPatch
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	patch.Apply(&e)
	e.UpdatedAt = time.Now().UTC()
	r.s.events[id] = e

	return r.s.withCountLocked(e), nil
}

func (r *EventsRepo) SetImageURL(_ context.Context, id int64, url string) (event.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	e.ImageURL = &url
	e.UpdatedAt = time.Now().UTC()
	r.s.events[id] = e

	return r.s.withCountLocked(e), nil
}

// Delete removes the event and cascades its registration pairs.
func (r *EventsRepo) Delete(_ context.Context, id int64) (event.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	delete(r.s.events, id)
	for p := range r.s.pairs {
		if p.eventID == id {
			delete(r.s.pairs, p)
		}
	}
	return e, nil
}
