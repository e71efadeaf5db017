// Package memory is an in-process implementation of the storage ports used
// by the HTTP layer. It backs STORAGE=memory and the handler tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/domain/user"
)

type pair struct {
	userID  int64
	eventID int64
}

// state is shared by the three repos. One mutex covers every map, which makes
// the capacity check and the pair insert a single critical section.
type state struct {
	mu sync.RWMutex

	nextUserID  int64
	nextEventID int64

	users  map[int64]user.User
	events map[int64]event.Event
	pairs  map[pair]time.Time
}

type Store struct {
	Users         *UsersRepo
	Events        *EventsRepo
	Registrations *RegistrationsRepo
}

func New() *Store {
	s := &state{
		users:  make(map[int64]user.User),
		events: make(map[int64]event.Event),
		pairs:  make(map[pair]time.Time),
	}

	return &Store{
		Users:         &UsersRepo{s: s},
		Events:        &EventsRepo{s: s},
		Registrations: &RegistrationsRepo{s: s},
	}
}

// countLocked derives the registration count from the pair set. Caller holds s.mu.
func (s *state) countLocked(eventID int64) int {
	n := 0
	for p := range s.pairs {
		if p.eventID == eventID {
			n++
		}
	}
	return n
}

func (s *state) withCountLocked(e event.Event) event.Event {
	e.RegistrationCount = s.countLocked(e.ID)
	return e
}

// participantsLocked returns the users registered for eventID in registration order.
func (s *state) participantsLocked(eventID int64) []event.Participant {
	type entry struct {
		p  event.Participant
		at time.Time
	}

	entries := make([]entry, 0)
	for p, at := range s.pairs {
		if p.eventID != eventID {
			continue
		}
		if u, ok := s.users[p.userID]; ok {
			entries = append(entries, entry{p: event.Participant{ID: u.ID, Username: u.Username}, at: at})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].at.Equal(entries[j].at) {
			return entries[i].p.ID < entries[j].p.ID
		}
		return entries[i].at.Before(entries[j].at)
	})

	out := make([]event.Participant, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.p)
	}
	return out
}
