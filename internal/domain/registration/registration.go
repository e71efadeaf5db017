package registration

import (
	"errors"
	"time"
)

// Registration is one (user, event) pair. A pair exists at most once and is
// removed together with either endpoint.
type Registration struct {
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

// if you are already registered.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// error if event is full
var ErrEventFull = errors.New("event is full")

var ErrNotRegistered = errors.New("user is not registered for this event")
