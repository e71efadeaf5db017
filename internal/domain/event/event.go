package event

import (
	"errors"
	"regexp"
	"time"
)

type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Place       string    `json:"place"`
	Capacity    *int      `json:"capacity"`
	Description *string   `json:"description"`
	AgeLimit    *int      `json:"age_limit"`
	EventType   *string   `json:"event_type"`
	ImageURL    *string   `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// derived from the participant set on every read
	RegistrationCount int `json:"registration_count"`
}

// Participant is the public view of a registered user.
type Participant struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type WithParticipants struct {
	Event
	Participants []Participant `json:"participants"`
}

var (
	ErrNotFound    = errors.New("event not found")
	ErrEmptyPatch  = errors.New("no valid fields to update")
	ErrInvalidDate = errors.New("date must use the DD.MM.YYYY format")
	ErrInvalidTime = errors.New("time must use the HH:MM 24-hour format")
)

var (
	dateRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	timeRe = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)
)

// ValidDate reports whether s looks like DD.MM.YYYY.
func ValidDate(s string) bool { return dateRe.MatchString(s) }

// ValidTime reports whether s is a 24-hour HH:MM clock time.
func ValidTime(s string) bool { return timeRe.MatchString(s) }

// HasCapacityFor reports whether one more participant fits. A nil capacity is unlimited.
func (e Event) HasCapacityFor(current int) bool {
	if e.Capacity == nil {
		return true
	}
	return current < *e.Capacity
}

// QRPayload is the text encoded into the event's QR code.
func (e Event) QRPayload() string {
	return e.Title + " — " + e.Date + " " + e.Time + " @ " + e.Place
}

type CreateEventRequest struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Date        string  `json:"date" binding:"required,eventdate"`
	Time        string  `json:"time" binding:"required,eventtime"`
	Place       string  `json:"place" binding:"required,max=200"`
	Capacity    *int    `json:"capacity" binding:"omitempty,min=0"`
	Description *string `json:"description" binding:"omitempty,max=4000"`
	AgeLimit    *int    `json:"age_limit" binding:"omitempty,min=0"`
	EventType   *string `json:"event_type" binding:"omitempty,max=80"`
	ImageURL    *string `json:"image_url" binding:"omitempty,url"`
}

// PatchEventRequest lists the only mutable fields. Capacity and identifiers have
// no field here, so decoding drops them. A nil field means no change.
type PatchEventRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Date        *string `json:"date" binding:"omitempty,eventdate"`
	Time        *string `json:"time" binding:"omitempty,eventtime"`
	Place       *string `json:"place" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=4000"`
	AgeLimit    *int    `json:"age_limit" binding:"omitempty,min=0"`
	EventType   *string `json:"event_type" binding:"omitempty,max=80"`
}

func (p PatchEventRequest) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && p.Time == nil && p.Place == nil &&
		p.Description == nil && p.AgeLimit == nil && p.EventType == nil
}

// Apply copies every non-nil field of p onto e.
func (p PatchEventRequest) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Place != nil {
		e.Place = *p.Place
	}
	if p.Description != nil {
		e.Description = p.Description
	}
	if p.AgeLimit != nil {
		e.AgeLimit = p.AgeLimit
	}
	if p.EventType != nil {
		e.EventType = p.EventType
	}
}

func NewFromCreateRequest(req CreateEventRequest) Event {
	now := time.Now().UTC()

	return Event{
		Title:       req.Title,
		Date:        req.Date,
		Time:        req.Time,
		Place:       req.Place,
		Capacity:    req.Capacity,
		Description: req.Description,
		AgeLimit:    req.AgeLimit,
		EventType:   req.EventType,
		ImageURL:    req.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
