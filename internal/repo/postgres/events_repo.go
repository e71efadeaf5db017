package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		pool: pool,
		prom: prom,
	}
}

// registration_count is derived from user_events on every read.
const eventSelect = `
	SELECT e.id, e.title, e.date, e.time, e.place, e.capacity,
		e.description, e.age_limit, e.event_type, e.image_url,
		e.created_at, e.updated_at,
		(SELECT COUNT(*) FROM user_events ue WHERE ue.event_id = e.id) AS registration_count
	FROM events e`

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Date, &e.Time, &e.Place, &e.Capacity,
		&e.Description, &e.AgeLimit, &e.EventType, &e.ImageURL,
		&e.CreatedAt, &e.UpdatedAt,
		&e.RegistrationCount,
	)
	return e, err
}

func (r *EventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	e := event.NewFromCreateRequest(req)

	err := r.prom.ObserveDB("events.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO events (title, date, time, place, capacity, description, age_limit, event_type, image_url, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			 RETURNING id`,
			e.Title, e.Date, e.Time, e.Place, e.Capacity, e.Description, e.AgeLimit, e.EventType, e.ImageURL, e.CreatedAt, e.UpdatedAt,
		).Scan(&e.ID)
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

// List returns every event with its registration count and participants. Both
// reads share one repeatable-read snapshot, and the count is taken from the
// participants so the two always agree.
func (r *EventsRepo) List(ctx context.Context) ([]event.WithParticipants, error) {
	var output []event.WithParticipants

	err := r.prom.ObserveDB("events.list", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		output, err = listEvents(ctx, tx)
		if err != nil {
			return err
		}

		if err := attachParticipants(ctx, tx, output); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}

func listEvents(ctx context.Context, tx pgx.Tx) ([]event.WithParticipants, error) {
	rows, err := tx.Query(ctx, eventSelect+` ORDER BY e.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	output := make([]event.WithParticipants, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		output = append(output, event.WithParticipants{Event: e, Participants: []event.Participant{}})
	}

	return output, rows.Err()
}

func attachParticipants(ctx context.Context, tx pgx.Tx, output []event.WithParticipants) error {
	if len(output) == 0 {
		return nil
	}

	index := make(map[int64]int, len(output))
	for i, e := range output {
		index[e.ID] = i
	}

	rows, err := tx.Query(ctx, `
		SELECT ue.event_id, u.id, u.username
		FROM user_events ue
		JOIN users u ON u.id = ue.user_id
		ORDER BY ue.event_id ASC, ue.created_at ASC, u.id ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var eventID int64
		var p event.Participant

		if err := rows.Scan(&eventID, &p.ID, &p.Username); err != nil {
			return err
		}

		if i, ok := index[eventID]; ok {
			output[i].Participants = append(output[i].Participants, p)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range output {
		output[i].RegistrationCount = len(output[i].Participants)
	}
	return nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id int64) (e event.Event, err error) {
	err = r.prom.ObserveDB("events.get_by_id", func() error {
		var qerr error
		e, qerr = scanEvent(r.pool.QueryRow(ctx, eventSelect+` WHERE e.id = $1`, id))
		return qerr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// ListForUser returns the events the user is registered for.
func (r *EventsRepo) ListForUser(ctx context.Context, userID int64) ([]event.Event, error) {
	var rows pgx.Rows

	err := r.prom.ObserveDB("events.list_for_user", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			eventSelect+` JOIN user_events mine ON mine.event_id = e.id
			WHERE mine.user_id = $1
			ORDER BY e.id ASC`,
			userID,
		)
		return e
	})
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]event.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// Patch overwrites only the non-nil fields of the allow-listed patch.
func (r *EventsRepo) Patch(ctx context.Context, id int64, patch event.PatchEventRequest) (event.Event, error) {
	if patch.IsEmpty() {
		return event.Event{}, event.ErrEmptyPatch
	}

	var tag pgconn.CommandTag

	err := r.prom.ObserveDB("events.patch", func() error {
		var e error
		tag, e = r.pool.Exec(ctx,
			`UPDATE events
				SET title       = COALESCE($2, title),
					date        = COALESCE($3, date),
					time        = COALESCE($4, time),
					place       = COALESCE($5, place),
					description = COALESCE($6, description),
					age_limit   = COALESCE($7, age_limit),
					event_type  = COALESCE($8, event_type),
					updated_at  = NOW()
			WHERE id = $1`,
			id, patch.Title, patch.Date, patch.Time, patch.Place, patch.Description, patch.AgeLimit, patch.EventType,
		)
		return e
	})

	if err != nil {
		return event.Event{}, err
	}

	// if there are no rows matching the id
	if tag.RowsAffected() == 0 {
		return event.Event{}, event.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *EventsRepo) SetImageURL(ctx context.Context, id int64, url string) (event.Event, error) {
	var tag pgconn.CommandTag

	err := r.prom.ObserveDB("events.set_image_url", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `UPDATE events SET image_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
		return e
	})
	if err != nil {
		return event.Event{}, err
	}

	if tag.RowsAffected() == 0 {
		return event.Event{}, event.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes the event and returns it as it was; registration pairs cascade.
func (r *EventsRepo) Delete(ctx context.Context, id int64) (event.Event, error) {
	var e event.Event

	err := r.prom.ObserveDB("events.delete", func() error {
		return r.pool.QueryRow(ctx,
			`DELETE FROM events WHERE id = $1
			 RETURNING id, title, date, time, place, capacity, description, age_limit, event_type, image_url, created_at, updated_at`,
			id,
		).Scan(&e.ID, &e.Title, &e.Date, &e.Time, &e.Place, &e.Capacity, &e.Description, &e.AgeLimit, &e.EventType, &e.ImageURL, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		// if no rows were deleted as a result return a not found error
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}
