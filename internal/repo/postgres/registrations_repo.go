package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/domain/registration"
	"github.com/geocoder89/eventparser/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RegistrationRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRegistrationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RegistrationRepo {
	return &RegistrationRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *RegistrationRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return repo.pool.BeginTx(ctx, pgx.TxOptions{})
}

// lockEvent takes a row lock on the event for the rest of tx. Every capacity
// check for the same event queues behind it, so check-then-insert is serialised.
func (repo *RegistrationRepo) lockEvent(ctx context.Context, tx pgx.Tx, eventID int64) (e event.Event, err error) {
	err = repo.prom.ObserveDB("registrations.lock_event", func() error {
		return tx.QueryRow(ctx, `
			SELECT id, title, date, time, place, capacity
			FROM events
			WHERE id = $1
			FOR UPDATE
		`, eventID).Scan(&e.ID, &e.Title, &e.Date, &e.Time, &e.Place, &e.Capacity)
	})

	if errors.Is(err, pgx.ErrNoRows) {
		err = event.ErrNotFound
	}
	return
}

// RegisterTx inserts the (user, event) pair inside tx.
// Order of checks: event exists, capacity, uniqueness.
func (repo *RegistrationRepo) RegisterTx(ctx context.Context, tx pgx.Tx, userID, eventID int64) (e event.Event, err error) {
	e, err = repo.lockEvent(ctx, tx, eventID)
	if err != nil {
		return
	}

	var current int
	err = repo.prom.ObserveDB("registrations.count_locked", func() error {
		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM user_events WHERE event_id = $1`, eventID).Scan(&current)
	})
	if err != nil {
		return
	}

	if !e.HasCapacityFor(current) {
		err = registration.ErrEventFull
		return
	}

	var exists bool
	err = repo.prom.ObserveDB("registrations.duplicate_check", func() error {
		return tx.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM user_events WHERE user_id = $1 AND event_id = $2
		)`, userID, eventID).Scan(&exists)
	})
	if err != nil {
		return
	}

	if exists {
		err = registration.ErrAlreadyRegistered
		return
	}

	err = repo.prom.ObserveDB("registrations.insert", func() error {
		_, execErr := tx.Exec(ctx, `INSERT INTO user_events (user_id, event_id) VALUES ($1, $2)`, userID, eventID)
		return execErr
	})

	if err != nil {
		if isConstraint(err, "user_events_pkey") {
			err = registration.ErrAlreadyRegistered
		}
		return
	}

	e.RegistrationCount = current + 1
	return
}

// Register enforces capacity and uniqueness in a single transaction using the
// idiomatic Go "named return and defer" approach.
func (repo *RegistrationRepo) Register(ctx context.Context, userID, eventID int64) (e event.Event, err error) {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	e, err = repo.RegisterTx(ctx, tx, userID, eventID)
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

func (repo *RegistrationRepo) Unregister(ctx context.Context, userID, eventID int64) (e event.Event, err error) {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	e, err = repo.lockEvent(ctx, tx, eventID)
	if err != nil {
		return
	}

	var tag pgconn.CommandTag
	err = repo.prom.ObserveDB("registrations.delete", func() error {
		var execErr error
		tag, execErr = tx.Exec(ctx, `DELETE FROM user_events WHERE user_id = $1 AND event_id = $2`, userID, eventID)
		return execErr
	})
	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		err = registration.ErrNotRegistered
		return
	}

	err = tx.Commit(ctx)
	return
}

func (repo *RegistrationRepo) CountForEvent(ctx context.Context, eventID int64) (int, error) {
	var total int
	err := repo.prom.ObserveDB("registrations.count_for_event", func() error {
		return repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_events WHERE event_id = $1`, eventID).Scan(&total)
	})
	return total, err
}
