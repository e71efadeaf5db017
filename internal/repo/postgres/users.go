package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/eventparser/internal/domain/user"
	"github.com/geocoder89/eventparser/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

const userColumns = `id, username, password_hash, role, created_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, username, passwordHash, role string) (u user.User, err error) {
	err = r.prom.ObserveDB("users.create", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx,
			`INSERT INTO users (username, password_hash, role)
			 VALUES ($1, $2, $3)
			 RETURNING `+userColumns,
			username, passwordHash, role,
		))
		return e
	})

	if err != nil {
		if isConstraint(err, "users_username_uniq") {
			return user.User{}, user.ErrUsernameTaken
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (u user.User, err error) {
	err = r.prom.ObserveDB("users.get_by_username", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1`,
			username,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	var tag pgconn.CommandTag
	err := r.prom.ObserveDB("users.update_password", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
		return e
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Delete removes the user; its registration pairs go with it (ON DELETE CASCADE).
func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	var tag pgconn.CommandTag
	err := r.prom.ObserveDB("users.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}
