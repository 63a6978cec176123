package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/primeestates/primeestates/internal/domain/user"
	"github.com/primeestates/primeestates/internal/observability"
)

const userColumns = `id, name, email, phone, password_hash, role, is_verified,
         verification_token, verification_token_expire,
         reset_password_token, reset_password_expire,
         created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

// observe routes the op through the DB metrics wrapper when metrics are wired.
func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom == nil {
		return fn()
	}

	return r.prom.ObserveDB(op, fn)
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&u.Role,
		&u.IsVerified,
		&u.VerificationTokenHash,
		&u.VerificationTokenExpire,
		&u.ResetPasswordTokenHash,
		&u.ResetPasswordExpire,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// Create inserts a new user. The unique index on email is the authority on
// duplicates; a violation surfaces as user.ErrEmailTaken.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, phone, password_hash, role, is_verified, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.IsVerified, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var users []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)

			if err != nil {
				return err
			}

			users = append(users, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id, role string) (user.User, error) {
	var u user.User

	err := r.observe("users.update_role", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET role = $2, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns, id, role))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// verification token lifecycle

func (r *UsersRepo) SetVerificationToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return r.setToken(ctx, "users.set_verification_token",
		`UPDATE users
		 SET verification_token = $2, verification_token_expire = $3, updated_at = NOW()
		 WHERE id = $1`, id, tokenHash, expires)
}

func (r *UsersRepo) ClearVerificationToken(ctx context.Context, id string) error {
	return r.clearToken(ctx, "users.clear_verification_token",
		`UPDATE users
		 SET verification_token = NULL, verification_token_expire = NULL, updated_at = NOW()
		 WHERE id = $1`, id)
}

// ConsumeVerificationToken matches, verifies and clears in one statement so
// two concurrent attempts with the same token cannot both succeed.
func (r *UsersRepo) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (user.User, error) {
	var u user.User

	err := r.observe("users.consume_verification_token", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			 SET is_verified = TRUE,
			     verification_token = NULL,
			     verification_token_expire = NULL,
			     updated_at = NOW()
			 WHERE verification_token = $1 AND verification_token_expire > $2
			 RETURNING `+userColumns, tokenHash, now))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// reset token lifecycle

func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return r.setToken(ctx, "users.set_reset_token",
		`UPDATE users
		 SET reset_password_token = $2, reset_password_expire = $3, updated_at = NOW()
		 WHERE id = $1`, id, tokenHash, expires)
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.clearToken(ctx, "users.clear_reset_token",
		`UPDATE users
		 SET reset_password_token = NULL, reset_password_expire = NULL, updated_at = NOW()
		 WHERE id = $1`, id)
}

// ConsumeResetToken swaps in the new password hash and clears the reset pair
// in the same conditional update.
func (r *UsersRepo) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newPasswordHash string) (user.User, error) {
	var u user.User

	err := r.observe("users.consume_reset_token", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			 SET password_hash = $3,
			     reset_password_token = NULL,
			     reset_password_expire = NULL,
			     updated_at = NOW()
			 WHERE reset_password_token = $1 AND reset_password_expire > $2
			 RETURNING `+userColumns, tokenHash, now, newPasswordHash))
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// helpers

func (r *UsersRepo) setToken(ctx context.Context, op, sql string, id, tokenHash string, expires time.Time) error {
	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, sql, id, tokenHash, expires)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

func (r *UsersRepo) clearToken(ctx context.Context, op, sql, id string) error {
	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, sql, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return false
}
