package users

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id::text, email, password_hash, name, address, phone, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Address, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *PostgresStore) Create(ctx context.Context, u NewUser) (User, error) {
	row := s.db.QueryRow(ctx, `
		insert into users (email, password_hash, name, address, phone)
		values ($1, $2, $3, $4, $5)
		returning `+userColumns,
		strings.ToLower(u.Email), u.PasswordHash, u.Name, u.Address, u.Phone)
	user, err := scanUser(row)
	if isUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	return user, err
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRow(ctx, `select `+userColumns+` from users where email = $1`, strings.ToLower(strings.TrimSpace(email))))
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (User, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return User{}, ErrNotFound
	}
	return scanUser(s.db.QueryRow(ctx, `select `+userColumns+` from users where id = $1`, n))
}

func (s *PostgresStore) Update(ctx context.Context, id string, changes Changes) (User, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return User{}, ErrNotFound
	}
	var email *string
	if changes.Email != nil {
		lowered := strings.ToLower(*changes.Email)
		email = &lowered
	}
	row := s.db.QueryRow(ctx, `
		update users set
			email = coalesce($2, email),
			name = coalesce($3, name),
			address = coalesce($4, address),
			phone = coalesce($5, phone),
			password_hash = coalesce($6, password_hash),
			updated_at = now()
		where id = $1
		returning `+userColumns,
		n, email, changes.Name, changes.Address, changes.Phone, changes.PasswordHash)
	user, err := scanUser(row)
	if isUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	return user, err
}

func (s *PostgresStore) CreateResetToken(ctx context.Context, t ResetToken) error {
	n, err := strconv.ParseInt(t.UserID, 10, 64)
	if err != nil {
		return ErrNotFound
	}
	_, err = s.db.Exec(ctx, `insert into password_resets (token, user_id, expires_at) values ($1, $2, $3)`, t.Token, n, t.ExpiresAt)
	return err
}

func (s *PostgresStore) FindResetToken(ctx context.Context, token string) (ResetToken, error) {
	t := ResetToken{Token: token}
	err := s.db.QueryRow(ctx, `select user_id::text, expires_at from password_resets where token = $1`, token).Scan(&t.UserID, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ResetToken{}, ErrNotFound
	}
	return t, err
}

func (s *PostgresStore) DeleteResetToken(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `delete from password_resets where token = $1`, token)
	return err
}
