package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the referenced user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already in use")

	// ErrNegativeBalance guards the balance >= 0 invariant at the store level.
	ErrNegativeBalance = errors.New("balance cannot go negative")
)

// Repository persists user records and resolves identifiers to profiles.
type Repository interface {
	Create(ctx context.Context, user User) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uniqueViolation = "23505"

// Create inserts a new user and returns the record with its assigned id.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO users (first_name, last_name, email, password_hash, balance, created_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Balance, user.CreatedAt.UTC())
	if err := row.Scan(&user.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return user, nil
}

// FindByID fetches a user by numeric identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, first_name, last_name, email, password_hash, balance, created_at
        FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, first_name, last_name, email, password_hash, balance, created_at
        FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		createdAt time.Time
	)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Balance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt = createdAt.UTC()
	return u, nil
}
