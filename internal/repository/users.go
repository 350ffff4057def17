package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db, now: utcNow}
}

// Create inserts a user, returning model.ErrEmailTaken on a duplicate email.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = r.now()

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.Role, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
			return model.ErrEmailTaken
		}
		return storeErr("insert user", err)
	}
	return nil
}

// FindByID returns a user or model.ErrUserNotFound.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, model.ErrUserNotFound
	}
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, storeErr("get user", err)
	}
	return &u, nil
}

// Exists reports whether a user with id is stored.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, storeErr("check user", err)
	}
	return ok, nil
}
