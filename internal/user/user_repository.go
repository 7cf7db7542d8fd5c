package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, name, api_key_hash, video_limit, created_at) VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.Name, user.APIKeyHash, user.Limit, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrAPIKeyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx,
		"SELECT id, name, api_key_hash, video_limit, created_at FROM users WHERE id = $1",
		id,
	)
}

func (r *postgresUserRepository) GetUserByAPIKeyHash(ctx context.Context, apiKeyHash string) (*User, error) {
	return r.getOne(ctx,
		"SELECT id, name, api_key_hash, video_limit, created_at FROM users WHERE api_key_hash = $1",
		apiKeyHash,
	)
}

func (r *postgresUserRepository) getOne(ctx context.Context, query string, arg string) (*User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Name, &user.APIKeyHash, &user.Limit, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *postgresUserRepository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
