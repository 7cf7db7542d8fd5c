package user

import (
	"context"
	"errors"
)

const (
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "

	// ContextKey is the fasthttp user value holding the authenticated *User.
	ContextKey = "user"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAPIKeyExists  = errors.New("api key already exists")
	ErrMissingToken  = errors.New("token is required")
	ErrInvalidAPIKey = errors.New("invalid api key")
)

type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	APIKeyHash string `json:"-"`
	// Limit is the number of videos the user may own; zero or less is unlimited.
	Limit     int   `json:"limit"`
	CreatedAt int64 `json:"createdAt"`
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByAPIKeyHash(ctx context.Context, apiKeyHash string) (*User, error)
	DeleteUser(ctx context.Context, id string) error
}

// VideoCounter reports how many videos a user currently owns.
type VideoCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

// DirectoryRemover deletes everything stored for a user.
type DirectoryRemover interface {
	DeleteUserDirectory(userID string) error
}
