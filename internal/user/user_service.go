package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type UserService struct {
	userRepository UserRepository
	videoCounter   VideoCounter
	directories    DirectoryRemover
}

func NewUserService(userRepository UserRepository, videoCounter VideoCounter, directories DirectoryRemover) *UserService {
	return &UserService{
		userRepository: userRepository,
		videoCounter:   videoCounter,
		directories:    directories,
	}
}

// HashAPIKey is the only form in which API keys are stored.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

func (us *UserService) AuthenticateRequest(ctx *fasthttp.RequestCtx) (*User, error) {
	apiKey, err := BearerToken(ctx)
	if err != nil {
		return nil, err
	}
	return us.Authenticate(ctx, apiKey)
}

func (us *UserService) Authenticate(ctx context.Context, apiKey string) (*User, error) {
	user, err := us.userRepository.GetUserByAPIKeyHash(ctx, HashAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidAPIKey
	}
	return user, nil
}

func (us *UserService) CreateUser(ctx context.Context, name, apiKey string, limit int) (*User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key cannot be empty")
	}

	user := &User{
		Name:       name,
		APIKeyHash: HashAPIKey(apiKey),
		Limit:      limit,
		CreatedAt:  time.Now().Unix(),
	}
	if err := us.userRepository.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Str("userId", user.ID).Str("name", user.Name).Int("limit", user.Limit).Msg("User created")
	return user, nil
}

// DeleteUser removes the user record and everything stored for them.
// Video rows go with the user through the foreign key.
func (us *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := us.userRepository.DeleteUser(ctx, id); err != nil {
		return err
	}

	if err := us.directories.DeleteUserDirectory(id); err != nil {
		log.Warn().Err(err).Str("userId", id).Msg("Failed to remove user directory")
	}
	log.Info().Str("userId", id).Msg("User deleted")
	return nil
}

func (us *UserService) VideoCount(ctx context.Context, user *User) (int, error) {
	return us.videoCounter.CountByUser(ctx, user.ID)
}

// CanUpload reports whether the user is below their plan limit.
func (us *UserService) CanUpload(ctx context.Context, user *User) (bool, error) {
	if user.Limit <= 0 {
		return true, nil
	}

	count, err := us.VideoCount(ctx, user)
	if err != nil {
		return false, fmt.Errorf("failed to count videos: %w", err)
	}
	return count < user.Limit, nil
}

// BearerToken extracts the credential of an "Authorization: Bearer <token>" header.
func BearerToken(ctx *fasthttp.RequestCtx) (string, error) {
	authHeader := string(ctx.Request.Header.Peek(headerAuthorization))
	if authHeader == "" {
		return "", ErrMissingToken
	}

	token, found := strings.CutPrefix(authHeader, bearerPrefix)
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
