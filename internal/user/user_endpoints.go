package user

import (
	"errors"

	"github.com/clipvault/clipvault_server/internal/response"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// PathParamUserID is set by the router on admin user requests.
const PathParamUserID = "userID"

type UserEndpoints struct {
	userService *UserService
}

func NewUserEndpoints(userService *UserService) *UserEndpoints {
	return &UserEndpoints{
		userService: userService,
	}
}

type MeResponse struct {
	*User
	VideoCount int `json:"videoCount"`
}

type CreateUserRequest struct {
	Name   string `json:"name"`
	APIKey string `json:"apiKey"`
	Limit  int    `json:"limit"`
}

// Me handles GET /api/v1/users/me
func (ue *UserEndpoints) Me(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := ctx.UserValue(ContextKey).(*User)
	if !ok || authenticatedUser == nil {
		response.Error(ctx, fasthttp.StatusUnauthorized, "Token is required")
		return
	}

	count, err := ue.userService.VideoCount(ctx, authenticatedUser)
	if err != nil {
		log.Error().Err(err).Str("userId", authenticatedUser.ID).Msg("Failed to count videos")
		response.Error(ctx, fasthttp.StatusInternalServerError, "Internal server error")
		return
	}

	response.JSON(ctx, fasthttp.StatusOK, MeResponse{User: authenticatedUser, VideoCount: count})
}

// CreateUser handles POST /api/v1/admin/users
func (ue *UserEndpoints) CreateUser(ctx *fasthttp.RequestCtx) {
	var req CreateUserRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		response.Error(ctx, fasthttp.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		response.FieldError(ctx, fasthttp.StatusBadRequest, "name is required", "name")
		return
	}
	if req.APIKey == "" {
		response.FieldError(ctx, fasthttp.StatusBadRequest, "apiKey is required", "apiKey")
		return
	}
	if req.Limit < 0 {
		response.FieldError(ctx, fasthttp.StatusBadRequest, "limit must not be negative", "limit")
		return
	}

	created, err := ue.userService.CreateUser(ctx, req.Name, req.APIKey, req.Limit)
	if err != nil {
		if errors.Is(err, ErrAPIKeyExists) {
			response.FieldError(ctx, fasthttp.StatusBadRequest, "Api Key already exists", "apiKey")
			return
		}
		log.Error().Err(err).Msg("Failed to create user")
		response.Error(ctx, fasthttp.StatusInternalServerError, "Internal server error")
		return
	}

	response.JSON(ctx, fasthttp.StatusCreated, created)
}

// DeleteUser handles DELETE /api/v1/admin/users/{userId}
func (ue *UserEndpoints) DeleteUser(ctx *fasthttp.RequestCtx) {
	userID, _ := ctx.UserValue(PathParamUserID).(string)
	if userID == "" {
		response.Error(ctx, fasthttp.StatusNotFound, "Not Found")
		return
	}

	if err := ue.userService.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Error(ctx, fasthttp.StatusNotFound, "Not Found")
			return
		}
		log.Error().Err(err).Str("userId", userID).Msg("Failed to delete user")
		response.Error(ctx, fasthttp.StatusInternalServerError, "Internal server error")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}
