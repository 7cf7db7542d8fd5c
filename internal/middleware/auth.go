package middleware

import (
	"crypto/subtle"
	"errors"

	"github.com/clipvault/clipvault_server/internal/response"
	"github.com/clipvault/clipvault_server/internal/user"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type AuthMiddleware struct {
	userService *user.UserService
	adminKey    []byte
}

func NewAuthMiddleware(userService *user.UserService, adminKey string) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		adminKey:    []byte(adminKey),
	}
}

// RequireAuth resolves the API key to a user and stores it under user.ContextKey.
func (am *AuthMiddleware) RequireAuth(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		authenticatedUser, err := am.userService.AuthenticateRequest(ctx)
		if err != nil {
			switch {
			case errors.Is(err, user.ErrMissingToken):
				response.Error(ctx, fasthttp.StatusUnauthorized, "Token is required")
			case errors.Is(err, user.ErrInvalidAPIKey):
				log.Debug().Msg("Unknown api key")
				response.Error(ctx, fasthttp.StatusUnauthorized, "Invalid token")
			default:
				log.Error().Err(err).Msg("Authentication failed")
				response.Error(ctx, fasthttp.StatusInternalServerError, "Internal server error")
			}
			return
		}

		ctx.SetUserValue(user.ContextKey, authenticatedUser)

		handler(ctx)
	}
}

func (am *AuthMiddleware) RequireAdmin(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		token, err := user.BearerToken(ctx)
		if err != nil {
			response.Error(ctx, fasthttp.StatusUnauthorized, "Token is required")
			return
		}
		if len(am.adminKey) == 0 || subtle.ConstantTimeCompare([]byte(token), am.adminKey) != 1 {
			log.Warn().Str("ip", ctx.RemoteIP().String()).Msg("Rejected admin request")
			response.Error(ctx, fasthttp.StatusUnauthorized, "Invalid token")
			return
		}

		handler(ctx)
	}
}
