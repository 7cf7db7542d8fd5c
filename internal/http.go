package internal

import (
	"strings"

	"github.com/clipvault/clipvault_server/internal/health"
	"github.com/clipvault/clipvault_server/internal/metrics"
	"github.com/clipvault/clipvault_server/internal/middleware"
	"github.com/clipvault/clipvault_server/internal/response"
	"github.com/clipvault/clipvault_server/internal/user"
	"github.com/clipvault/clipvault_server/internal/video"
	"github.com/valyala/fasthttp"
)

const (
	apiPrefix            = "/api/v1"
	videosDownloadPrefix = apiPrefix + "/videos/download/"
	adminUsersPrefix     = apiPrefix + "/admin/users/"
)

func NewRequestHandler(config *Config, userService *user.UserService, userEndpoints *user.UserEndpoints, videoEndpoints *video.VideoEndpoints, healthEndpoints *health.HealthEndpoints) fasthttp.RequestHandler {
	authMiddleware := middleware.NewAuthMiddleware(userService, config.Admin.Key)
	corsMiddleware := middleware.NewCORSMiddleware(config.Server.AllowedOrigins)
	metricsHandler := metrics.Handler()

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/health":
			route(ctx, "health")
			healthEndpoints.Health(ctx)
		case path == "/ready":
			route(ctx, "ready")
			healthEndpoints.Ready(ctx)
		case path == "/metrics":
			route(ctx, "metrics")
			metricsHandler(ctx)

		case path == apiPrefix+"/users/me":
			route(ctx, "users.me")
			if method != fasthttp.MethodGet {
				methodNotAllowed(ctx)
				return
			}
			authMiddleware.RequireAuth(userEndpoints.Me)(ctx)

		case path == apiPrefix+"/videos":
			route(ctx, "videos.list")
			if method != fasthttp.MethodGet {
				methodNotAllowed(ctx)
				return
			}
			authMiddleware.RequireAuth(videoEndpoints.List)(ctx)
		case path == apiPrefix+"/videos/upload":
			route(ctx, "videos.upload")
			if method != fasthttp.MethodPost {
				methodNotAllowed(ctx)
				return
			}
			authMiddleware.RequireAuth(videoEndpoints.Upload)(ctx)
		case path == apiPrefix+"/videos/trim":
			route(ctx, "videos.trim")
			if method != fasthttp.MethodPost {
				methodNotAllowed(ctx)
				return
			}
			authMiddleware.RequireAuth(videoEndpoints.Trim)(ctx)
		case strings.HasPrefix(path, videosDownloadPrefix):
			route(ctx, "videos.download")
			videoID := strings.TrimPrefix(path, videosDownloadPrefix)
			if videoID == "" || strings.Contains(videoID, "/") {
				notFound(ctx)
				return
			}
			if method != fasthttp.MethodGet {
				methodNotAllowed(ctx)
				return
			}
			ctx.SetUserValue(video.PathParamVideoID, videoID)
			authMiddleware.RequireAuth(videoEndpoints.Download)(ctx)

		case path == apiPrefix+"/admin/users":
			route(ctx, "admin.users.create")
			if method != fasthttp.MethodPost {
				methodNotAllowed(ctx)
				return
			}
			authMiddleware.RequireAdmin(userEndpoints.CreateUser)(ctx)
		case strings.HasPrefix(path, adminUsersPrefix):
			route(ctx, "admin.users.delete")
			parts := strings.Split(strings.TrimPrefix(path, adminUsersPrefix), "/")
			if len(parts) != 1 || parts[0] == "" {
				notFound(ctx)
				return
			}
			if method != fasthttp.MethodDelete {
				methodNotAllowed(ctx)
				return
			}
			ctx.SetUserValue(user.PathParamUserID, parts[0])
			authMiddleware.RequireAdmin(userEndpoints.DeleteUser)(ctx)

		default:
			notFound(ctx)
		}
	}

	return middleware.RequestLogger(corsMiddleware.Handle(handler))
}

func route(ctx *fasthttp.RequestCtx, name string) {
	ctx.SetUserValue(middleware.RouteKey, name)
}

func notFound(ctx *fasthttp.RequestCtx) {
	response.Error(ctx, fasthttp.StatusNotFound, "Not Found")
}

func methodNotAllowed(ctx *fasthttp.RequestCtx) {
	response.Error(ctx, fasthttp.StatusMethodNotAllowed, "Method Not Allowed")
}
