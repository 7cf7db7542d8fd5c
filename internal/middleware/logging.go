package middleware

import (
	"strconv"
	"time"

	"github.com/clipvault/clipvault_server/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// RouteKey is the user value the router sets to a low-cardinality route
// name, used as the metrics label instead of the raw path.
const RouteKey = "route"

const unmatchedRoute = "unmatched"

func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		started := time.Now()

		next(ctx)

		elapsed := time.Since(started)
		status := ctx.Response.StatusCode()
		route, _ := ctx.UserValue(RouteKey).(string)
		if route == "" {
			route = unmatchedRoute
		}
		metrics.RecordRequest(string(ctx.Method()), route, strconv.Itoa(status), elapsed.Seconds())

		log.WithLevel(levelFor(status)).
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", status).
			Dur("duration", elapsed).
			Msg("Request handled")
	}
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= fasthttp.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= fasthttp.StatusBadRequest:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
