package middleware

import (
	"regexp"

	"github.com/valyala/fasthttp"
)

var localhostOrigin = regexp.MustCompile(`^https?://localhost:\d+$`)

type CORSMiddleware struct {
	allowedOrigins map[string]struct{}
	allowAny       bool
	allowLocalhost bool
}

// NewCORSMiddleware accepts exact origins, "*" and the "http://localhost:*"
// pattern. No origins means "*".
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	cm := &CORSMiddleware{allowedOrigins: make(map[string]struct{})}
	if len(allowedOrigins) == 0 {
		cm.allowAny = true
	}
	for _, origin := range allowedOrigins {
		switch origin {
		case "*":
			cm.allowAny = true
		case "http://localhost:*", "https://localhost:*":
			cm.allowLocalhost = true
		default:
			cm.allowedOrigins[origin] = struct{}{}
		}
	}
	return cm
}

func (cm *CORSMiddleware) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))

		if origin != "" && cm.isOriginAllowed(origin) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Add("Vary", "Origin")
		} else if cm.allowAny {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		}

		ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		ctx.Response.Header.Set("Access-Control-Expose-Headers", "Content-Disposition, Content-Type")
		ctx.Response.Header.Set("Access-Control-Max-Age", "86400")

		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

func (cm *CORSMiddleware) isOriginAllowed(origin string) bool {
	if _, ok := cm.allowedOrigins[origin]; ok {
		return true
	}
	// localhost on any port is allowed in open (wildcard) mode too
	if cm.allowLocalhost || cm.allowAny {
		return localhostOrigin.MatchString(origin)
	}
	return false
}
