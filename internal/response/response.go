package response

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const contentTypeJSON = "application/json"

type Reason struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    int      `json:"code"`
	Reasons []Reason `json:"reasons"`
}

func JSON(ctx *fasthttp.RequestCtx, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		Error(ctx, fasthttp.StatusInternalServerError, "Internal server error")
		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType(contentTypeJSON)
	ctx.SetBody(payload)
}

func Error(ctx *fasthttp.RequestCtx, status int, message string) {
	FieldError(ctx, status, message, "")
}

func FieldError(ctx *fasthttp.RequestCtx, status int, message, field string) {
	payload, _ := json.Marshal(ErrorResponse{
		Code:    status,
		Reasons: []Reason{{Message: message, Field: field}},
	})

	ctx.SetStatusCode(status)
	ctx.SetContentType(contentTypeJSON)
	ctx.SetBody(payload)
}
