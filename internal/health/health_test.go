package health

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func decode(t *testing.T, ctx *fasthttp.RequestCtx) HealthResponse {
	t.Helper()
	var body HealthResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body
}

func TestHealth_ShouldReportVersion(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.2.3")
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.Health(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := decode(t, ctx)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
}

func TestReady_ShouldPassWhenAllChecksPass(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.2.3",
		Check{Name: "database", Run: func(ctx context.Context) error { return nil }},
		Check{Name: "ffmpeg", Run: func(ctx context.Context) error { return nil }},
	)
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.Ready(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, map[string]string{"database": "ok", "ffmpeg": "ok"}, decode(t, ctx).Checks)
}

func TestReady_ShouldReportUnavailableWhenAnyCheckFails(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.2.3",
		Check{Name: "database", Run: func(ctx context.Context) error { return nil }},
		Check{Name: "ffprobe", Run: func(ctx context.Context) error { return errors.New("exec: \"ffprobe\": executable file not found in $PATH") }},
	)
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.Ready(ctx)

	// then
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	body := decode(t, ctx)
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "failed", body.Checks["ffprobe"])
	assert.NotContains(t, string(ctx.Response.Body()), "$PATH")
	assert.Equal(t, "ok", body.Checks["database"])
}
