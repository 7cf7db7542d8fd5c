package video

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/clipvault/clipvault_server/internal/response"
	"github.com/clipvault/clipvault_server/internal/user"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type gateFunc func(ctx context.Context, u *user.User) (bool, error)

func (f gateFunc) CanUpload(ctx context.Context, u *user.User) (bool, error) {
	return f(ctx, u)
}

func allowAll() UploadGate {
	return gateFunc(func(ctx context.Context, u *user.User) (bool, error) { return true, nil })
}

func newRequestCtx(method, uri, contentType string, body []byte, caller *user.User) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	req.SetBody(body)

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	if caller != nil {
		ctx.SetUserValue(user.ContextKey, caller)
	}
	return ctx
}

type filePart struct {
	field, name, contentType, content string
}

func multipartBody(t *testing.T, parts ...filePart) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, part := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+part.field+`"; filename="`+part.name+`"`)
		header.Set("Content-Type", part.contentType)
		w, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = w.Write([]byte(part.content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf.Bytes(), writer.FormDataContentType()
}

func decodeError(t *testing.T, ctx *fasthttp.RequestCtx) response.ErrorResponse {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	require.Len(t, body.Reasons, 1)
	return body
}

func TestVideoEndpoints_Upload_ShouldReturnCreatedVideo(t *testing.T) {
	// given
	f := newFixture(t)
	endpoints := NewVideoEndpoints(f.service, allowAll())
	body, contentType := multipartBody(t, filePart{"video", "holiday.mp4", "video/mp4", "fake video bytes"})
	ctx := newRequestCtx("POST", "/api/v1/videos/upload", contentType, body, f.owner)

	// when
	endpoints.Upload(ctx)

	// then
	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	var created Video
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &created))
	assert.Equal(t, "holiday.mp4", created.OriginalName)
	assert.Equal(t, f.owner.ID, created.UserID)
	assert.FileExists(t, f.layout.Resolve(created.Path))

	entries, err := os.ReadDir(f.layout.IncomingDirectory())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVideoEndpoints_Upload_ShouldRejectWhenPlanLimitReached(t *testing.T) {
	// given
	f := newFixture(t)
	gate := gateFunc(func(ctx context.Context, u *user.User) (bool, error) { return false, nil })
	endpoints := NewVideoEndpoints(f.service, gate)
	body, contentType := multipartBody(t, filePart{"video", "clip.mp4", "video/mp4", "bytes"})
	ctx := newRequestCtx("POST", "/api/v1/videos/upload", contentType, body, f.owner)

	// when
	endpoints.Upload(ctx)

	// then
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
	errBody := decodeError(t, ctx)
	assert.Equal(t, 403, errBody.Code)
	assert.Equal(t, "Plan Limit: video limit reached", errBody.Reasons[0].Message)
	assert.Zero(t, f.prober.calls)
}

func TestVideoEndpoints_Upload_ShouldFailWhenGateFails(t *testing.T) {
	// given
	f := newFixture(t)
	gate := gateFunc(func(ctx context.Context, u *user.User) (bool, error) { return false, errors.New("db down") })
	endpoints := NewVideoEndpoints(f.service, gate)
	ctx := newRequestCtx("POST", "/api/v1/videos/upload", "", nil, f.owner)

	// when
	endpoints.Upload(ctx)

	// then
	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Equal(t, "Internal server error", decodeError(t, ctx).Reasons[0].Message)
}

func TestVideoEndpoints_Upload_ShouldRequireExactlyOneFile(t *testing.T) {
	tests := []struct {
		name    string
		parts   []filePart
		message string
	}{
		{"no multipart body", nil, "File Not Found"},
		{"wrong field", []filePart{{"file", "clip.mp4", "video/mp4", "bytes"}}, "File Not Found"},
		{"two files", []filePart{
			{"video", "a.mp4", "video/mp4", "bytes"},
			{"video", "b.mp4", "video/mp4", "bytes"},
		}, "Only one file is allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			endpoints := NewVideoEndpoints(f.service, allowAll())
			var ctx *fasthttp.RequestCtx
			if tt.parts == nil {
				ctx = newRequestCtx("POST", "/api/v1/videos/upload", "application/json", []byte("{}"), f.owner)
			} else {
				body, contentType := multipartBody(t, tt.parts...)
				ctx = newRequestCtx("POST", "/api/v1/videos/upload", contentType, body, f.owner)
			}

			endpoints.Upload(ctx)

			assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
			assert.Equal(t, tt.message, decodeError(t, ctx).Reasons[0].Message)
			assert.Zero(t, f.prober.calls)
		})
	}
}

func TestVideoEndpoints_Upload_ShouldReportValidationReason(t *testing.T) {
	// given
	f := newFixture(t)
	f.prober.duration = 601
	endpoints := NewVideoEndpoints(f.service, allowAll())
	body, contentType := multipartBody(t, filePart{"video", "long.mp4", "video/mp4", "bytes"})
	ctx := newRequestCtx("POST", "/api/v1/videos/upload", contentType, body, f.owner)

	// when
	endpoints.Upload(ctx)

	// then
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	errBody := decodeError(t, ctx)
	assert.Equal(t, "Video too long", errBody.Reasons[0].Message)
	assert.Equal(t, "video", errBody.Reasons[0].Field)
}

func TestVideoEndpoints_Trim_ShouldReturnCreatedVideo(t *testing.T) {
	// given
	f := newFixture(t)
	source := f.seedVideo(t, f.owner, 20)
	endpoints := NewVideoEndpoints(f.service, allowAll())
	body := []byte(`{"videoId":"` + source.ID + `","start":1.5,"end":10}`)
	ctx := newRequestCtx("POST", "/api/v1/videos/trim", "application/json", body, f.owner)

	// when
	endpoints.Trim(ctx)

	// then
	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	var created Video
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &created))
	assert.Equal(t, 8.5, created.Duration)
	assert.Equal(t, source.OriginalName, created.OriginalName)
}

func TestVideoEndpoints_Trim_ShouldMapRejections(t *testing.T) {
	tests := []struct {
		name    string
		body    func(sourceID, foreignID string) string
		status  int
		message string
	}{
		{"malformed body", func(string, string) string { return `{"videoId":` }, 400, "Invalid request body"},
		{"missing video id", func(string, string) string { return `{"start":1}` }, 400, "videoId is required"},
		{"no bounds", func(id, _ string) string { return `{"videoId":"` + id + `"}` }, 400, "one of start or end is required"},
		{"null bounds", func(id, _ string) string { return `{"videoId":"` + id + `","start":null,"end":null}` }, 400, "one of start or end is required"},
		{"end at duration", func(id, _ string) string { return `{"videoId":"` + id + `","end":20}` }, 400, "end must be less than video duration"},
		{"too short", func(id, _ string) string { return `{"videoId":"` + id + `","start":18,"end":19}` }, 400, "Trimmed video too short"},
		{"unknown video", func(string, string) string { return `{"videoId":"nope","end":5}` }, 404, "Not Found"},
		{"foreign video", func(_, foreign string) string { return `{"videoId":"` + foreign + `","end":5}` }, 403, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			source := f.seedVideo(t, f.owner, 20)
			foreign := f.seedVideo(t, f.other, 20)
			endpoints := NewVideoEndpoints(f.service, allowAll())
			ctx := newRequestCtx("POST", "/api/v1/videos/trim", "application/json", []byte(tt.body(source.ID, foreign.ID)), f.owner)

			endpoints.Trim(ctx)

			assert.Equal(t, tt.status, ctx.Response.StatusCode())
			errBody := decodeError(t, ctx)
			assert.Equal(t, tt.status, errBody.Code)
			assert.Equal(t, tt.message, errBody.Reasons[0].Message)
		})
	}
}

func TestVideoEndpoints_List_ShouldReturnJSONArray(t *testing.T) {
	// given
	f := newFixture(t)
	f.seedVideo(t, f.owner, 20)
	f.seedVideo(t, f.owner, 30)
	endpoints := NewVideoEndpoints(f.service, allowAll())
	ctx := newRequestCtx("GET", "/api/v1/videos", "", nil, f.owner)

	// when
	endpoints.List(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var videos []Video
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &videos))
	assert.Len(t, videos, 2)
}

func TestVideoEndpoints_Download_ShouldSendOwnedFileAsAttachment(t *testing.T) {
	// given
	f := newFixture(t)
	source := f.seedVideo(t, f.owner, 20)
	endpoints := NewVideoEndpoints(f.service, allowAll())
	ctx := newRequestCtx("GET", "/api/v1/videos/download/"+source.ID, "", nil, f.owner)
	ctx.SetUserValue(PathParamVideoID, source.ID)

	// when
	endpoints.Download(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, `attachment; filename=source.mp4`, string(ctx.Response.Header.Peek("Content-Disposition")))
	assert.Equal(t, "source bytes", string(ctx.Response.Body()))
}

func TestVideoEndpoints_Download_ShouldServeNamesWithURIMetacharacters(t *testing.T) {
	for _, original := range []string{"what?.mp4", "take#2.mp4", "a%20b.mp4"} {
		t.Run(original, func(t *testing.T) {
			// given
			f := newFixture(t)
			directory, err := f.files.EnsureUserDirectory(f.owner.ID)
			require.NoError(t, err)
			name := f.layout.NewFileName(original)
			require.NoError(t, os.WriteFile(filepath.Join(directory, name), []byte("stored bytes"), 0o644))
			stored := &Video{UserID: f.owner.ID, Path: f.layout.RelativePath(f.owner.ID, name), Name: name, OriginalName: original, Size: 12, Duration: 20}
			require.NoError(t, f.repo.Create(context.Background(), stored))

			endpoints := NewVideoEndpoints(f.service, allowAll())
			ctx := newRequestCtx("GET", "/api/v1/videos/download/"+stored.ID, "", nil, f.owner)
			ctx.SetUserValue(PathParamVideoID, stored.ID)

			// when
			endpoints.Download(ctx)

			// then
			assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
			assert.Equal(t, "stored bytes", string(ctx.Response.Body()))
			entries, err := os.ReadDir(directory)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestVideoEndpoints_Download_ShouldRejectForeignVideo(t *testing.T) {
	// given
	f := newFixture(t)
	foreign := f.seedVideo(t, f.other, 20)
	endpoints := NewVideoEndpoints(f.service, allowAll())
	ctx := newRequestCtx("GET", "/api/v1/videos/download/"+foreign.ID, "", nil, f.owner)
	ctx.SetUserValue(PathParamVideoID, foreign.ID)

	// when
	endpoints.Download(ctx)

	// then
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
	assert.NotContains(t, string(ctx.Response.Body()), "source bytes")
}

func TestVideoEndpoints_ShouldRejectMissingCaller(t *testing.T) {
	// given
	f := newFixture(t)
	endpoints := NewVideoEndpoints(f.service, allowAll())
	ctx := newRequestCtx("GET", "/api/v1/videos", "", nil, nil)

	// when
	endpoints.List(ctx)

	// then
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}
