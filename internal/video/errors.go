package video

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindFileMissing
	KindFileTooLarge
	KindInvalidFileType
	KindVideoTooLong
	KindVideoTooShort
	KindNoBoundsProvided
	KindInvalidStart
	KindInvalidEnd
	KindInvalidRange
	KindTooShortAfterTrim
	KindNotFound
	KindForbidden
	KindPlanLimit
	KindTrimFailed
)

var kindNames = map[Kind]string{
	KindInternal:          "internal",
	KindInvalidRequest:    "invalid_request",
	KindFileMissing:       "file_missing",
	KindFileTooLarge:      "file_too_large",
	KindInvalidFileType:   "invalid_file_type",
	KindVideoTooLong:      "video_too_long",
	KindVideoTooShort:     "video_too_short",
	KindNoBoundsProvided:  "no_bounds_provided",
	KindInvalidStart:      "invalid_start",
	KindInvalidEnd:        "invalid_end",
	KindInvalidRange:      "invalid_range",
	KindTooShortAfterTrim: "too_short_after_trim",
	KindNotFound:          "not_found",
	KindForbidden:         "forbidden",
	KindPlanLimit:         "plan_limit",
	KindTrimFailed:        "trim_failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const internalErrorMessage = "Internal server error"

// Error is the single result type for every rejected upload or trim.
// Message is safe to show to the caller; Err is only logged.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message, field string) *Error {
	return &Error{Kind: kind, Message: message, Field: field}
}

func internalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: internalErrorMessage, Err: err}
}

// KindOf reports KindInternal for errors that are not an *Error.
func KindOf(err error) Kind {
	var videoErr *Error
	if errors.As(err, &videoErr) {
		return videoErr.Kind
	}
	return KindInternal
}

func ErrFileTooLarge() *Error {
	return newError(KindFileTooLarge, "File too large", "video")
}

func ErrInvalidFileType() *Error {
	return newError(KindInvalidFileType, "Invalid file type", "video")
}

func ErrVideoTooLong() *Error {
	return newError(KindVideoTooLong, "Video too long", "video")
}

func ErrVideoTooShort() *Error {
	return newError(KindVideoTooShort, "Video too short", "video")
}

func ErrNoBoundsProvided() *Error {
	return newError(KindNoBoundsProvided, "one of start or end is required", "")
}

func ErrInvalidStart() *Error {
	return newError(KindInvalidStart, "start must be greater than 0", "start")
}

func ErrInvalidEnd() *Error {
	return newError(KindInvalidEnd, "end must be less than video duration", "end")
}

func ErrInvalidRange() *Error {
	return newError(KindInvalidRange, "start must be less than end", "start")
}

func ErrTooShortAfterTrim() *Error {
	return newError(KindTooShortAfterTrim, "Trimmed video too short", "")
}

func ErrNotFound() *Error {
	return newError(KindNotFound, "Not Found", "")
}

func ErrForbidden() *Error {
	return newError(KindForbidden, "Forbidden", "")
}

func ErrPlanLimit() *Error {
	return newError(KindPlanLimit, "Plan Limit: video limit reached", "")
}

func ErrFileMissing() *Error {
	return newError(KindFileMissing, "File Not Found", "video")
}
