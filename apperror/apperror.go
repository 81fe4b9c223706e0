package apperror

import (
	"errors"
)

// Sentinel errors for the submission gate and its callers. Controllers match
// these with errors.Is and translate them into structured rejections.
var (
	ErrValidation          = errors.New("validation error")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrTooSoon             = errors.New("too soon")
	ErrDailyCapReached     = errors.New("daily cap reached")
	ErrStaleCapture        = errors.New("stale capture")
	ErrUpstream            = errors.New("upstream unavailable")
	ErrNotFound            = errors.New("not found")
)

// AppError pairs a sentinel with a machine-readable kind and a message safe
// to show to the end user. Infrastructure detail never goes in Message.
type AppError struct {
	Err     error  // sentinel, for errors.Is
	Kind    string // stable identifier returned in the API body
	Message string // user-facing explanation of the violated rule
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Validation(message string) *AppError {
	return &AppError{Err: ErrValidation, Kind: "VALIDATION_ERROR", Message: message}
}

func DuplicateSubmission() *AppError {
	return &AppError{
		Err:     ErrDuplicateSubmission,
		Kind:    "DUPLICATE_SUBMISSION",
		Message: "this meal photo has already been logged",
	}
}

func TooSoon() *AppError {
	return &AppError{
		Err:     ErrTooSoon,
		Kind:    "TOO_SOON",
		Message: "minimum 2 hours between entries, please try again later",
	}
}

func DailyCapReached() *AppError {
	return &AppError{
		Err:     ErrDailyCapReached,
		Kind:    "DAILY_CAP_REACHED",
		Message: "up to 3 meals per day can be recorded",
	}
}

func StaleCapture() *AppError {
	return &AppError{
		Err:     ErrStaleCapture,
		Kind:    "STALE_CAPTURE",
		Message: "this photo was taken more than 24 hours ago",
	}
}

// Upstream wraps a provider failure. The cause is kept for server-side logs
// only; Message stays generic so provider identity never leaks to callers.
func Upstream(cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrUpstream, cause),
		Kind:    "SERVICE_UNAVAILABLE",
		Message: "service temporarily unavailable, please try again",
	}
}

// Kind extracts the machine-readable kind, or "INTERNAL" for plain errors.
func Kind(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return "INTERNAL"
}
