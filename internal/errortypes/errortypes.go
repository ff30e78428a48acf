// Package errortypes provides error types and handling for the
// counterfactual latent-space service.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

// Error types
const (
	// ErrorTypeOutOfRange marks an artwork identifier outside the valid bounds
	// of the loaded latent space.
	ErrorTypeOutOfRange ErrorType = "out_of_range"

	// ErrorTypeInvalidArgument marks an unrecognized facet, mode, or other
	// malformed request input.
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"

	// ErrorTypeBuildIntegrity marks a fatal inconsistency in build artifacts,
	// e.g. parallel arrays of differing lengths. The service must not serve
	// from a space that fails this check.
	ErrorTypeBuildIntegrity ErrorType = "build_integrity"

	// ErrorTypeExternal marks a failed call to an external collaborator
	// (embedding function or image-synthesis service).
	ErrorTypeExternal ErrorType = "external"

	// ErrorTypeQuota is the recognized subtype of external failure raised when
	// the image-synthesis service reports insufficient quota or credit.
	ErrorTypeQuota ErrorType = "quota_exceeded"

	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// AppError represents an application error with context
type AppError struct {
	Err       error
	Type      ErrorType
	Message   string
	StackInfo string
	Fields    map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

// Unwrap unwraps the error to support errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField adds a field to the error for additional context
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// captureStack captures the stack trace at the call site
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		// Skip testing and standard library frames
		if !strings.Contains(frame.File, "testing/") && !strings.Contains(frame.File, "/go/src/") {
			fmt.Fprintf(&builder, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return builder.String()
}

// newAppError creates a new AppError with the given type, underlying error, and message
func newAppError(errType ErrorType, err error, message string) *AppError {
	if err == nil {
		err = errors.New("unknown error")
	}

	return &AppError{
		Err:       err,
		Type:      errType,
		Message:   message,
		StackInfo: captureStack(),
		Fields:    make(map[string]interface{}),
	}
}

// OutOfRangeError creates a new out-of-range error
func OutOfRangeError(err error, message string) *AppError {
	return newAppError(ErrorTypeOutOfRange, err, message)
}

// InvalidArgumentError creates a new invalid-argument error
func InvalidArgumentError(err error, message string) *AppError {
	return newAppError(ErrorTypeInvalidArgument, err, message)
}

// BuildIntegrityError creates a new build-integrity error
func BuildIntegrityError(err error, message string) *AppError {
	return newAppError(ErrorTypeBuildIntegrity, err, message)
}

// ExternalError creates a new external-service error
func ExternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeExternal, err, message)
}

// QuotaError creates a new quota-exceeded error
func QuotaError(err error, message string) *AppError {
	return newAppError(ErrorTypeQuota, err, message)
}

// ConfigError creates a new configuration error
func ConfigError(err error, message string) *AppError {
	return newAppError(ErrorTypeConfig, err, message)
}

// InternalError creates a new internal error
func InternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeInternal, err, message)
}

// LogError logs an AppError using the provided slog.Logger or the default slog logger.
// It logs the error message, type, stack trace, and any associated fields.
func LogError(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		args := []any{
			"type", string(appErr.Type),
			"original_error", appErr.Err.Error(),
		}
		if appErr.StackInfo != "" {
			args = append(args, "stack", appErr.StackInfo)
		}
		for k, v := range appErr.Fields {
			args = append(args, k, v)
		}
		logger.Error(appErr.Message, args...)
	} else {
		logger.Error(err.Error(), "error", err)
	}
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsOutOfRange checks if an error is an out-of-range error
func IsOutOfRange(err error) bool { return isType(err, ErrorTypeOutOfRange) }

// IsInvalidArgument checks if an error is an invalid-argument error
func IsInvalidArgument(err error) bool { return isType(err, ErrorTypeInvalidArgument) }

// IsBuildIntegrity checks if an error is a build-integrity error
func IsBuildIntegrity(err error) bool { return isType(err, ErrorTypeBuildIntegrity) }

// IsExternal checks if an error is an external-service error.
// Quota errors are external failures too, but carry their own type so the
// generation path can distinguish the fallback case; IsExternal reports true
// for both.
func IsExternal(err error) bool {
	return isType(err, ErrorTypeExternal) || isType(err, ErrorTypeQuota)
}

// IsQuota checks if an error is a quota-exceeded error
func IsQuota(err error) bool { return isType(err, ErrorTypeQuota) }

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool { return isType(err, ErrorTypeConfig) }
