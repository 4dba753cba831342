package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors that can be used across packages
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrHardFailure  = errors.New("all package versions failed to migrate")
)

// AuthError is returned when a credential is rejected (HTTP 401/403 or a tool
// reporting "unauthorized"). It is never retried.
type AuthError struct {
	Op      string
	Wrapped error
}

func (e *AuthError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: authentication failed: %v", e.Op, e.Wrapped)
	}
	return fmt.Sprintf("%s: authentication failed", e.Op)
}

func (e *AuthError) Unwrap() error { return e.Wrapped }

// Is lets errors.Is(err, ErrUnauthorized) match any AuthError.
func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

// NewAuthError creates a new AuthError
func NewAuthError(op string, wrapped error) error {
	return &AuthError{Op: op, Wrapped: wrapped}
}

// NotFoundError is returned when the artifact, manifest entry or version is
// absent at the source. It is never retried.
type NotFoundError struct {
	Op       string
	Resource string
	Wrapped  error
}

func (e *NotFoundError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s not found: %v", e.Op, e.Resource, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s not found", e.Op, e.Resource)
}

func (e *NotFoundError) Unwrap() error { return e.Wrapped }

// Is lets errors.Is(err, ErrNotFound) match any NotFoundError.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(op, resource string, wrapped error) error {
	return &NotFoundError{Op: op, Resource: resource, Wrapped: wrapped}
}

// TransientError marks network-level and server-side failures that may
// succeed on a later attempt.
type TransientError struct {
	Op      string
	Wrapped error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Wrapped)
}

func (e *TransientError) Unwrap() error { return e.Wrapped }

// NewTransientError creates a new TransientError
func NewTransientError(op string, wrapped error) error {
	return &TransientError{Op: op, Wrapped: wrapped}
}

// ToolError represents a non-zero exit of an external tool that could not be
// classified as an authentication or not-found failure.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, msg)
}

// ValidationError represents an error that occurs during validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// FileError represents an error that occurs during file operations
type FileError struct {
	Path    string
	Op      string
	Wrapped error
}

func (e *FileError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s operation failed on %s: %v", e.Op, e.Path, e.Wrapped)
	}
	return fmt.Sprintf("%s operation failed on %s", e.Op, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Wrapped
}

// NewFileError creates a new FileError
func NewFileError(path, op string, wrapped error) error {
	return &FileError{
		Path:    path,
		Op:      op,
		Wrapped: wrapped,
	}
}

// PackageError represents an error that occurs during package operations
type PackageError struct {
	Op      string
	Package string
	Version string
	Wrapped error
}

func (e *PackageError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("package %s operation failed for %s@%s: %v", e.Op, e.Package, e.Version, e.Wrapped)
	}
	return fmt.Sprintf("package %s operation failed for %s: %v", e.Op, e.Package, e.Wrapped)
}

func (e *PackageError) Unwrap() error {
	return e.Wrapped
}

// NewPackageError creates a new PackageError
func NewPackageError(op, pkg, version string, wrapped error) error {
	return &PackageError{
		Op:      op,
		Package: pkg,
		Version: version,
		Wrapped: wrapped,
	}
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a missing-artifact failure.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	return IsAuth(err) || IsNotFound(err)
}

// FromStatus converts a non-2xx HTTP status into the matching error variant.
// It returns nil for 2xx codes.
func FromStatus(op string, code int, body string) error {
	if code >= 200 && code <= 299 {
		return nil
	}
	inner := fmt.Errorf("status code: %d, response: %s", code, truncate(body, 200))
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return NewAuthError(op, inner)
	case code == http.StatusNotFound:
		return NewNotFoundError(op, "resource", inner)
	case code == http.StatusTooManyRequests || code >= 500:
		return NewTransientError(op, inner)
	default:
		return fmt.Errorf("%s: %w", op, inner)
	}
}

// ClassifyToolFailure turns the output of a failed tool invocation into an
// error variant. Matching is case-insensitive on the combined output.
func ClassifyToolFailure(tool string, exitCode int, output string) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "unauthorized"):
		return NewAuthError(tool, &ToolError{Tool: tool, ExitCode: exitCode, Stderr: output})
	case strings.Contains(lower, "not found"):
		return NewNotFoundError(tool, "artifact", &ToolError{Tool: tool, ExitCode: exitCode, Stderr: output})
	default:
		return &ToolError{Tool: tool, ExitCode: exitCode, Stderr: output}
	}
}

// Is reports whether target matches err.
// It enables errors.Is() to work with our custom error types.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// It enables errors.As() to work with our custom error types.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
