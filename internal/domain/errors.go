package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is implemented by errors that carry their own HTTP status.
// The handler layer checks for it before falling back to sentinel matching.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}

	// RateLimitedError indicates the caller exceeded its request budget.
	// RetryAfter is in seconds.
	RateLimitedError struct {
		Message    string
		RetryAfter int
	}

	// UpstreamError indicates a model provider call failed.
	UpstreamError struct {
		Provider string
		Message  string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }
func (e *RateLimitedError) Error() string  { return e.Message }
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }
func (e *RateLimitedError) StatusCode() int  { return http.StatusTooManyRequests }
func (e *UpstreamError) StatusCode() int     { return http.StatusBadGateway }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate limited")
	ErrUpstream     = errors.New("upstream provider error")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, folder, workspace)
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Is allows errors.Is() to match against ErrRateLimited
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Is allows errors.Is() to match against ErrUpstream
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
