package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoProvider indicates that no LLM gateway provider is configured.
	// This is the only condition that aborts a research run before any
	// work begins; everything else degrades.
	ErrNoProvider = errors.New("no LLM provider configured")

	// ErrSearchFailed indicates that a search provider call failed
	ErrSearchFailed = errors.New("search provider failure")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)
