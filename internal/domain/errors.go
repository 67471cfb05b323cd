package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound covers unknown run ids, proofs, trustmarks, and missing
	// downloader output.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput covers malformed URLs and missing request fields.
	// Never retried.
	ErrInvalidInput = errors.New("invalid input")
)

// DownloadError is a downloader failure (nonzero exit, unusable output).
// It aborts a URL verification run; no later stage can proceed without media.
type DownloadError struct {
	Reason string
}

func (e *DownloadError) Error() string {
	return "download failed: " + e.Reason
}

// TooLargeError means downloaded content exceeded the configured ceiling.
type TooLargeError struct {
	SizeBytes int64
	Limit     int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("content too large: %d bytes (limit %d)", e.SizeBytes, e.Limit)
}

// TimeoutError means an external process or network call exceeded its budget.
// The underlying process is killed before this is returned; it is distinct
// from a tool-reported failure.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

// ToolError is a nonzero exit code or unparsable output from an external
// tool. Stage-local: the pipeline falls through to the next stage except for
// the downloader.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

// SignatureError indicates a payload failed to sign or verify. Fatal; it
// would mean key corruption.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return "signature failure: " + e.Err.Error()
}

func (e *SignatureError) Unwrap() error { return e.Err }
