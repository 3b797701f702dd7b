package core

import "errors"

// Error kinds. Components wrap these with fmt.Errorf("...: %w", ...) so
// callers can classify a failure with errors.Is.
var (
	// ErrInvalidParams reports cleaning parameters rejected before a run begins.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrArtifactNotFound reports an artifact reference that cannot be resolved.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrDataFormat reports a file that is not valid delimited tabular data,
	// or that lacks a required column.
	ErrDataFormat = errors.New("invalid data format")

	// ErrPublish reports an artifact the store refused to register.
	ErrPublish = errors.New("publish rejected")

	// ErrFilesystem reports a local write, read or delete failure.
	ErrFilesystem = errors.New("filesystem error")
)
