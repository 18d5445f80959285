package domain

import "errors"

// Error taxonomy for the upload/ask pipeline. Adapters wrap these sentinels
// with fmt.Errorf("...: %w", ...) so callers can classify with errors.Is.
var (
	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnsupportedFormat rejects uploads that are not PNG or JPEG.
	ErrUnsupportedFormat = errors.New("unsupported diagram format, only PNG and JPEG are accepted")

	// ErrDiagramTooLarge rejects uploads over the size or resolution limits.
	ErrDiagramTooLarge = errors.New("diagram exceeds the size or resolution limit")

	// ErrNoDiagram is returned when a question is asked before any
	// successful upload in the session.
	ErrNoDiagram = errors.New("no diagram uploaded for this session")

	// ErrUpload wraps stage-write failures. Recoverable: the user may retry
	// the upload.
	ErrUpload = errors.New("diagram upload failed")

	// ErrCompletion wraps remote model/service failures. Recoverable: the
	// question is not recorded and may be re-asked.
	ErrCompletion = errors.New("completion failed")
)
