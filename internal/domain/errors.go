package domain

import "errors"

// Error kinds shared by adapters and use cases. Adapters wrap them with %w so
// callers can classify failures with errors.Is.
var (
	ErrNetwork          = errors.New("network error")
	ErrParse            = errors.New("parse error")
	ErrCollaborator     = errors.New("collaborator error")
	ErrSchema           = errors.New("schema mismatch")
	ErrPersistence      = errors.New("persistence error")
	ErrFilesystem       = errors.New("filesystem error")
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate source reference")
	ErrAudioUnavailable = errors.New("audio temporarily unavailable")
)
