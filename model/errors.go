package model

import "errors"

// Error taxonomy shared across the store, player and ingest layers.
var (
	// ErrNotFound is returned when an update or lookup references a song id
	// that is not in the library. It never creates the missing record.
	ErrNotFound = errors.New("song not found")

	// ErrInvalidArgument is returned for malformed payloads, e.g. favoriting
	// a song that has no stable identifier.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotPlayable means an entry resolved to neither a stored blob nor a
	// URL, even after falling back to its favorite snapshot.
	ErrNotPlayable = errors.New("no playable source")

	// ErrIngestRejected marks non-audio or duplicate files. Batch ingest logs
	// the rejection and continues; it is never surfaced as a hard failure.
	ErrIngestRejected = errors.New("ingest rejected")
)
