package core

import (
	"errors"
	"fmt"
)

// ErrDuplicateDocument is returned when an upload or import matches an existing
// document by checksum or source URL.
var ErrDuplicateDocument = errors.New("duplicate document")

// ParseError marks a byte stream that is not a readable PDF (malformed or
// password-protected). It is fatal for the job; requeueing will not help without
// human intervention.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse pdf: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// EmbedError marks an upstream embedding-model failure. The runner treats it as
// fatal for the current batch; no partial batch is committed.
type EmbedError struct {
	Err error
}

func (e *EmbedError) Error() string { return fmt.Sprintf("embed text: %v", e.Err) }
func (e *EmbedError) Unwrap() error { return e.Err }
