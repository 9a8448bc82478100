// CLAUDE:SUMMARY Sentinel errors for the fiche engine: nil snapshot, duplicate path, invalid config.
package fiche

import "errors"

// ErrNilSnapshot is returned when ComputeChangeSet receives a nil
// previous or current snapshot.
var ErrNilSnapshot = errors.New("fiche: nil snapshot")

// ErrDuplicatePath is returned when the differ emits two changes with the
// same path and kind. A type change legitimately pairs one Removed with
// one Added at a single path; anything beyond that violates the differ's
// guarantee, and this is the assembler's defensive invariant check, not a
// merge.
var ErrDuplicatePath = errors.New("fiche: duplicate change path")

// ErrInvalidConfig is returned (wrapped, with detail) when an EngineConfig
// fails validation.
var ErrInvalidConfig = errors.New("fiche: invalid config")
