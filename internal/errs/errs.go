// Package errs defines the error taxonomy shared by every core package.
//
// Each kind wraps errors.New so callers can test with errors.Is; components
// attach context with fmt.Errorf("...: %w", err) rather than constructing new
// sentinel values per call site.
package errs

import "errors"

var (
	// ErrInvalidInput marks a caller-supplied value that violates a
	// component's contract (malformed signature payload, empty directory
	// path, unknown settings field, ...).
	ErrInvalidInput = errors.New("resonance: invalid input")

	// ErrProviderFailure marks a single provider's search call failing.
	// Provider fusion isolates this per-provider and never lets it
	// propagate as a fatal error — a failing provider just contributes no
	// candidates.
	ErrProviderFailure = errors.New("resonance: provider failure")

	// ErrAntiPlaceholder marks the identifier's guard against querying a
	// metadata provider with an empty artist/album hint when tags exist
	// but carry no usable hint at all.
	ErrAntiPlaceholder = errors.New("resonance: insufficient metadata hints for provider query")

	// ErrPlanningConflict marks two planned destinations colliding under
	// the active conflict policy (FAIL is the only implemented policy).
	ErrPlanningConflict = errors.New("resonance: planning conflict")

	// ErrApplyPartial marks an apply operation that failed partway through
	// and was rolled back.
	ErrApplyPartial = errors.New("resonance: partial apply, rolled back")

	// ErrFilesystemDenied marks a filesystem operation refused by the OS
	// (permissions, read-only mount, cross-device rename requiring a
	// copy-fallback that itself failed).
	ErrFilesystemDenied = errors.New("resonance: filesystem operation denied")

	// ErrUnsupportedSettings marks a settings value that parses but is not
	// implemented (plan_conflict_policy other than FAIL, an unknown
	// tag_writer_backend).
	ErrUnsupportedSettings = errors.New("resonance: unsupported settings value")

	// ErrDirectoryJailed marks an operation refused because the directory
	// is JAILED and has not been explicitly unjailed.
	ErrDirectoryJailed = errors.New("resonance: directory is jailed")
)
