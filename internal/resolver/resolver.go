package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/licensescan/internal/model"
)

// Resolver walks a project's dependency tree and reports license metadata
// for every package found, keyed by a name unique within the result.
type Resolver interface {
	Resolve(ctx context.Context, opts Options) (map[string]model.PackageLicenseInfo, error)
}

// Options is the input of a single resolution.
type Options struct {
	// Start are the project paths to scan.
	Start []string

	// Exclude are paths or glob patterns to skip.
	Exclude []string

	// Dependencies limits output to packages declared as dependencies.
	// When false, every manifest found under Start is listed.
	Dependencies bool

	// OnlyDirectDependencies stops at first-level dependencies.
	OnlyDirectDependencies bool

	// NoColor disables ANSI colors in diagnostic output.
	NoColor bool
}

// ErrResolve matches every *Error via errors.Is.
var ErrResolve = errors.New("license resolution failed")

// ErrNoStartPath is returned when Options.Start is empty.
var ErrNoStartPath = errors.New("no start path")

// Error reports a failed resolution. The whole scan is aborted; no partial
// result is returned alongside it.
type Error struct {
	// Path is the start path that failed, if the failure is path specific.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", ErrResolve, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrResolve, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrResolve.
func (e *Error) Is(target error) bool {
	return target == ErrResolve
}
