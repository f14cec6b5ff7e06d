package loader

import (
	"errors"
	"fmt"

	"github.com/vk/modcell/internal/version"
)

// ErrContextReleased is returned by any operation against a released context.
var ErrContextReleased = errors.New("loader: context has been released")

// ConflictError reports a load into a context that already holds the same
// simple name at a different version. The original load is preserved.
type ConflictError struct {
	Name      string
	Context   string
	Existing  version.Version
	Requested version.Version
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("loader: context %q already holds %s@%s, refusing to load %s@%s",
		e.Context, e.Name, e.Existing.String(), e.Name, e.Requested.String())
}

// UnresolvedError reports a resolution that exhausted every step of the
// delegation chain.
type UnresolvedError struct {
	Name    string
	Context string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("loader: module %q could not be resolved from context %q", e.Name, e.Context)
}
