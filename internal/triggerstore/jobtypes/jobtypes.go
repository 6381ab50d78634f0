// Package jobtypes implements the static job-type registry: the same
// explicit-registration idiom as package catalog, but answering "can this
// job type be resolved at all" instead of "how much concurrency does it
// get". Kept separate from catalog because a type can be registered here
// without a concurrency rule (the default is unrestricted), and because
// triggerstore.TypeLoader only needs this one method.
package jobtypes

import "fmt"

// Registry is a process-wide set of job types the dispatcher knows how to
// load, populated once at startup via Register.
type Registry struct {
	known map[string]struct{}
}

// New creates an empty registry. Register every resolvable job type
// before passing the registry to triggerstore.New.
func New() *Registry {
	return &Registry{known: make(map[string]struct{})}
}

// Register records that jobType can be resolved.
func (r *Registry) Register(jobType string) {
	r.known[jobType] = struct{}{}
}

// Resolve implements triggerstore.TypeLoader. An unregistered job type is
// the "type load error" case from the acquisition engine's edge cases: the
// trigger carrying it is isolated to ERROR rather than aborting the batch.
func (r *Registry) Resolve(jobType string) error {
	if _, ok := r.known[jobType]; !ok {
		return fmt.Errorf("unregistered job type %q", jobType)
	}
	return nil
}
