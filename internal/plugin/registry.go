package plugin

import (
	"fmt"
	"sync"
)

// CoreABIVersion is compared against every Descriptor.Version at
// registration time (spec.md §4.1, §6).
const CoreABIVersion = "2.0"

// VersionMismatchError is returned by Register when a descriptor's ABI
// version disagrees with CoreABIVersion. The caller logs it at notice and
// continues; it is never fatal (spec.md §9's first Open Question).
type VersionMismatchError struct {
	Name, Got, Want string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("plugin %q: incompatible version %q (core wants %q)", e.Name, e.Got, e.Want)
}

// DuplicateNameError is returned by Register when a descriptor with the
// same name is already present. Unlike VersionMismatchError this is
// fatal: the caller is expected to abort startup (spec.md §9).
type DuplicateNameError struct{ Name string }

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("plugin %q: already registered", e.Name)
}

// Registry is the process-wide set of loaded plugin descriptors (spec
// component C4), grounded on a mutex-protected
// map[Type]Handler registry idiom (internal/ingestor/factory.go). It is
// written only during startup (Loader.Load, called from Bootstrap) and
// read during stack-build and shutdown/signal fan-out, so the
// single-threaded model of spec.md §5 would make the lock unnecessary in
// principle; the mutex keeps Register/Find/Names safe if they are ever
// called from more than one goroutine.
type Registry struct {
	mu          sync.Mutex
	descriptors map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]*Descriptor)}
}

// Register adds d to the registry. A version mismatch logs-and-skips (the
// caller receives a *VersionMismatchError to log, not to treat as fatal).
// A duplicate name is fatal: the caller receives a *DuplicateNameError and
// is expected to abort startup (spec.md §4.1, §9, invariant 1).
func (r *Registry) Register(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.Version != CoreABIVersion {
		return &VersionMismatchError{Name: d.Name, Got: d.Version, Want: CoreABIVersion}
	}
	if _, exists := r.descriptors[d.Name]; exists {
		return &DuplicateNameError{Name: d.Name}
	}
	r.descriptors[d.Name] = d
	return nil
}

// Find returns the descriptor named name, or nil if none is registered
// (invariant 2: a version-gated-out descriptor is never visible here).
func (r *Registry) Find(name string) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.descriptors[name]
}

// Names returns every registered plugin name, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.descriptors))
	for n := range r.descriptors {
		out = append(out, n)
	}
	return out
}

// Loader resolves a plugin reference (a path in the original ABI, a
// builtin name here) to a Descriptor and registers it. The core's
// Design Notes option (a) — an explicit build-time plugin table rather
// than a dynamic-load entry point — is what this repository implements:
// Load looks the name up in a static table (see builtin.go) instead of
// dlopen-ing a shared object.
type Loader struct {
	registry *Registry
	builtins map[string]func() *Descriptor
}

// NewLoader wires a Loader against the given registry and a static table
// of builtin plugin constructors.
func NewLoader(r *Registry, builtins map[string]func() *Descriptor) *Loader {
	return &Loader{registry: r, builtins: builtins}
}

// Load resolves ref (a builtin plugin name, e.g. "TCP", "PWSNIFF", "SQL")
// and registers its descriptor, mirroring the config parser's `plugin=`
// directive invoking Registry-load once per occurrence (spec.md §4.1,
// §4.6).
func (l *Loader) Load(ref string) error {
	ctor, ok := l.builtins[ref]
	if !ok {
		return fmt.Errorf("plugin: no builtin plugin named %q", ref)
	}
	return l.registry.Register(ctor())
}
