// Package builtin wires the statically-linked plugin descriptors into the
// name table the Loader resolves "plugin=" directives against. Design
// Notes Open Question 1 picks option (a): plugins are compiled in rather
// than dlopen'd, so this table stands in for the original's module search
// path.
package builtin

import (
	"github.com/netlogd/netlogd/internal/builtin/filter/pwsniff"
	"github.com/netlogd/netlogd/internal/builtin/sink/filesink"
	"github.com/netlogd/netlogd/internal/builtin/sink/sqlsink"
	"github.com/netlogd/netlogd/internal/builtin/source/tcpsource"
	"github.com/netlogd/netlogd/internal/plugin"
)

// Table returns the name-to-constructor map every Loader in this binary
// resolves "plugin=NAME" directives against.
func Table() map[string]func() *plugin.Descriptor {
	return map[string]func() *plugin.Descriptor{
		"TCP":     tcpsource.Descriptor,
		"PWSNIFF": pwsniff.Descriptor,
		"SQL":     sqlsink.Descriptor,
		"FILE":    filesink.Descriptor,
	}
}
