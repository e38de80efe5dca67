// Package config hosts the core-owned `[global]` configuration schema
// (spec.md §6) and the default config file path, built on
// internal/confschema so the core never depends on the concrete file
// format of the parser wired in front of it.
package config

import (
	"github.com/netlogd/netlogd/internal/confschema"
)

// DefaultConfigFile is the path used when -c/--configfile is not given.
const DefaultConfigFile = "/etc/netlogd/netlogd.yaml"

// DefaultLogfile is the core schema's logfile default (spec.md §6).
const DefaultLogfile = "/var/log/netlogd.log"

// DefaultLogLevel is NOTICE, matching spec.md §6's stated default.
const DefaultLogLevel = 2

// Global holds the parsed `[global]` section: logfile path, log level,
// and the plugin/stack multi-valued directives collected by their
// callback entries.
type Global struct {
	Logfile    string
	LogLevel   int
	Plugins    []string
	Stacks     []string
	StatusAddr string
}

// Schema builds the confschema.Schema for `[global]` and binds g's fields
// to each entry's callback, so a single Parse call populates g directly.
func (g *Global) Schema() *confschema.Schema {
	return &confschema.Schema{Entries: []*confschema.Entry{
		{Key: "logfile", Type: confschema.TypeString, StringDefault: DefaultLogfile},
		{Key: "loglevel", Type: confschema.TypeInt, IntDefault: DefaultLogLevel},
		// status_addr is off by default (empty string); a non-empty value
		// starts the observability surface in internal/statusserver. It is
		// ambient tooling, not one of the core's dispatch-path schema keys
		// spec.md §6 enumerates.
		{Key: "status_addr", Type: confschema.TypeString, StringDefault: ""},
		{
			Key: "plugin", Type: confschema.TypeCallback, Options: confschema.OptMulti,
			Callback: func(v string) error { g.Plugins = append(g.Plugins, v); return nil },
		},
		{
			Key: "stack", Type: confschema.TypeCallback, Options: confschema.OptMulti,
			Callback: func(v string) error { g.Stacks = append(g.Stacks, v); return nil },
		},
	}}
}

// Load registers configFile (if non-empty) with parser and parses the
// `[global]` section into a fresh Global, mirroring spec.md §4.6's
// startup sequence ("register config file, parse [global] section").
func Load(parser confschema.Parser, configFile string) (*Global, error) {
	if err := parser.RegisterFile(configFile); err != nil {
		return nil, err
	}
	g := &Global{}
	schema := g.Schema()
	if err := parser.Parse("global", schema); err != nil {
		return nil, err
	}
	g.Logfile = schema.ByKey("logfile").StringValue
	g.LogLevel = schema.ByKey("loglevel").IntValue
	g.StatusAddr = schema.ByKey("status_addr").StringValue
	return g, nil
}
