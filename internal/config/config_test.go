package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlogd/netlogd/internal/confschema/viperparser"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	g, err := Load(viperparser.New(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultLogfile, g.Logfile)
	assert.Equal(t, DefaultLogLevel, g.LogLevel)
	assert.Empty(t, g.Plugins)
	assert.Empty(t, g.Stacks)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netlogd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
global:
  logfile: /tmp/netlogd.log
  loglevel: 0
  plugin:
    - TCP
    - PWSNIFF
  stack:
    - "a:TCP,b:PWSNIFF,c:SQL"
`), 0o644))

	g, err := Load(viperparser.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/netlogd.log", g.Logfile)
	assert.Equal(t, 0, g.LogLevel)
	assert.Equal(t, []string{"TCP", "PWSNIFF"}, g.Plugins)
	assert.Equal(t, []string{"a:TCP,b:PWSNIFF,c:SQL"}, g.Stacks)
}

func TestLoadStatusAddrDefaultsToDisabled(t *testing.T) {
	g, err := Load(viperparser.New(), "")
	require.NoError(t, err)
	assert.Empty(t, g.StatusAddr)
}

func TestLoadNoStackConfiguredIsNotItselfAnError(t *testing.T) {
	g, err := Load(viperparser.New(), "")
	require.NoError(t, err)
	assert.Empty(t, g.Stacks, "the caller, not this package, enforces spec.md's fail-fatal-if-no-stack rule")
}
