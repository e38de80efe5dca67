package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlogd/netlogd/internal/plugin"
)

func noopBuiltins() map[string]func() *plugin.Descriptor {
	return map[string]func() *plugin.Descriptor{
		"SRC": func() *plugin.Descriptor {
			return &plugin.Descriptor{Name: "SRC", Version: plugin.CoreABIVersion, InputType: plugin.DataSource, OutputType: plugin.DataPacket}
		},
		"SINK": func() *plugin.Descriptor {
			return &plugin.Descriptor{Name: "SINK", Version: plugin.CoreABIVersion, InputType: plugin.DataPacket, OutputType: plugin.DataSink}
		},
	}
}

func writeConfig(t *testing.T, logfile string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netlogd.yaml")
	content := "global:\n" +
		"  logfile: " + logfile + "\n" +
		"  loglevel: 1\n" +
		"  plugin:\n" +
		"    - SRC\n" +
		"    - SINK\n" +
		"  stack:\n" +
		"    - \"a:SRC,b:SINK\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBootstrapBuildsStackFromConfig(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "netlogd.log")
	path := writeConfig(t, logfile)

	lc, err := Bootstrap(Options{ConfigFile: path}, noopBuiltins())
	require.NoError(t, err)
	require.NotNil(t, lc)
	defer lc.Logger.Close()
	defer lc.Reactor.Close()

	require.Len(t, lc.Stacks, 1)
	assert.Equal(t, 2, lc.Stacks[0].Len())
}

func TestBootstrapFailsFatallyWithNoStack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netlogd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global:\n  loglevel: 1\n"), 0o644))

	_, err := Bootstrap(Options{ConfigFile: path}, noopBuiltins())
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestBootstrapUnknownPluginIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netlogd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global:\n  plugin:\n    - NOPE\n  stack:\n    - \"a:NOPE\"\n"), 0o644))

	_, err := Bootstrap(Options{ConfigFile: path}, noopBuiltins())
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestShutdownLeavesLogfileInPlace(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "netlogd.log")
	path := writeConfig(t, logfile)

	lc, err := Bootstrap(Options{ConfigFile: path}, noopBuiltins())
	require.NoError(t, err)
	defer lc.Reactor.Close()

	lc.shutdown(15)

	_, statErr := os.Stat(logfile)
	assert.NoError(t, statErr, "logfile should have been created even after close")
}
