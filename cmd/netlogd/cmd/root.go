// Package cmd implements the netlogd CLI: a single command that boots the
// plugin stack described by its configuration file and runs until a
// terminate signal arrives (spec.md §6). It uses the same cobra
// root-command wiring style as a multi-subcommand HTTP service, trimmed
// down to the single daemon entry point this spec calls for.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netlogd/netlogd/internal/builtin"
	"github.com/netlogd/netlogd/internal/config"
	"github.com/netlogd/netlogd/internal/lifecycle"
	"github.com/netlogd/netlogd/internal/version"
)

var opts lifecycle.Options

// rootCmd represents the netlogd daemon itself; there are no subcommands
// besides the built-in help and the version command registered in
// version.go.
var rootCmd = &cobra.Command{
	Use:     "netlogd",
	Short:   "Unified network-event logging daemon",
	Version: version.Short(),
	Long: `netlogd reads network and application events through a chain of
plugin instances - one SOURCE, any number of typed intermediates, one
SINK - described by a configuration file, and dispatches each event
through that chain until a stage halts it or it reaches the sink.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVarP(&opts.Daemon, "daemon", "d", false, "fork and detach into the background")
	rootCmd.Flags().StringVarP(&opts.ConfigFile, "configfile", "c", config.DefaultConfigFile, "path to the configuration file")
	rootCmd.Flags().StringVarP(&opts.DropToUser, "uid", "u", "", "drop privileges to this account after binding")
	rootCmd.Flags().BoolP("version", "V", false, "print version and exit")
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the root command and returns the process exit code spec.md
// §6 assigns: 0 success, 1 startup error, 2 cannot open logfile.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *lifecycle.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			return exitErr.Code
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func run(_ *cobra.Command, _ []string) error {
	lc, err := lifecycle.Bootstrap(opts, builtin.Table())
	if err != nil {
		return err
	}
	if lc == nil {
		// Daemonizing parent: the child has already re-executed and taken
		// over the reactor loop.
		return nil
	}
	return lc.Run()
}
