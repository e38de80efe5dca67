// Package main is the entry point for the netlogd daemon.
package main

import (
	"os"

	"github.com/netlogd/netlogd/cmd/netlogd/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
