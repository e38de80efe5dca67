package lifecycle

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// daemonizeEnvVar marks a re-executed child as already detached, so it
// does not try to daemonize itself again.
const daemonizeEnvVar = "NETLOGD_DAEMONIZED"

// Daemonize detaches the process from its controlling terminal the way
// Go daemons do it in place of fork(2) — which is unsafe once the
// runtime has started extra OS threads: it re-executes the current
// binary in a new session with standard streams redirected, then exits
// the parent. Call sites that already ran once as the re-executed child
// (NETLOGD_DAEMONIZED set) get false, nil and continue in-process.
func Daemonize() (detached bool, err error) {
	if os.Getenv(daemonizeEnvVar) != "" {
		return false, nil
	}

	self, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("lifecycle: resolving executable path: %w", err)
	}

	cmd := exec.Command(self, os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonizeEnvVar+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("lifecycle: daemonizing: %w", err)
	}
	return true, nil
}

// CloseStandardStreams closes stdin/stdout/stderr once daemonized, unless
// keepOpen (the log target is stdout) says otherwise (spec.md §4.6).
func CloseStandardStreams(keepOpen bool) {
	if keepOpen {
		return
	}
	_ = os.Stdin.Close()
	_ = os.Stdout.Close()
	_ = os.Stderr.Close()
}
