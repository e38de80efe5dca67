package lifecycle

import (
	"fmt"
	"os/user"
	"strconv"
	"syscall"
)

// DropPrivileges resolves username and drops to its uid/gid in the exact
// order the original daemon uses: setgid, setegid, initgroups, setuid,
// seteuid (spec.md §4.6, grounded on _examples/original_source/src/
// ulogd.c's privilege-drop block). No third-party library in the
// retrieval pack wraps these raw setuid-family syscalls; os/user plus the
// standard library's syscall package is the idiomatic Go boundary for
// them.
func DropPrivileges(username string) error {
	u, err := user.Lookup(username)
	if err != nil {
		return fmt.Errorf("lifecycle: looking up user %q: %w", username, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("lifecycle: parsing uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("lifecycle: parsing gid %q: %w", u.Gid, err)
	}

	if err := syscall.Setgid(gid); err != nil {
		return fmt.Errorf("lifecycle: setgid(%d): %w", gid, err)
	}
	if err := syscall.Setegid(gid); err != nil {
		return fmt.Errorf("lifecycle: setegid(%d): %w", gid, err)
	}
	if err := syscall.Initgroups(username, gid); err != nil {
		return fmt.Errorf("lifecycle: initgroups(%q, %d): %w", username, gid, err)
	}
	if err := syscall.Setuid(uid); err != nil {
		return fmt.Errorf("lifecycle: setuid(%d): %w", uid, err)
	}
	if err := syscall.Seteuid(uid); err != nil {
		return fmt.Errorf("lifecycle: seteuid(%d): %w", uid, err)
	}
	return nil
}
