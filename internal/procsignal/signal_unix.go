//go:build unix

package procsignal

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Interrupt sends SIGINT.
func Interrupt(pid int) error {
	return Send(pid, int(unix.SIGINT))
}

// Terminate sends SIGTERM.
func Terminate(pid int) error {
	return Send(pid, int(unix.SIGTERM))
}

// Send delivers signal number sig to pid. Signal 0 only checks that the
// process exists.
func Send(pid, sig int) error {
	if err := checkPID(pid); err != nil {
		return err
	}
	if sig < 0 {
		return fmt.Errorf("%w: signal %d", ErrUnsupported, sig)
	}
	if err := unix.Kill(pid, unix.Signal(sig)); err != nil {
		return fmt.Errorf("kill %d: %w", pid, err)
	}
	return nil
}
