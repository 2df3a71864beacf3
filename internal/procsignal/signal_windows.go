//go:build windows

package procsignal

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const (
	sigInt  = 2
	sigTerm = 15
)

// Interrupt raises a console break in the process group of pid.
func Interrupt(pid int) error {
	if err := checkPID(pid); err != nil {
		return err
	}
	if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(pid)); err != nil {
		return fmt.Errorf("console break %d: %w", pid, err)
	}
	return nil
}

// Terminate ends pid with exit code 1.
func Terminate(pid int) error {
	if err := checkPID(pid); err != nil {
		return err
	}
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h) //nolint:errcheck
	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("terminate %d: %w", pid, err)
	}
	return nil
}

// Send maps SIGINT and SIGTERM onto their console equivalents; other
// signals have none.
func Send(pid, sig int) error {
	switch sig {
	case sigInt:
		return Interrupt(pid)
	case sigTerm:
		return Terminate(pid)
	default:
		return fmt.Errorf("%w: signal %d", ErrUnsupported, sig)
	}
}
