// Package procsignal delivers signals to the debugged process.
package procsignal

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPID  = errors.New("invalid pid")
	ErrUnsupported = errors.New("signal not supported on this platform")
)

// Process delivers signals through the operating system.
type Process struct{}

func (Process) Interrupt(pid int) error { return Interrupt(pid) }

func (Process) Terminate(pid int) error { return Terminate(pid) }

func (Process) Signal(pid, sig int) error { return Send(pid, sig) }

func checkPID(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	return nil
}
