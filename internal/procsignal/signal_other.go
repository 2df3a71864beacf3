//go:build !unix && !windows

package procsignal

func Interrupt(pid int) error { return Send(pid, 2) }

func Terminate(pid int) error { return Send(pid, 15) }

func Send(pid, sig int) error {
	if err := checkPID(pid); err != nil {
		return err
	}
	return ErrUnsupported
}
