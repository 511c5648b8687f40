//go:build unix && !linux

package proc

func newExitWaiter(int) exitWaiter {
	return newBackoffWaiter()
}
