package main

import (
	"os"

	"golang.org/x/sys/unix"
)

var termRestore unix.Termios

// enterRawTerm puts the controlling terminal into non-canonical,
// no-echo mode with VMIN=0/VTIME=0 so stdin reads never block.
func enterRawTerm() (err error) {
	termios, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), unix.TCGETS)
	if err != nil {
		return
	}

	termRestore = *termios
	termstate := *termios

	termstate.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.INLCR
	termstate.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termstate.Cflag &^= unix.CSIZE | unix.PARENB
	termstate.Cflag |= unix.CS8

	termstate.Cc[unix.VMIN] = 0
	termstate.Cc[unix.VTIME] = 0

	err = unix.IoctlSetTermios(int(os.Stdin.Fd()), unix.TCSETS, &termstate)

	return
}

func exitRawTerm() {
	unix.IoctlSetTermios(int(os.Stdin.Fd()), unix.TCSETS, &termRestore)
}
