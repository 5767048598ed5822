package io

import (
	"io"
	"os"
)

// FileKeys reads keyboard bytes from a file descriptor the host has
// configured not to block (a terminal in non-canonical mode with
// VMIN=0/VTIME=0). A zero-length read means no key is pending.
type FileKeys struct {
	File *os.File
}

var _ KeyReader = (*FileKeys)(nil)

func (fk *FileKeys) ReadKey() (b byte, ok bool, err error) {
	if fk.File == nil {
		return
	}

	var buf [1]byte
	n, err := fk.File.Read(buf[:])
	if err == io.EOF {
		err = nil
		return
	}
	if err != nil {
		return
	}
	if n == 0 {
		return
	}

	b = buf[0]
	ok = true

	return
}
