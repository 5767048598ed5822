package io

import (
	"fmt"
	"io"
)

// StreamDisplay writes program output to an io.Writer. A nil Output
// discards everything.
type StreamDisplay struct {
	Output io.Writer
}

var _ Display = (*StreamDisplay)(nil)

func (sd *StreamDisplay) Write(p []byte) (n int, err error) {
	if sd.Output == nil {
		n = len(p)
		return
	}

	n, err = sd.Output.Write(p)

	return
}

// PrintDecimal writes the decimal representation of value.
func (sd *StreamDisplay) PrintDecimal(value byte) (err error) {
	if sd.Output == nil {
		return
	}

	_, err = fmt.Fprintf(sd.Output, "%d", value)

	return
}
