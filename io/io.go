// Package io provides the host I/O contract consumed by the LS-8 CPU,
// together with implementations for terminal and browser hosts: a
// non-blocking file reader, a bounded single-producer key queue, and a
// stream-backed display.
package io

// KeyReader delivers keyboard bytes to the CPU. Implementations never
// block: ok is false when no byte is pending or the stream has ended,
// and err is reserved for real I/O failures.
type KeyReader interface {
	// ReadKey returns the next pending keyboard byte.
	ReadKey() (b byte, ok bool, err error)
}

// Display receives program output from the CPU.
type Display interface {
	// Write emits raw bytes.
	Write(p []byte) (n int, err error)
	// PrintDecimal emits the decimal representation of value, with no
	// width or padding.
	PrintDecimal(value byte) error
}
