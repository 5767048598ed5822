package cpu

import (
	"bytes"
	"testing"

	"github.com/ezrec/ls8/io"
)

func FuzzTranslate(f *testing.F) {
	f.Add("LDI R0, 8\nPRN R0\nHLT\n")
	f.Add("FOO: NOP\nFOO: NOP\n")
	f.Add("ds Hello, world!\ndb 0x10\n")
	f.Add(".equ A 1\nLDI R0, $(A + 1)\n")
	f.Add(".macro M x\nLDI R0 x\n.endm\nM 3\n")
	f.Add("LDI R1, END\nJMP R1\nEND: HLT\n")
	f.Add("db ~0\ndb -128\ndb 0b11\n")

	f.Fuzz(func(t *testing.T, source string) {
		// Arbitrary text must either assemble or error, never panic.
		image, err := Translate(source)
		if err != nil {
			return
		}

		if len(image) > MEMORY_SIZE {
			t.Fatalf("image of %d bytes exceeds memory", len(image))
		}
	})
}

func FuzzStep(f *testing.F) {
	f.Add([]byte{byte(OP_LDI), 0, 8, byte(OP_PRN), 0, byte(OP_HLT)})
	f.Add([]byte{byte(OP_IRET)})
	f.Add([]byte{0xff, 0xfe, 0xfd})
	f.Add([]byte{byte(OP_DIV), 0, 1})
	f.Add(bytes.Repeat([]byte{byte(OP_INT), 7}, 16))

	f.Fuzz(func(t *testing.T, image []byte) {
		if len(image) > MEMORY_SIZE {
			image = image[:MEMORY_SIZE]
		}

		keys := &io.KeyQueue{}
		keys.Push('k')

		cpu := NewCpu(keys, &io.StreamDisplay{Output: &bytes.Buffer{}})
		cpu.TimerCycles = 3

		if err := cpu.Load(image); err != nil {
			t.Fatal(err)
		}
		cpu.Register[REG_IM] = 0xff

		// Arbitrary memory images may error, but never panic, and the
		// machine registers stay 8-bit by construction.
		for n := 0; n < 256; n++ {
			err := cpu.Step()
			if err != nil || cpu.Halted {
				break
			}
		}
	})
}
