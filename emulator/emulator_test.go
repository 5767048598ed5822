package emulator

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/ls8/cpu"
)

// assemble compiles source with the emulator's predefines in scope.
func assemble(t *testing.T, emu *Emulator, source string) {
	t.Helper()

	asm := &cpu.Assembler{}
	for attr, val := range emu.Defines() {
		asm.Predefine(attr, val)
	}

	prog, err := asm.Parse(strings.NewReader(source))
	if err != nil {
		t.Fatal(err)
	}

	emu.Program = prog
	if err := emu.Reset(); err != nil {
		t.Fatal(err)
	}
}

func TestEmulatorRun(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	out := &bytes.Buffer{}
	emu.Display.Output = out

	assemble(t, emu, "LDI R0, 8\nPRN R0\nHLT\n")

	assert.NoError(emu.Run())
	assert.Equal("8", out.String())
	assert.True(emu.Cpu.Halted)
}

func TestEmulatorDefines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	defines := map[string]string{}
	for attr, val := range emu.Defines() {
		defines[attr] = val
	}

	assert.Equal("1000", defines["STEP_HZ"])
	assert.Equal("0xf4", defines["KEY_BUFFER"])
	assert.Equal("0xf8", defines["VECTOR_TIMER"])
}

func TestEmulatorAdvance(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(t, emu, "LDI R1, SPIN\nSPIN: JMP R1\n")

	// 1000 Hz: 10 ms of wall clock is 10 steps.
	done, err := emu.Advance(10 * time.Millisecond)
	assert.NoError(err)
	assert.False(done)
	assert.Equal(10, emu.Cpu.Cycles)

	// A stalled host is capped to 250 ms of catch-up.
	done, err = emu.Advance(10 * time.Second)
	assert.NoError(err)
	assert.False(done)
	assert.Equal(260, emu.Cpu.Cycles)
}

func TestEmulatorAdvanceHalts(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(t, emu, "LDI R0, 3\nPRN R0\nHLT\n")

	done, err := emu.Advance(time.Second)
	assert.NoError(err)
	assert.True(done)
	assert.Equal(3, emu.Cpu.Cycles)
}

func TestEmulatorTimerSyncedToStepRate(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.StepHz = 100

	// The handler increments the COUNT byte once per emulated second;
	// IRET restores R0..R6, so the count is kept in memory.
	assemble(t, emu, `LDI R0, HANDLER
LDI R1, VECTOR_TIMER
ST R1, R0
LDI R4, COUNT
LDI R1, SPIN
LDI R5, IM_TIMER
SPIN: JMP R1
HANDLER: LD R0, R4
INC R0
ST R4, R0
IRET
COUNT: db 0
`)

	assert.Equal(100, emu.Cpu.TimerCycles)

	for n := 0; n < 310; n++ {
		_, err := emu.Tick()
		assert.NoError(err)
	}

	assert.Equal(byte(3), emu.Cpu.Memory[emu.Program.Symbol["COUNT"]])
}

func TestEmulatorRuntimeErrorLine(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(t, emu, `LDI R0, 1
LDI R1, 0
DIV R0, R1
HLT
`)

	err := emu.Run()
	assert.ErrorIs(err, cpu.ErrDivideByZero)

	var re *ErrRuntime
	assert.True(errors.As(err, &re))
	assert.Equal(3, re.LineNo)
}
