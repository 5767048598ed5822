package emulator

import (
	"fmt"
	"iter"
	"maps"
	"time"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/internal"
	"github.com/ezrec/ls8/io"
)

const (
	DEFAULT_STEP_HZ = 1000                   // Instructions per second when free-running.
	MAX_ADVANCE     = 250 * time.Millisecond // Cap on a single wall-clock delta.
)

var _emulator_defines = map[string]string{
	"STEP_HZ": fmt.Sprintf("%v", DEFAULT_STEP_HZ),
}

// Emulator state. CPU + host I/O + program listing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program listing.

	Keys    io.KeyReader     // Keyboard source; a KeyQueue unless the host replaces it.
	Display io.StreamDisplay // Display sink; the host sets Output.

	StepHz int // Step rate hosts drive the CPU at; also times the 1 Hz timer interrupt.

	pending time.Duration
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Program: &cpu.Program{},
		Keys:    &io.KeyQueue{},
		StepHz:  DEFAULT_STEP_HZ,
	}

	emu.Cpu = cpu.NewCpu(emu.Keys, &emu.Display)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines), emu.Cpu.Defines())
}

// Reset reloads the program image and synchronizes the timer period to
// the step rate, so the timer interrupt fires once per second of
// emulated time.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.SetDevices(emu.Keys, &emu.Display)
	emu.Cpu.TimerCycles = emu.StepHz
	emu.pending = 0

	err = emu.Cpu.Load(emu.Program.Binary())

	return
}

// Tick performs a single step of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	lineno := emu.Program.LineNo(emu.Cpu.PC)
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Step()
	done = emu.Cpu.Halted

	return
}

// Run steps the CPU until the program halts.
func (emu *Emulator) Run() (err error) {
	for {
		done, terr := emu.Tick()
		if terr != nil {
			err = terr
			return
		}
		if done {
			return
		}
	}
}

// Advance steps the CPU for a wall-clock delta at the configured step
// rate. Deltas are capped so a stalled host cannot trigger runaway
// catch-up work.
func (emu *Emulator) Advance(elapsed time.Duration) (done bool, err error) {
	if elapsed > MAX_ADVANCE {
		elapsed = MAX_ADVANCE
	}
	if elapsed < 0 {
		elapsed = 0
	}

	emu.pending += elapsed

	period := time.Second / time.Duration(emu.StepHz)
	for emu.pending >= period {
		emu.pending -= period

		done, err = emu.Tick()
		if done || err != nil {
			emu.pending = 0
			return
		}
	}

	return
}
