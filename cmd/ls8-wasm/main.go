//go:build js && wasm

// Browser-hosted LS-8 emulator. The JavaScript glue owns the scheduler
// (a wall-clock loop calling advance) and key-event capture; this module
// exposes assemble, reset, advance, key, state and onOutput on
// globalThis.ls8.
package main

import (
	"strings"
	"syscall/js"
	"time"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/io"
)

var emu *emulator.Emulator
var keys io.KeyQueue
var onOutput js.Value

// jsWriter forwards display bytes to the registered JS callback.
type jsWriter struct{}

func (jsWriter) Write(p []byte) (n int, err error) {
	if !onOutput.IsUndefined() && !onOutput.IsNull() {
		onOutput.Invoke(string(p))
	}
	n = len(p)

	return
}

func assemble(this js.Value, args []js.Value) any {
	if len(args) != 1 {
		return "assemble: want source text"
	}

	asm := &cpu.Assembler{}
	for attr, val := range emu.Defines() {
		asm.Predefine(attr, val)
	}

	prog, err := asm.Parse(strings.NewReader(args[0].String()))
	if err != nil {
		return err.Error()
	}

	emu.Program = prog

	err = emu.Reset()
	if err != nil {
		return err.Error()
	}

	return js.Null()
}

func reset(this js.Value, args []js.Value) any {
	keys.Rewind()

	err := emu.Reset()
	if err != nil {
		return err.Error()
	}

	return js.Null()
}

func advance(this js.Value, args []js.Value) any {
	ms := float64(0)
	if len(args) > 0 {
		ms = args[0].Float()
	}

	done, err := emu.Advance(time.Duration(ms * float64(time.Millisecond)))

	result := map[string]any{
		"halted": done,
		"error":  js.Null(),
	}
	if err != nil {
		result["error"] = err.Error()
	}

	return result
}

func key(this js.Value, args []js.Value) any {
	if len(args) != 1 {
		return js.Null()
	}

	// A full queue drops the key, as a saturated keyboard would.
	_ = keys.Push(byte(args[0].Int()))

	return js.Null()
}

func state(this js.Value, args []js.Value) any {
	registers := make([]any, len(emu.Cpu.Register))
	for n, reg := range emu.Cpu.Register {
		registers[n] = int(reg)
	}

	return map[string]any{
		"pc":        int(emu.Cpu.PC),
		"registers": registers,
		"cycles":    emu.Cpu.Cycles,
		"halted":    emu.Cpu.Halted,
	}
}

func setOutput(this js.Value, args []js.Value) any {
	if len(args) == 1 {
		onOutput = args[0]
	}

	return js.Null()
}

func main() {
	onOutput = js.Undefined()

	emu = emulator.NewEmulator()
	emu.Keys = &keys
	emu.Display.Output = jsWriter{}

	js.Global().Set("ls8", map[string]any{
		"assemble": js.FuncOf(assemble),
		"reset":    js.FuncOf(reset),
		"advance":  js.FuncOf(advance),
		"key":      js.FuncOf(key),
		"state":    js.FuncOf(state),
		"onOutput": js.FuncOf(setOutput),
	})

	select {}
}
