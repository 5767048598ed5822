package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/ls8/io"
)

const (
	MEMORY_SIZE    = 256 // Bytes of addressable memory.
	REGISTER_COUNT = 8   // General-purpose registers R0..R7.

	REG_IM = 5 // Interrupt Mask register.
	REG_IS = 6 // Interrupt Status register.
	REG_SP = 7 // Stack Pointer register.

	LOAD_BASE   = 0x00 // Programs load and begin execution here.
	STACK_INIT  = 0xF3 // Initial stack pointer; the stack grows downward.
	KEY_BUFFER  = 0xF4 // Keyboard byte slot, written before interrupt 1.
	VECTOR_BASE = 0xF8 // Handler address for interrupt n is VECTOR_BASE+n.

	INT_TIMER    = 0 // Timer interrupt number.
	INT_KEYBOARD = 1 // Keyboard interrupt number.

	TIMER_CYCLES = 1024 // Default cycles between timer interrupts.
)

var _cpu_defines = map[string]string{
	"STACK_INIT":      fmt.Sprintf("%#x", STACK_INIT),
	"KEY_BUFFER":      fmt.Sprintf("%#x", KEY_BUFFER),
	"VECTOR_TIMER":    fmt.Sprintf("%#x", VECTOR_BASE+INT_TIMER),
	"VECTOR_KEYBOARD": fmt.Sprintf("%#x", VECTOR_BASE+INT_KEYBOARD),
	"IM_TIMER":        fmt.Sprintf("%#x", 1<<INT_TIMER),
	"IM_KEYBOARD":     fmt.Sprintf("%#x", 1<<INT_KEYBOARD),
}

// Cpu is the LS-8 processor state. All address and register arithmetic
// wraps modulo 256.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   [MEMORY_SIZE]byte
	Register [REGISTER_COUNT]byte

	PC  byte // Program counter.
	IR  byte // Instruction register.
	MAR byte // Memory address register.
	MDR byte // Memory data register.

	Flags Flags

	InterruptsEnabled bool
	Halted            bool

	Cycles      int // Instructions executed since reset.
	TimerCycles int // Cycles between timer interrupts; zero disables the timer.

	lastTimer int // Cycle count at the last timer interrupt.

	keys    io.KeyReader
	display io.Display
}

// NewCpu creates a CPU attached to the host's keyboard reader and display.
// Either may be nil for a detached device.
func NewCpu(keys io.KeyReader, display io.Display) (cpu *Cpu) {
	cpu = &Cpu{
		keys:        keys,
		display:     display,
		TimerCycles: TIMER_CYCLES,
	}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// SetDevices attaches the host keyboard reader and display. Either may
// be nil for a detached device.
func (cpu *Cpu) SetDevices(keys io.KeyReader, display io.Display) {
	cpu.keys = keys
	cpu.display = display
}

// Reset the CPU state.
// - Zeros memory, registers, flags, and counters.
// - Sets the stack pointer to its initial address.
// - Enables interrupts and clears the halt latch.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	clear(cpu.Register[:])
	cpu.Register[REG_SP] = STACK_INIT

	cpu.PC = LOAD_BASE
	cpu.IR = 0
	cpu.MAR = 0
	cpu.MDR = 0
	cpu.Flags = Flags{}

	cpu.InterruptsEnabled = true
	cpu.Halted = false
	cpu.Cycles = 0
	cpu.lastTimer = 0
}

// Load resets the CPU and copies a program image to the load base.
// Images larger than memory are refused.
func (cpu *Cpu) Load(image []byte) (err error) {
	if len(image) > MEMORY_SIZE {
		err = ErrProgramSize
		return
	}

	cpu.Reset()
	copy(cpu.Memory[LOAD_BASE:], image)

	return
}

// String returns the current CPU state as a trace line.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("pc %02X | %02X %02X %02X |",
		cpu.PC, cpu.Memory[cpu.PC], cpu.Memory[cpu.PC+1], cpu.Memory[cpu.PC+2])

	for _, reg := range cpu.Register {
		text += fmt.Sprintf(" %02X", reg)
	}

	text += fmt.Sprintf(" | %v", cpu.Flags)

	return
}

// push stores a byte at the pre-decremented stack pointer.
func (cpu *Cpu) push(value byte) {
	cpu.Register[REG_SP]--
	cpu.Memory[cpu.Register[REG_SP]] = value
}

// pop loads a byte from the stack pointer, then post-increments it.
func (cpu *Cpu) pop() (value byte) {
	value = cpu.Memory[cpu.Register[REG_SP]]
	cpu.Register[REG_SP]++

	return
}

// Raise delivers interrupt n, if bit n of the interrupt mask is set.
// The return address, flags, and R0..R6 are saved on the stack; R7 is
// deliberately not saved.
func (cpu *Cpu) Raise(n byte) {
	n &= 0b111

	if cpu.Register[REG_IM]&(1<<n) == 0 {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: interrupt %d", n)
	}

	cpu.InterruptsEnabled = false
	cpu.Register[REG_IS] = 1 << n

	cpu.push(cpu.PC)
	cpu.push(cpu.Flags.Byte())
	for r := 0; r < REG_SP; r++ {
		cpu.push(cpu.Register[r])
	}

	cpu.PC = cpu.Memory[VECTOR_BASE+n]
}

// iret returns from an interrupt handler, restoring R6..R0, the flags,
// and the program counter in reverse of the save order.
func (cpu *Cpu) iret() (err error) {
	if cpu.InterruptsEnabled {
		err = ErrInterruptReturn
		return
	}

	cpu.Register[REG_IS] = 0

	for r := REG_SP - 1; r >= 0; r-- {
		cpu.Register[r] = cpu.pop()
	}

	cpu.Flags, err = FlagsFromByte(cpu.pop())
	if err != nil {
		return
	}

	cpu.PC = cpu.pop()
	cpu.InterruptsEnabled = true

	return
}

// poll checks the interrupt sources. The timer is sampled by cycle
// count; the keyboard by a non-blocking read from the host.
func (cpu *Cpu) poll() (err error) {
	if !cpu.InterruptsEnabled {
		return
	}

	if cpu.TimerCycles > 0 && cpu.Cycles-cpu.lastTimer >= cpu.TimerCycles {
		cpu.lastTimer = cpu.Cycles
		cpu.Raise(INT_TIMER)
	}

	if !cpu.InterruptsEnabled || cpu.keys == nil {
		return
	}

	key, ok, err := cpu.keys.ReadKey()
	if err != nil {
		return
	}
	if ok {
		cpu.Memory[KEY_BUFFER] = key
		cpu.Raise(INT_KEYBOARD)
	}

	return
}

// Step executes exactly one instruction: interrupt poll, fetch, decode,
// execute, and the default post-increment when the instruction did not
// take its own jump.
func (cpu *Cpu) Step() (err error) {
	if cpu.Halted {
		return
	}

	err = cpu.poll()
	if err != nil {
		return
	}

	cpu.MAR = cpu.PC
	cpu.MDR = cpu.Memory[cpu.MAR]
	cpu.IR = cpu.MDR

	op := Op(cpu.IR)
	if !op.Valid() {
		err = ErrOpcode{Addr: cpu.PC, Code: cpu.IR}
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: %v %v", cpu, op)
	}

	a := cpu.Memory[cpu.PC+1]
	b := cpu.Memory[cpu.PC+2]

	taken, err := cpu.execute(op, a, b)
	if err != nil {
		return
	}

	if !cpu.Halted && !(op.SetsPC() && taken) {
		cpu.PC += byte(op.Operands()) + 1
	}

	cpu.Cycles++

	return
}

// execute dispatches a decoded instruction. taken reports whether a
// pc-setting instruction actually redirected the program counter.
func (cpu *Cpu) execute(op Op, a, b byte) (taken bool, err error) {
	switch op {
	case OP_NOP:
		// pass
	case OP_HLT:
		cpu.Halted = true
	case OP_LDI:
		cpu.Register[a&7] = b
	case OP_LD:
		cpu.Register[a&7] = cpu.Memory[cpu.Register[b&7]]
	case OP_ST:
		cpu.Memory[cpu.Register[a&7]] = cpu.Register[b&7]
	case OP_INC:
		cpu.Register[a&7]++
	case OP_DEC:
		cpu.Register[a&7]--
	case OP_NOT:
		cpu.Register[a&7] = ^cpu.Register[a&7]
	case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD,
		OP_AND, OP_OR, OP_XOR, OP_SHL, OP_SHR, OP_CMP:
		err = cpu.alu(op, a&7, b&7)
	case OP_PUSH:
		cpu.push(cpu.Register[a&7])
	case OP_POP:
		cpu.Register[a&7] = cpu.pop()
	case OP_PRN:
		if cpu.display != nil {
			err = cpu.display.PrintDecimal(cpu.Register[a&7])
		}
	case OP_PRA:
		if cpu.display != nil {
			_, err = cpu.display.Write([]byte{cpu.Register[a&7]})
		}
	case OP_CALL:
		cpu.push(cpu.PC + 2)
		cpu.PC = cpu.Register[a&7]
		taken = true
	case OP_RET:
		cpu.PC = cpu.pop()
		taken = true
	case OP_JMP:
		cpu.PC = cpu.Register[a&7]
		taken = true
	case OP_JEQ, OP_JNE, OP_JGT, OP_JLT, OP_JLE, OP_JGE:
		if cpu.Flags.Holds(op) {
			cpu.PC = cpu.Register[a&7]
			taken = true
		}
	case OP_INT:
		// The return address is the following instruction; the raise
		// itself is gated on the interrupt mask.
		cpu.PC += 2
		cpu.Raise(cpu.Register[a&7])
		taken = true
	case OP_IRET:
		err = cpu.iret()
		taken = true
	default:
		err = ErrOpcode{Addr: cpu.PC, Code: byte(op)}
	}

	return
}

// alu performs the two-register arithmetic and comparison operations.
// Overflow wraps silently; only DIV and MOD can fail.
func (cpu *Cpu) alu(op Op, ra, rb byte) (err error) {
	a := cpu.Register[ra]
	b := cpu.Register[rb]

	switch op {
	case OP_ADD:
		cpu.Register[ra] = a + b
	case OP_SUB:
		cpu.Register[ra] = a - b
	case OP_MUL:
		cpu.Register[ra] = a * b
	case OP_DIV:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		cpu.Register[ra] = a / b
	case OP_MOD:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		cpu.Register[ra] = a % b
	case OP_AND:
		cpu.Register[ra] = a & b
	case OP_OR:
		cpu.Register[ra] = a | b
	case OP_XOR:
		cpu.Register[ra] = a ^ b
	case OP_SHL:
		if b >= 8 {
			cpu.Register[ra] = 0
		} else {
			cpu.Register[ra] = a << b
		}
	case OP_SHR:
		if b >= 8 {
			cpu.Register[ra] = 0
		} else {
			cpu.Register[ra] = a >> b
		}
	case OP_CMP:
		cpu.Flags = Flags{Less: a < b, Greater: a > b, Equal: a == b}
	}

	return
}
