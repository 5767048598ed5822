package cpu

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrProgramSize     = errors.New(f("program larger than memory"))
	ErrDivideByZero    = errors.New(f("divide by zero"))
	ErrInterruptReturn = errors.New(f("interrupt return outside handler"))
	ErrFlagsInvalid    = errors.New(f("invalid flags value"))

	// Assembler errors
	ErrSymbolDuplicate    = errors.New(f("symbol duplicated"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrOperandMissing     = errors.New(f("operand missing"))
	ErrOperandUnexpected  = errors.New(f("unexpected operand"))
	ErrOperandKind        = errors.New(f("operand kind mismatch"))
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrDataSyntax         = errors.New(f("db takes a single byte value"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
)

// ErrOpcode indicates a fetched byte that decodes to no LS-8 instruction.
type ErrOpcode struct {
	Addr byte
	Code byte
}

func (eo ErrOpcode) Error() string {
	return f("invalid opcode 0b%08b at 0x%02x", eo.Code, eo.Addr)
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrSymbolMissing names a symbol that no label defined.
type ErrSymbolMissing string

func (err ErrSymbolMissing) Error() string {
	return f("symbol %v missing", string(err))
}

func (err ErrSymbolMissing) Is(target error) (ok bool) {
	_, ok = target.(ErrSymbolMissing)
	return
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not an 8-bit number", string(err))
}

func (err ErrParseNumber) Is(target error) (ok bool) {
	_, ok = target.(ErrParseNumber)
	return
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrSyntax locates an assembler diagnostic in the source text.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
