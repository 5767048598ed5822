package cpu

import (
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// fixup records a code byte whose final value is a label address that
// was not yet known when the byte was emitted.
type fixup struct {
	symbol string
	addr   int
	lineno int
	line   string
}

// Assembler translates LS-8 source text into a memory image in two
// passes: a linear pass that accumulates code and fixups, and a patch
// pass that resolves symbol references. Recoverable errors are collected
// so a single run surfaces every diagnostic.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // Listing of emitted statements.

	Label  map[string]byte     // Map of labels to code addresses.
	Equate map[string]string   // Map of equates.
	Macro  map[string](*Macro) // Map of macros.

	predefine map[string]string
	code      []byte
	fixups    []fixup
	errs      []error
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// Translate assembles LS-8 source text into a memory image.
func Translate(text string) (image []byte, err error) {
	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(text))
	if err != nil {
		return
	}

	image = prog.Binary()

	return
}

// Parse assembles an input stream into a Program. On failure the
// returned error joins every diagnostic collected during the run.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return
	}

	asm.Opcode = asm.Opcode[:0]
	asm.code = asm.code[:0]
	asm.fixups = asm.fixups[:0]
	asm.errs = asm.errs[:0]
	if asm.Label == nil {
		asm.Label = make(map[string]byte, 16)
	}
	clear(asm.Label)
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)

	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, _cpu_defines)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	// Lines end at '\n' or '\r'.
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var macro *Macro
	var lineno int

	for _, raw := range strings.Split(text, "\n") {
		lineno++

		if asm.Verbose {
			log.Printf("%v: %v", lineno, raw)
		}

		line := raw
		if n := strings.IndexAny(line, ";#"); n >= 0 {
			line = line[:n]
		}
		line = strings.TrimSpace(line)

		if len(line) == 0 {
			continue
		}

		words := splitWords(line)

		// .macro NAME arg...
		if words[0] == ".macro" {
			switch {
			case macro != nil:
				asm.fail(lineno, line, ErrMacroNesting)
			case len(words) < 2:
				asm.fail(lineno, line, ErrMacroSyntax)
			default:
				macro = &Macro{LineNo: lineno + 1}
				if len(words) > 2 {
					macro.Args = words[2:]
				}
				if _, ok := asm.Macro[words[1]]; ok {
					asm.fail(lineno, line, ErrMacroDuplicate)
				} else {
					asm.Macro[words[1]] = macro
				}
			}
			continue
		}

		if words[0] == ".endm" {
			if macro == nil {
				asm.fail(lineno, line, ErrMacroLonelyEndm)
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		asm.parseLine(line, lineno)
	}

	if macro != nil {
		asm.fail(lineno, "", ErrMacroLonely)
	}

	// Second pass: patch symbol references.
	for _, fix := range asm.fixups {
		addr, ok := asm.Label[fix.symbol]
		if !ok {
			asm.fail(fix.lineno, fix.line, ErrSymbolMissing(fix.symbol))
			continue
		}
		asm.code[fix.addr] = addr
	}

	// The listing captured its bytes before the patch pass; refresh it
	// so the resolved addresses reach the Program image.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]
		op.Bytes = slices.Clone(asm.code[op.Addr : op.Addr+len(op.Bytes)])
	}

	if len(asm.code) > MEMORY_SIZE {
		asm.errs = append(asm.errs, ErrProgramSize)
	}

	if len(asm.errs) != 0 {
		err = errors.Join(asm.errs...)
		return
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
		Symbol:  maps.Clone(asm.Label),
	}

	return
}

// fail records a diagnostic located at a source line.
func (asm *Assembler) fail(lineno int, line string, ferr error) {
	asm.errs = append(asm.errs, &ErrSyntax{LineNo: lineno, Line: line, Err: ferr})
}

// addr is the address the next emitted byte will occupy.
func (asm *Assembler) addr() int {
	return len(asm.code)
}

func (asm *Assembler) emit(values ...byte) {
	asm.code = append(asm.code, values...)
}

// splitToken splits off the first whitespace-or-comma separated token.
func splitToken(text string) (token, rest string) {
	text = strings.TrimLeft(text, " \t,")

	n := strings.IndexAny(text, " \t,")
	if n < 0 {
		token = text
		return
	}

	token = text[:n]
	rest = text[n+1:]

	return
}

// splitWords tokenises on whitespace and commas; runs collapse.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

// parseLine assembles a single comment-stripped source line.
func (asm *Assembler) parseLine(line string, lineno int) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	text := line

	// Leading labels define symbols at the current address.
	for {
		token, rest := splitToken(text)
		if len(token) == 0 || !strings.HasSuffix(token, ":") {
			break
		}

		label := token[:len(token)-1]
		if _, ok := asm.Label[label]; ok {
			asm.fail(lineno, line, ErrSymbolDuplicate)
		} else {
			asm.Label[label] = byte(asm.addr())
		}

		text = rest
	}

	token, rest := splitToken(text)
	if len(token) == 0 {
		return
	}

	// ds emits the remainder of the line verbatim.
	if strings.EqualFold(token, "ds") {
		data := []byte(strings.TrimSpace(rest))
		if len(data) != 0 {
			asm.statement(lineno, []string{token, string(data)}, data)
		}
		return
	}

	text, err := asm.expand(text)
	if err != nil {
		asm.fail(lineno, line, err)
		return
	}

	words := splitWords(text)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		switch {
		case len(words) != 3:
			asm.fail(lineno, line, ErrEquateSyntax)
		default:
			if _, ok := asm.Equate[words[1]]; ok {
				asm.fail(lineno, line, ErrEquateDuplicate)
			} else {
				asm.Equate[words[1]] = words[2]
			}
		}
		return
	}

	// Equate substitution.
	for n, word := range words {
		if equate, ok := asm.Equate[word]; ok {
			words[n] = equate
		}
	}

	// Macro expansion.
	if macro, ok := asm.Macro[words[0]]; ok {
		asm.expandMacro(words[0], macro, words[1:], lineno, line)
		return
	}

	asm.parseWords(words, lineno, line)
}

// expandMacro replays the macro body with its arguments bound as
// temporary equates. '@' in the body is replaced by a prefix unique to
// the invocation site, so label definitions do not collide.
func (asm *Assembler) expandMacro(name string, macro *Macro, args []string, lineno int, line string) {
	if len(args) != len(macro.Args) {
		asm.fail(lineno, line, ErrMacroSyntax)
		return
	}

	old_equate := maps.Clone(asm.Equate)
	for n, arg := range macro.Args {
		asm.Equate[arg] = args[n]
	}
	defer func() { asm.Equate = old_equate }()

	for n, mline := range macro.Lines {
		mlineno := macro.LineNo + n
		mline = strings.ReplaceAll(mline, "@", fmt.Sprintf("%v_%v_", name, lineno))

		before := len(asm.errs)
		asm.parseLine(mline, mlineno)

		for i := before; i < len(asm.errs); i++ {
			asm.errs[i] = &ErrSyntax{
				LineNo: lineno,
				Line:   line,
				Err:    &ErrMacro{Macro: name, Line: mlineno, Err: asm.errs[i]},
			}
		}
	}
}

// statement records a listing entry for emitted data bytes.
func (asm *Assembler) statement(lineno int, words []string, data []byte) {
	addr := asm.addr()
	asm.emit(data...)
	asm.Opcode = append(asm.Opcode, Opcode{
		LineNo: lineno,
		Addr:   addr,
		Words:  words,
		Bytes:  slices.Clone(data),
	})
}

// parseWords assembles a tokenised statement: a data byte or an
// instruction with its operands.
func (asm *Assembler) parseWords(words []string, lineno int, line string) {
	initial_words := slices.Clone(words)

	start := asm.addr()
	defer func() {
		if asm.addr() == start {
			return
		}
		asm.Opcode = append(asm.Opcode, Opcode{
			LineNo: lineno,
			Addr:   start,
			Words:  initial_words,
			Bytes:  slices.Clone(asm.code[start:]),
		})
	}()

	// db VALUE emits a single data byte.
	if strings.EqualFold(words[0], "db") {
		if len(words) != 2 {
			asm.fail(lineno, line, ErrDataSyntax)
			asm.emit(0)
			return
		}

		value, err := asm.valueOf(words[1])
		if err != nil {
			asm.fail(lineno, line, err)
			value = 0
		}
		asm.emit(value)
		return
	}

	op, ok := Lookup(words[0])
	if !ok {
		asm.fail(lineno, line, ErrInstructionInvalid)
		return
	}

	asm.emit(byte(op))

	kind_a, kind_b := op.Kinds()
	kinds := [2]OperandKind{kind_a, kind_b}
	operands := words[1:]

	// The declared operand count is always emitted, so addresses stay
	// consistent past a recoverable error.
	for n := 0; n < op.Operands(); n++ {
		if n >= len(operands) {
			asm.fail(lineno, line, ErrOperandMissing)
			asm.emit(0)
			continue
		}
		asm.operand(operands[n], kinds[n], lineno, line)
	}

	if len(operands) > op.Operands() {
		asm.fail(lineno, line, ErrOperandUnexpected)
	}
}

// operand emits a single operand byte of the declared kind. Symbols and
// byte literals both satisfy an immediate slot; only register tokens
// satisfy a register slot.
func (asm *Assembler) operand(word string, kind OperandKind, lineno int, line string) {
	switch kind {
	case OPERAND_REGISTER:
		index, ok := regIndex(word)
		if !ok {
			asm.fail(lineno, line, ErrOperandKind)
		}
		asm.emit(index)

	case OPERAND_IMMEDIATE:
		if _, ok := regIndex(word); ok {
			asm.fail(lineno, line, ErrOperandKind)
			asm.emit(0)
			return
		}

		if numberLike(word) {
			value, err := asm.valueOf(word)
			if err != nil {
				asm.fail(lineno, line, err)
				value = 0
			}
			asm.emit(value)
			return
		}

		// Symbol reference: placeholder byte plus a deferred patch.
		asm.fixups = append(asm.fixups, fixup{
			symbol: word,
			addr:   asm.addr(),
			lineno: lineno,
			line:   line,
		})
		asm.emit(0)

	default:
		asm.emit(0)
	}
}

// regIndex parses a register token R0..R7 (case-insensitive).
func regIndex(word string) (index byte, ok bool) {
	if len(word) != 2 {
		return
	}
	if word[0] != 'R' && word[0] != 'r' {
		return
	}
	if word[1] < '0' || word[1] > '7' {
		return
	}

	index = word[1] - '0'
	ok = true

	return
}

// numberLike reports whether a token must parse as an integer literal.
// Anything else is a symbol reference.
func numberLike(word string) bool {
	if len(word) == 0 {
		return false
	}

	c := word[0]
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '~'
}

// valueOf parses an integer literal token (0x…, 0b…, or decimal) as an
// 8-bit value. Negative values map to their two's complement byte; a
// leading '~' inverts.
func (asm *Assembler) valueOf(word string) (value byte, err error) {
	invert := false
	if len(word) > 0 && word[0] == '~' {
		invert = true
		word = word[1:]
	}

	// Only 0x and 0b select a base; a leading zero alone stays decimal.
	base := 10
	digits := strings.TrimLeft(word, "+-")
	if len(digits) > 1 && digits[0] == '0' && strings.ContainsAny(digits[1:2], "xXbB") {
		base = 0
	}

	v64, perr := strconv.ParseInt(word, base, 16)
	if perr != nil || v64 > 0xff || v64 < -0x80 {
		err = ErrParseNumber(word)
		return
	}

	value = byte(v64)
	if invert {
		value = ^value
	}

	return
}

var charRe = regexp.MustCompile(`'\\?[^']'`)
var exprRe = regexp.MustCompile(`\$\([^\$]*\)`)

// expand rewrites 'x' character quotes and $(...) compile-time
// expressions into integer literals.
func (asm *Assembler) expand(text string) (out string, err error) {
	out = charRe.ReplaceAllStringFunc(text, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	out = exprRe.ReplaceAllStringFunc(out, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})

	return
}

// parenEval does compile-time $(...) evaluations over the integer-valued
// equates.
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}

	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		value8, verr := asm.valueOf(str)
		if verr != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value8))
	}

	prog := "rc=" + expr + "\n"
	dict, xerr := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if xerr != nil {
		err = ErrParseExpression(expr)
		return
	}

	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	value = uint32(st_int64)

	return
}
