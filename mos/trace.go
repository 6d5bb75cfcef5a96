package mos

import (
	"fmt"
	"io"
	"strconv"
)

// A Tracer receives one record per completed fetch, after decode and
// address resolution and before the instruction executes. Implementations
// must not block: the CPU calls them from inside Tick.
type Tracer interface {
	Trace(op TraceOp)
}

// TraceOp is the snapshot handed to a Tracer: the instruction's identity,
// its operand as encoded, and the register file as of the fetch cycle.
type TraceOp struct {
	PC      uint16 // address of the opcode byte
	Opcode  uint8
	Name    string
	Mode    AddrMode
	Operand uint16 // operand bytes as encoded, zero if none
	Target  uint16 // effective address or branch target, zero if none
	Sym     string // symbol at Target, empty when unresolved

	A, X, Y uint8
	P       P
	SP      uint8
	Clock   int64 // cycles elapsed before this instruction started
}

// Len returns the instruction length in bytes.
func (op TraceOp) Len() int {
	return 1 + op.Mode.OperandLen()
}

// Bytes returns the instruction as encoded, opcode byte first.
func (op TraceOp) Bytes() []byte {
	b := []byte{op.Opcode}
	switch op.Mode.OperandLen() {
	case 1:
		b = append(b, uint8(op.Operand))
	case 2:
		b = append(b, uint8(op.Operand), uint8(op.Operand>>8))
	}
	return b
}

// traceOp hands the just-decoded instruction to the tracer, if any.
func (c *CPU) traceOp() {
	if c.tracer == nil {
		return
	}

	op := TraceOp{
		PC:      c.OpAddr,
		Opcode:  c.Opcode,
		Name:    c.OpName,
		Mode:    c.Mode,
		Operand: c.Operand,
		A:       c.A,
		X:       c.X,
		Y:       c.Y,
		P:       c.P,
		SP:      c.SP,
		Clock:   c.opClock,
	}

	switch c.Mode {
	case ZeroPage, ZeroPageX, ZeroPageY, Absolute, AbsoluteX, AbsoluteY, Relative:
		op.Target = c.ea
	case Immediate:
		op.Target = c.Operand
	}
	if c.sym != nil {
		// Symbols attach to the operand as displayed, so indexed modes
		// resolve their base address, not the indexed one.
		if addr, ok := operandTarget(c.Mode, c.OpAddr, c.Operand); ok {
			op.Sym, _ = c.sym.SymbolAt(addr)
		}
	}

	c.tracer.Trace(op)
}

// FormatOperand renders an instruction operand in assembler syntax. A
// non-empty sym replaces the numeric address. Relative displacements count
// from the instruction's own address.
func FormatOperand(mode AddrMode, operand uint16, sym string) string {
	switch mode {
	case Implied:
		return ""
	case Accumulator:
		return "A"
	case Immediate:
		if sym != "" {
			return "#" + sym
		}
		return fmt.Sprintf("#$%02X", uint8(operand))
	case ZeroPage:
		return fmtAddr8(operand, sym, "")
	case ZeroPageX:
		return fmtAddr8(operand, sym, ",X")
	case ZeroPageY:
		return fmtAddr8(operand, sym, ",Y")
	case Absolute:
		return fmtAddr16(operand, sym, "")
	case AbsoluteX:
		return fmtAddr16(operand, sym, ",X")
	case AbsoluteY:
		return fmtAddr16(operand, sym, ",Y")
	case Relative:
		if sym != "" {
			return sym
		}
		n := int(int8(uint8(operand))) + 2
		if n < 0 {
			return "*-" + strconv.Itoa(-n)
		}
		return "*+" + strconv.Itoa(n)
	case Indirect:
		return fmt.Sprintf("($%04X)", operand)
	case IndexedIndirect:
		return fmt.Sprintf("($%02X,X)", uint8(operand))
	case IndirectIndexed:
		return fmt.Sprintf("($%02X),Y", uint8(operand))
	}
	return ""
}

func fmtAddr8(addr uint16, sym, suffix string) string {
	if sym != "" {
		return sym + suffix
	}
	return fmt.Sprintf("$%02X%s", uint8(addr), suffix)
}

func fmtAddr16(addr uint16, sym, suffix string) string {
	if sym != "" {
		return sym + suffix
	}
	return fmt.Sprintf("$%04X%s", addr, suffix)
}

func hexEncode(dst []byte, v byte) {
	const hextable = "0123456789ABCDEF"
	dst[0] = hextable[v>>4]
	dst[1] = hextable[v&0x0f]
}

// A LineTracer writes one fixed-width text line per instruction: address,
// raw bytes, disassembly, then the register file.
type LineTracer struct {
	w io.Writer
}

func NewLineTracer(w io.Writer) *LineTracer {
	return &LineTracer{w: w}
}

func (t *LineTracer) Trace(op TraceOp) {
	const totalLen = 80

	dis := DisasmOp{
		Name: op.Name,
		Oper: FormatOperand(op.Mode, op.Operand, op.Sym),
		Buf:  op.Bytes(),
		PC:   op.PC,
	}

	buf := make([]byte, totalLen)
	buf = append(buf[:0], dis.Bytes()...)
	off := min(totalLen, len(buf))
	buf = buf[:max(totalLen, len(buf))]

	for off < 49 {
		buf[off] = ' '
		off++
	}

	buf[off] = 'A'
	off++
	buf[off] = ':'
	off++
	hexEncode(buf[off:], op.A)
	off += 2
	buf[off] = ' '
	off++

	buf[off] = 'X'
	off++
	buf[off] = ':'
	off++
	hexEncode(buf[off:], op.X)
	off += 2
	buf[off] = ' '
	off++

	buf[off] = 'Y'
	off++
	buf[off] = ':'
	off++
	hexEncode(buf[off:], op.Y)
	off += 2
	buf[off] = ' '
	off++

	buf[off] = 'P'
	off++
	buf[off] = ':'
	off++
	hexEncode(buf[off:], byte(op.P))
	off += 2
	buf[off] = ' '
	off++

	buf = fmt.Appendf(buf[:off], "SP:%02X CYC:%d\n", op.SP, op.Clock)
	t.w.Write(buf)
}
