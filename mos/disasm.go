package mos

import (
	"io"
	"strings"
)

// DisasmOp is one decoded instruction ready for display.
type DisasmOp struct {
	Name string
	Oper string
	Buf  []byte // instruction bytes as encoded
	PC   uint16
}

// Bytes returns the fixed-width textual form of d. This is the optimized
// version, suitable for the execution tracer.
func (d DisasmOp) Bytes() []byte {
	const totalLen = 48
	buf := make([]byte, totalLen)

	hexEncode(buf[0:], byte(d.PC>>8))
	hexEncode(buf[2:], byte(d.PC))
	buf[4] = ' '
	buf[5] = ' '

	off := 6
	for i := range d.Buf {
		hexEncode(buf[off:], d.Buf[i])
		buf[off+2] = ' '
		off += 3
	}

	for ; off < 16; off++ {
		buf[off] = ' '
	}

	off += copy(buf[off:], d.Name)
	buf[off] = ' '
	off++

	buf = append(buf[:off], d.Oper...)
	off += len(d.Oper)
	if len(buf) > totalLen {
		buf = append(buf, ' ')
	} else {
		buf = buf[:totalLen]
		for i := off; i < totalLen; i++ {
			buf[i] = ' '
		}
	}

	return buf
}

func (d DisasmOp) String() string {
	return strings.TrimRight(string(d.Bytes()), " ")
}

// Disasm decodes the instruction at pc, reading through bus and leaving
// all CPU state alone. Bytes with no defined operation disassemble as ???
// with length one, so a listing resyncs past data.
func Disasm(bus Bus, pc uint16) DisasmOp {
	opcode := bus.Read8(pc)
	in, ok := decode(opcode)
	if !ok {
		return DisasmOp{Name: "???", Buf: []byte{opcode}, PC: pc}
	}

	buf := []byte{opcode}
	var operand uint16
	switch in.mode.OperandLen() {
	case 1:
		lo := bus.Read8(pc + 1)
		buf = append(buf, lo)
		operand = uint16(lo)
	case 2:
		lo := bus.Read8(pc + 1)
		hi := bus.Read8(pc + 2)
		buf = append(buf, lo, hi)
		operand = uint16(hi)<<8 | uint16(lo)
	}

	var sym string
	if sr, ok := bus.(SymbolReader); ok {
		if addr, ok := operandTarget(in.mode, pc, operand); ok {
			sym, _ = sr.SymbolAt(addr)
		}
	}

	return DisasmOp{
		Name: in.name,
		Oper: FormatOperand(in.mode, operand, sym),
		Buf:  buf,
		PC:   pc,
	}
}

// DisasmRange writes the instructions of [start, end) to w, one per line.
func DisasmRange(bus Bus, start, end uint16, w io.Writer) {
	for pc := start; pc < end; {
		op := Disasm(bus, pc)
		io.WriteString(w, op.String())
		io.WriteString(w, "\n")

		next := pc + uint16(len(op.Buf))
		if next < pc {
			break // wrapped past the top of the address space
		}
		pc = next
	}
}

// operandTarget returns the address a symbol would attach to for the
// operand as displayed, which for indexed modes is the base address.
func operandTarget(mode AddrMode, pc, operand uint16) (uint16, bool) {
	switch mode {
	case Immediate, ZeroPage, ZeroPageX, ZeroPageY, Absolute, AbsoluteX, AbsoluteY:
		return operand, true
	case Relative:
		return uint16(int16(pc+2) + int16(int8(uint8(operand)))), true
	}
	return 0, false
}
