package mos

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type traceRecorder struct {
	ops []TraceOp
}

func (r *traceRecorder) Trace(op TraceOp) {
	r.ops = append(r.ops, op)
}

func TestTraceOpFields(t *testing.T) {
	cpu, bus := loadCPUWith(t, "0600: a2 05 95 10")
	bus.syms = map[uint16]string{0x0010: "counter"}
	cpu.PC = 0x0600

	rec := &traceRecorder{}
	cpu.SetTracer(rec)
	run(t, cpu, 6) // LDX #$05, STA $10,X

	// Registers are captured before the instruction executes, and the
	// symbol names the base address while Target holds the indexed one.
	want := []TraceOp{
		{
			PC: 0x0600, Opcode: 0xA2, Name: "LDX", Mode: Immediate,
			Operand: 0x0005, Target: 0x0005,
			A: 0x00, X: 0x00, Y: 0x00, P: 0x20, SP: 0xFD, Clock: 0,
		},
		{
			PC: 0x0602, Opcode: 0x95, Name: "STA", Mode: ZeroPageX,
			Operand: 0x0010, Target: 0x0015, Sym: "counter",
			A: 0x00, X: 0x05, Y: 0x00, P: 0x20, SP: 0xFD, Clock: 2,
		},
	}
	if diff := cmp.Diff(want, rec.ops); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestTraceSuppressedOnFault(t *testing.T) {
	cpu, _ := loadCPUWith(t, "0600: 6c 00 07")
	cpu.PC = 0x0600

	rec := &traceRecorder{}
	cpu.SetTracer(rec)

	if err := cpu.Tick(); err != nil {
		t.Fatal(err)
	}
	if err := cpu.Tick(); err == nil {
		t.Fatal("expected the indirect jump to fault")
	}
	if len(rec.ops) != 0 {
		t.Errorf("got %d trace records for a faulting instruction, want 0", len(rec.ops))
	}
}

func TestLineTracer(t *testing.T) {
	cpu, _ := loadCPUWith(t, `
0600: a9 01 85 10 0a 4c 00 07
0700: ea
`)
	cpu.PC = 0x0600

	var buf bytes.Buffer
	cpu.SetTracer(NewLineTracer(&buf))
	run(t, cpu, 12)

	want := "" +
		"0600  A9 01     LDA #$01                         A:00 X:00 Y:00 P:20 SP:FD CYC:0\n" +
		"0602  85 10     STA $10                          A:01 X:00 Y:00 P:20 SP:FD CYC:2\n" +
		"0604  0A        ASL A                            A:01 X:00 Y:00 P:20 SP:FD CYC:5\n" +
		"0605  4C 00 07  JMP $0700                        A:02 X:00 Y:00 P:20 SP:FD CYC:7\n" +
		"0700  EA        NOP                              A:02 X:00 Y:00 P:20 SP:FD CYC:10\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestLineTracerSymbols(t *testing.T) {
	cpu, bus := loadCPUWith(t, `
0600: a9 01 85 10 4c 00 07
0700: e8 d0 fd
`)
	bus.syms = map[uint16]string{
		0x0010: "counter",
		0x0700: "main",
	}
	cpu.PC = 0x0600

	var buf bytes.Buffer
	cpu.SetTracer(NewLineTracer(&buf))
	run(t, cpu, 12)

	want := "" +
		"0600  A9 01     LDA #$01                         A:00 X:00 Y:00 P:20 SP:FD CYC:0\n" +
		"0602  85 10     STA counter                      A:01 X:00 Y:00 P:20 SP:FD CYC:2\n" +
		"0604  4C 00 07  JMP main                         A:01 X:00 Y:00 P:20 SP:FD CYC:5\n" +
		"0700  E8        INX                              A:01 X:00 Y:00 P:20 SP:FD CYC:8\n" +
		"0701  D0 FD     BNE main                         A:01 X:01 Y:00 P:20 SP:FD CYC:10\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatOperand(t *testing.T) {
	tests := []struct {
		mode    AddrMode
		operand uint16
		sym     string
		want    string
	}{
		{Implied, 0, "", ""},
		{Accumulator, 0, "", "A"},
		{Immediate, 0x42, "", "#$42"},
		{Immediate, 0x42, "answer", "#answer"},
		{ZeroPage, 0x10, "", "$10"},
		{ZeroPage, 0x10, "counter", "counter"},
		{ZeroPageX, 0x10, "", "$10,X"},
		{ZeroPageX, 0x10, "counter", "counter,X"},
		{ZeroPageY, 0x10, "", "$10,Y"},
		{Absolute, 0x1234, "", "$1234"},
		{Absolute, 0x1234, "main", "main"},
		{AbsoluteX, 0x1234, "", "$1234,X"},
		{AbsoluteY, 0x1234, "table", "table,Y"},
		{Relative, 0x05, "", "*+7"},
		{Relative, 0x00, "", "*+2"},
		{Relative, 0xFE, "", "*+0"},
		{Relative, 0xFB, "", "*-3"},
		{Relative, 0x10, "loop", "loop"},
		{Indirect, 0x0236, "", "($0236)"},
		{IndexedIndirect, 0x40, "", "($40,X)"},
		{IndirectIndexed, 0x40, "", "($40),Y"},
	}

	for _, tt := range tests {
		got := FormatOperand(tt.mode, tt.operand, tt.sym)
		if got != tt.want {
			t.Errorf("%s operand %04X sym %q: got %q, want %q",
				tt.mode, tt.operand, tt.sym, got, tt.want)
		}
	}
}

func TestTraceOpBytes(t *testing.T) {
	tests := []struct {
		op      TraceOp
		wantLen int
		want    []byte
	}{
		{TraceOp{Opcode: 0xEA, Mode: Implied}, 1, []byte{0xEA}},
		{TraceOp{Opcode: 0xA5, Mode: ZeroPage, Operand: 0x10}, 2, []byte{0xA5, 0x10}},
		{TraceOp{Opcode: 0x8D, Mode: Absolute, Operand: 0x0200}, 3, []byte{0x8D, 0x00, 0x02}},
	}

	for _, tt := range tests {
		if got := tt.op.Len(); got != tt.wantLen {
			t.Errorf("%02X: len %d, want %d", tt.op.Opcode, got, tt.wantLen)
		}
		if got := tt.op.Bytes(); !bytes.Equal(got, tt.want) {
			t.Errorf("%02X: bytes % x, want % x", tt.op.Opcode, got, tt.want)
		}
	}
}
