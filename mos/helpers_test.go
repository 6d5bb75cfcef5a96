package mos

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"testing"

	"phi2/emu/log"
)

func TestMain(m *testing.M) {
	log.Disable()
	os.Exit(m.Run())
}

// testBus is a flat 64 KiB address space with optional symbols.
type testBus struct {
	mem  [0x10000]byte
	syms map[uint16]string
}

func (b *testBus) Read8(addr uint16) uint8 {
	return b.mem[addr]
}

func (b *testBus) Write8(addr uint16, val uint8) {
	b.mem[addr] = val
}

func (b *testBus) SymbolAt(addr uint16) (string, bool) {
	s, ok := b.syms[addr]
	return s, ok
}

type dumpline struct {
	off   uint16
	bytes []byte
}

// loadDump parses a textual memory dump, one "offset: octets" line per
// mapped region. Blank lines and lines starting with # are skipped.
func loadDump(tb testing.TB, dump string) []dumpline {
	tb.Helper()

	var lines []dumpline
	scan := bufio.NewScanner(strings.NewReader(dump))
	for scan.Scan() {
		line := scan.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		off, octets, ok := strings.Cut(line, ":")
		if !ok {
			tb.Fatalf("malformed line: %s", line)
		}

		ioff, err := strconv.ParseUint(strings.TrimSpace(off), 16, 16)
		if err != nil {
			tb.Fatalf("malformed offset %s: %s", off, err)
		}
		buf, err := hex.DecodeString(strings.ReplaceAll(octets, " ", ""))
		if err != nil {
			tb.Fatalf("hex decode: %s", err)
		}

		lines = append(lines, dumpline{off: uint16(ioff), bytes: buf})
	}
	if scan.Err() != nil {
		tb.Fatalf("scan error: %s", scan.Err())
	}

	return lines
}

// loadCPUWith builds a CPU over a flat address space initialized from a
// memory dump.
func loadCPUWith(tb testing.TB, dump string) (*CPU, *testBus) {
	bus := new(testBus)
	for _, line := range loadDump(tb, dump) {
		copy(bus.mem[line.off:], line.bytes)
	}

	cpu := New(bus)
	if tb, ok := tb.(*testing.T); ok && testing.Verbose() {
		cpu.SetTracer(NewLineTracer(tbwriter{tb}))
	}
	return cpu, bus
}

// run ticks the CPU n times, failing the test on any fault.
func run(t *testing.T, cpu *CPU, n int) {
	t.Helper()

	for range n {
		if err := cpu.Tick(); err != nil {
			t.Fatalf("tick %d: %s", cpu.Clock, err)
		}
	}
}

func wantMem8(t *testing.T, cpu *CPU, addr uint16, want uint8) {
	t.Helper()

	if got := cpu.bus.Read8(addr); got != want {
		t.Errorf("$%04X = %02X want %02X", addr, got, want)
	}
}

func wantMem(t *testing.T, cpu *CPU, dl dumpline) {
	t.Helper()

	mem := []byte{}
	for i := range dl.bytes {
		mem = append(mem, cpu.bus.Read8(dl.off+uint16(i)))
	}

	if !bytes.Equal(mem, dl.bytes) {
		t.Errorf("mem mismatch at $%04X.\ngot:  % x\nwant: % x", dl.off, mem, dl.bytes)
	}
}

// wantCPUState checks registers and flags given as ("A", 0x42, "Pzc", 1)
// pairs. "Pxyz" entries check each named status bit against the value; a
// "mem" entry compares memory against a dump.
func wantCPUState(t *testing.T, cpu *CPU, states ...any) {
	t.Helper()

	if len(states)%2 != 0 {
		panic("odd number of states")
	}

	checkbool := func(name string, got bool, want int) {
		t.Helper()
		if int(b2i(got)) != want {
			t.Errorf("got %s=%d, want %d", name, b2i(got), want)
		}
	}
	checkuint8 := func(name string, got uint8, want int) {
		t.Helper()
		if got != uint8(want) {
			t.Errorf("got %s=$%02X, want $%02X", name, got, want)
		}
	}
	checkuint16 := func(name string, got uint16, want int) {
		t.Helper()
		if got != uint16(want) {
			t.Errorf("got %s=$%04X, want $%04X", name, got, want)
		}
	}

	for i := 0; i < len(states); i += 2 {
		s := states[i].(string)
		switch {
		case s == "A":
			checkuint8("A", cpu.A, states[i+1].(int))
		case s == "X":
			checkuint8("X", cpu.X, states[i+1].(int))
		case s == "Y":
			checkuint8("Y", cpu.Y, states[i+1].(int))
		case s == "PC":
			checkuint16("PC", cpu.PC, states[i+1].(int))
		case s == "SP":
			checkuint8("SP", cpu.SP, states[i+1].(int))
		case s == "P":
			if got, want := uint8(cpu.P), uint8(states[i+1].(int)); got != want {
				t.Errorf("got P=$%02X(%s), want $%02X(%s)", got, P(got), want, P(want))
			}
		case len(s) > 1 && s[0] == 'P':
			for j := 1; j < len(s); j++ {
				bit := states[i+1].(int)
				switch s[j] {
				case 'n':
					checkbool("Pn", cpu.P.N(), bit)
				case 'v':
					checkbool("Pv", cpu.P.V(), bit)
				case 'b':
					checkbool("Pb", cpu.P.B(), bit)
				case 'd':
					checkbool("Pd", cpu.P.D(), bit)
				case 'i':
					checkbool("Pi", cpu.P.I(), bit)
				case 'z':
					checkbool("Pz", cpu.P.Z(), bit)
				case 'c':
					checkbool("Pc", cpu.P.C(), bit)
				default:
					panic("unknown P bit: " + string(s[j]))
				}
			}
		case s == "mem":
			for _, line := range loadDump(t, states[i+1].(string)) {
				wantMem(t, cpu, line)
			}
		default:
			panic("unknown state: " + s)
		}
	}

	if t.Failed() {
		t.FailNow()
	}
}

type tbwriter struct {
	testing.TB
}

func (t tbwriter) Write(p []byte) (int, error) {
	t.TB.Helper()
	t.TB.Log(string(bytes.TrimSpace(p)))
	return len(p), nil
}

func TestLoadDump(t *testing.T) {
	tests := []struct {
		dump string
		want []dumpline
	}{
		{
			dump: `01f0: 0f 0e 0d`,
			want: []dumpline{
				{0x01f0, []byte{0x0f, 0x0e, 0x0d}},
			},
		},
		{
			dump: `
# two regions
01f0: 0f 0e 0d 0c 0b 0a 09 08 07 06 05 04 03 02 01 00
0210: 0f 0e 0d 0c 0b 0a 09 08 07 06 05 04 03 02 01 00
`,
			want: []dumpline{
				{0x01f0, []byte{0x0f, 0x0e, 0x0d, 0x0c, 0x0b, 0x0a, 0x09, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, 0x00}},
				{0x0210, []byte{0x0f, 0x0e, 0x0d, 0x0c, 0x0b, 0x0a, 0x09, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, 0x00}},
			},
		},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			got := loadDump(t, tt.dump)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].off != tt.want[i].off {
					t.Errorf("got offset %04X, want %04X", got[i].off, tt.want[i].off)
				}
				if !bytes.Equal(got[i].bytes, tt.want[i].bytes) {
					t.Errorf("line %d: got % x, want % x", i, got[i].bytes, tt.want[i].bytes)
				}
			}
		})
	}
}
