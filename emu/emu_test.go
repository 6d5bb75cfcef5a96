package emu

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"phi2/mos"
	"phi2/prg"
)

// syncBuffer is a bytes.Buffer safe to share between the run loop
// goroutine and the test.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.b.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.b.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// testMachine builds a machine with RAM for the zero and stack pages,
// a console capturing into w, the program at $0600 and all three
// vectors pointing at $0600, $0700 (irq) and $0710 (nmi).
func testMachine(w interface {
	Write(p []byte) (int, error)
}, program []byte) *Machine {
	m := NewMemMap()
	m.MapRAM(0x0000, 0x01FF)
	m.MapDevice(ConsolePage, NewConsole(w))
	m.MapImage(&prg.Image{Load: 0x0600, Data: program})
	m.MapImage(&prg.Image{Load: 0xFFFA, Data: []byte{
		0x10, 0x07, // nmi
		0x00, 0x06, // reset
		0x00, 0x07, // irq
	}})
	return NewMachine(m, MachineConfig{Hz: 1_000_000})
}

func TestMachineRun(t *testing.T) {
	// Prints "ok" and a newline, then spins.
	program := []byte{
		0xA2, 0x00, //       LDX #$00
		0xBD, 0x11, 0x06, // LDA $0611,X
		0xF0, 0x07, //       BEQ $060E
		0x8D, 0x01, 0xF0, // STA $F001
		0xE8,             // INX
		0x4C, 0x02, 0x06, // JMP $0602
		0x4C, 0x0E, 0x06, // JMP $060E
		'o', 'k', '\n', 0x00,
	}

	var out bytes.Buffer
	mach := testMachine(&out, program)
	mach.SetCycleLimit(200)
	if err := mach.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := out.String(); got != "ok\n" {
		t.Errorf("console output = %q, want %q", got, "ok\n")
	}
	st := mach.State()
	if st.Clock < 200 {
		t.Errorf("State().Clock = %d, want >= 200", st.Clock)
	}
	if st.Halted {
		t.Error("State().Halted = true, want false")
	}
}

func TestMachineHalt(t *testing.T) {
	mach := testMachine(&bytes.Buffer{}, []byte{0x02})

	err := mach.Run()
	if err == nil {
		t.Fatal("Run returned nil for a jam opcode")
	}
	var inv *mos.InvalidOpcodeError
	if !errors.As(err, &inv) {
		t.Errorf("Run error = %v, want InvalidOpcodeError", err)
	}
	if !mach.State().Halted {
		t.Error("State().Halted = false, want true")
	}
}

func TestMachineControls(t *testing.T) {
	mach := testMachine(&bytes.Buffer{}, []byte{0x4C, 0x00, 0x06}) // JMP $0600

	done := make(chan error, 1)
	go func() { done <- mach.Run() }()

	waitFor(t, "machine to start", func() bool { return mach.State().Clock > 0 })

	mach.SetPause(true)
	time.Sleep(50 * time.Millisecond) // let the pause land
	c1 := mach.State().Clock
	time.Sleep(50 * time.Millisecond)
	c2 := mach.State().Clock
	if c1 != c2 {
		t.Errorf("clock advanced while paused: %d -> %d", c1, c2)
	}

	mach.SetPause(false)
	waitFor(t, "clock to advance after resume", func() bool {
		return mach.State().Clock > c2
	})

	mach.Quit()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("machine did not quit")
	}
}

func TestMachineReset(t *testing.T) {
	// Prints one "x" per power-up, then spins.
	program := []byte{
		0xA9, 'x', //        LDA #'x'
		0x8D, 0x01, 0xF0, // STA $F001
		0x4C, 0x05, 0x06, // JMP $0605
	}

	var out syncBuffer
	mach := testMachine(&out, program)

	done := make(chan error, 1)
	go func() { done <- mach.Run() }()

	waitFor(t, "first print", func() bool { return out.String() == "x" })
	mach.Reset()
	waitFor(t, "print after reset", func() bool { return out.String() == "xx" })

	mach.Quit()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestMachineInterrupts(t *testing.T) {
	// Main program spins; the irq handler prints "i", the nmi
	// handler prints "n".
	m := NewMemMap()
	m.MapRAM(0x0000, 0x01FF)
	var out syncBuffer
	m.MapDevice(ConsolePage, NewConsole(&out))
	m.MapImage(&prg.Image{Load: 0x0600, Data: []byte{0x4C, 0x00, 0x06}})
	m.MapImage(&prg.Image{Load: 0x0700, Data: []byte{
		0xA9, 'i', 0x8D, 0x01, 0xF0, 0x40, // LDA #'i'; STA $F001; RTI
	}})
	m.MapImage(&prg.Image{Load: 0x0710, Data: []byte{
		0xA9, 'n', 0x8D, 0x01, 0xF0, 0x40,
	}})
	m.MapImage(&prg.Image{Load: 0xFFFA, Data: []byte{
		0x10, 0x07, 0x00, 0x06, 0x00, 0x07,
	}})
	mach := NewMachine(m, MachineConfig{Hz: 1_000_000})

	done := make(chan error, 1)
	go func() { done <- mach.Run() }()

	waitFor(t, "machine to start", func() bool { return mach.State().Clock > 0 })

	mach.IRQ()
	waitFor(t, "irq handler output", func() bool { return out.String() == "i" })

	mach.NMI()
	waitFor(t, "nmi handler output", func() bool { return out.String() == "in" })

	mach.Quit()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func BenchmarkMachineTicks(b *testing.B) {
	m := NewMemMap()
	m.MapRAM(0x0000, 0x01FF)
	m.MapImage(&prg.Image{Load: 0x0600, Data: []byte{0x4C, 0x00, 0x06}})
	m.MapImage(&prg.Image{Load: 0xFFFC, Data: []byte{0x00, 0x06}})

	mach := NewMachine(m, MachineConfig{Hz: 1_000_000})
	mach.CPU.Reset()

	b.ReportAllocs()
	for b.Loop() {
		if err := mach.CPU.Tick(); err != nil {
			b.Fatal(err)
		}
	}
}
