package emu

import (
	"sync/atomic"
	"time"

	"phi2/emu/log"
	"phi2/mos"
)

// State is a point-in-time copy of the CPU registers and clock,
// published by the run loop and safe to read from any goroutine.
type State struct {
	A, X, Y, SP uint8
	P           uint8
	PC          uint16
	Clock       int64
	Halted      bool
}

// The run loop settles its cycle debt and polls the control flags once
// per slice.
const sliceLen = 10 * time.Millisecond

// Machine drives a CPU over a memory map at a configured clock rate.
// The goroutine calling Run owns the CPU; other goroutines control it
// through the atomic flags and observe it through State snapshots.
type Machine struct {
	CPU *mos.CPU
	Mem *MemMap

	hz    int64
	limit int64

	// Control flags, set from any goroutine, applied by the run loop
	// between slices.
	quit   atomic.Bool
	paused atomic.Bool
	reset  atomic.Bool
	irq    atomic.Bool
	nmi    atomic.Bool

	state atomic.Pointer[State]
}

func NewMachine(mem *MemMap, cfg MachineConfig) *Machine {
	hz := cfg.Hz
	if hz <= 0 {
		hz = DefaultConfig().Machine.Hz
		log.ModEmu.WarnZ("invalid clock rate").
			Int64("hz", cfg.Hz).
			Int64("using", hz).
			End()
	}

	m := &Machine{
		CPU: mos.New(mem),
		Mem: mem,
		hz:  hz,
	}
	m.state.Store(&State{})
	log.RegisterContext(m)
	return m
}

// AddLogContext implements log.Contexter: every entry logged while the
// machine exists carries the clock of the latest published snapshot.
func (m *Machine) AddLogContext(e *log.EntryZ) {
	e.Int64("cyc", m.State().Clock)
}

// SetCycleLimit makes Run stop once the CPU clock reaches n cycles,
// 0 meaning no limit. Call before Run.
func (m *Machine) SetCycleLimit(n int64) { m.limit = n }

// SetPause, Reset, Quit, IRQ and NMI control the run loop from other
// goroutines. They take effect at the next slice boundary.

func (m *Machine) SetPause(pause bool) { m.paused.CompareAndSwap(!pause, pause) }
func (m *Machine) Reset()              { m.reset.Store(true) }
func (m *Machine) Quit()               { m.quit.Store(true) }
func (m *Machine) IRQ()                { m.irq.Store(true) }
func (m *Machine) NMI()                { m.nmi.Store(true) }

// State returns the latest published snapshot.
func (m *Machine) State() State { return *m.state.Load() }

// Run resets the CPU and paces it at the configured clock rate until
// Quit is called, the cycle limit is reached, or the CPU halts. Only a
// halt returns an error.
func (m *Machine) Run() error {
	m.CPU.Reset()
	m.publish()

	tick := time.NewTicker(sliceLen)
	defer tick.Stop()

	// Fractional cycles owed carry over from slice to slice. A slice
	// that overruns simply delays the next settle.
	perSlice := float64(m.hz) * sliceLen.Seconds()
	var debt float64

	for !m.quit.Load() {
		<-tick.C
		m.applyControls()

		if !m.paused.Load() {
			debt += perSlice
			n := int64(debt)
			debt -= float64(n)

			for ; n > 0; n-- {
				if err := m.CPU.Tick(); err != nil {
					m.publish()
					log.ModEmu.ErrorZ("cpu halted").
						Hex16("pc", m.CPU.OpAddr).
						Int64("clock", m.CPU.Clock).
						Error("err", err).
						End()
					return err
				}
				if m.limit > 0 && m.CPU.Clock >= m.limit {
					m.quit.Store(true)
					break
				}
			}
		}
		m.publish()
	}

	log.ModEmu.InfoZ("run loop exited").Int64("clock", m.CPU.Clock).End()
	return nil
}

func (m *Machine) applyControls() {
	if m.reset.CompareAndSwap(true, false) {
		log.ModEmu.InfoZ("soft reset").End()
		m.CPU.Reset()
	}
	if m.irq.CompareAndSwap(true, false) {
		m.CPU.IRQ()
	}
	if m.nmi.CompareAndSwap(true, false) {
		m.CPU.NMI()
	}
}

func (m *Machine) publish() {
	c := m.CPU
	m.state.Store(&State{
		A:      c.A,
		X:      c.X,
		Y:      c.Y,
		SP:     c.SP,
		P:      uint8(c.P),
		PC:     c.PC,
		Clock:  c.Clock,
		Halted: c.IsHalted(),
	})
}
