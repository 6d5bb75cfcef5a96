// Package debugger stops, steps and inspects a live machine, serving
// the protocol described in session.go over a WebSocket endpoint.
package debugger

import (
	"fmt"
	"sync"
	"sync/atomic"

	"phi2/emu"
	"phi2/emu/log"
)

// status of the debugged CPU, as reported over the wire.
type status int32

const (
	running status = iota
	paused
	stepping
)

func (s status) String() string {
	switch s {
	case running:
		return "running"
	case paused:
		return "paused"
	case stepping:
		return "stepping"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// A Debugger hooks into the CPU and parks it at instruction boundaries
// on demand. It keeps tracking the call stack even with no session
// attached, so a program can be debugged from any point of its run.
//
// The CPU parks inside its Trace hook: it posts its position on
// cpuBlock and then waits on blockAcks for as long as the status says
// paused. Re-checking the status after every ack means a stale ack
// from a torn-down session wakes the CPU without releasing it, and a
// release that raced the park is noticed without consuming anything.
// Both channels are buffered so neither side can strand the other;
// attach drains whatever a previous session left behind.
type Debugger struct {
	mach *emu.Machine

	active atomic.Bool
	status atomic.Int32

	cpuBlock  chan uint16
	blockAcks chan struct{}

	mu     sync.Mutex
	bps    map[uint16]bool
	cstack callStack
}

// New wires a debugger into the machine's CPU. The machine must not be
// running yet.
func New(mach *emu.Machine) *Debugger {
	dbg := &Debugger{
		mach:      mach,
		cpuBlock:  make(chan uint16, 1),
		blockAcks: make(chan struct{}, 1),
		bps:       make(map[uint16]bool),
	}
	mach.CPU.SetDebugger(dbg)
	return dbg
}

// attach claims the debugger for a session, failing if one is already
// live. A CPU parked before the session arrived, by Pause or by a
// breakpoint, stays parked for the new session to adopt.
func (d *Debugger) attach() bool {
	if !d.active.CompareAndSwap(false, true) {
		return false
	}

	// With the CPU running free, anything left in the handshake
	// channels is a leftover from a previous session's teardown.
	if d.getStatus() == running {
		select {
		case <-d.cpuBlock:
		default:
		}
		select {
		case <-d.blockAcks:
		default:
		}
	}
	return true
}

// detach forgets the session's breakpoints and lets the CPU run free.
// Called when a session ends.
func (d *Debugger) detach() {
	d.mu.Lock()
	clear(d.bps)
	d.mu.Unlock()

	if d.getStatus() != running {
		d.setStatus(running)
		d.blockAcks <- struct{}{}
	}
	d.active.Store(false)
}

// Pause asks the CPU to park at the next instruction boundary. It may
// be called before the machine runs, in which case the CPU parks on
// its first instruction and waits for a session to pick it up.
func (d *Debugger) Pause() { d.setStatus(paused) }

func (d *Debugger) getStatus() status  { return status(d.status.Load()) }
func (d *Debugger) setStatus(s status) { d.status.Store(int32(s)) }

func (d *Debugger) setBreakpoint(pc uint16) {
	d.mu.Lock()
	d.bps[pc] = true
	d.mu.Unlock()
	log.ModDbg.InfoZ("breakpoint set").Hex16("pc", pc).End()
}

func (d *Debugger) clearBreakpoint(pc uint16) {
	d.mu.Lock()
	delete(d.bps, pc)
	d.mu.Unlock()
	log.ModDbg.InfoZ("breakpoint cleared").Hex16("pc", pc).End()
}

func (d *Debugger) hasBreakpoint(pc uint16) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bps[pc]
}

// stackWalk renders the call hierarchy for a CPU sitting at pc.
func (d *Debugger) stackWalk(pc uint16) []frameInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cstack.build(pc)
}

// Reset implements mos.Debugger.
func (d *Debugger) Reset() {
	d.mu.Lock()
	d.cstack.reset()
	d.mu.Unlock()
}

// Trace implements mos.Debugger. It runs on the CPU goroutine once per
// instruction and blocks there for as long as the CPU has to stay
// parked.
func (d *Debugger) Trace(pc uint16) {
	switch d.getStatus() {
	case running:
		if !d.hasBreakpoint(pc) {
			return
		}
		log.ModDbg.InfoZ("breakpoint hit").Hex16("pc", pc).End()
		d.setStatus(paused)
	case stepping:
		d.setStatus(paused)
	}

	// The post may be dropped when a stale one still sits in the
	// buffer; that one then carries the notification instead.
	select {
	case d.cpuBlock <- pc:
	default:
	}
	for d.getStatus() == paused {
		<-d.blockAcks
	}
}

// Interrupt implements mos.Debugger.
func (d *Debugger) Interrupt(prevpc, curpc uint16, isNMI bool) {
	kind := frameIRQ
	if isNMI {
		kind = frameNMI
	}
	d.mu.Lock()
	d.cstack.push(prevpc, curpc, prevpc, kind)
	d.mu.Unlock()
}

// Call implements mos.Debugger.
func (d *Debugger) Call(src, dst, ret uint16) {
	d.mu.Lock()
	d.cstack.push(src, dst, ret, frameCall)
	d.mu.Unlock()
}

// Ret implements mos.Debugger.
func (d *Debugger) Ret(pc uint16) {
	d.mu.Lock()
	d.cstack.ret(pc)
	d.mu.Unlock()
}
