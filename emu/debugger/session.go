package debugger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-faster/jx"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"phi2/emu/log"
	"phi2/mos"
)

// WSRequest is the client-to-server envelope.
type WSRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSResponse is the server-to-client envelope. Replies echo the
// request's event name; the server also pushes unsolicited "status"
// events whenever the CPU parks.
type WSResponse struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type stateData struct {
	Status string `json:"status"`
	PC     uint16 `json:"pc"`
	A      uint8  `json:"a"`
	X      uint8  `json:"x"`
	Y      uint8  `json:"y"`
	SP     uint8  `json:"sp"`
	P      uint8  `json:"p"`
	Clock  int64  `json:"clock"`
}

type errorData struct {
	Request string `json:"request"`
	Error   string `json:"error"`
}

var errNotPaused = errors.New("cpu is not paused")

type handlerFunc func(data []byte) (*WSResponse, error)

// A session serves one WebSocket connection. The event pump is the
// single writer to the socket and the single receiver of the CPU's
// park notifications.
type session struct {
	dbg  *Debugger
	conn *websocket.Conn

	reqs chan WSRequest

	// Owned by the event pump.
	parked bool

	handlers map[string]handlerFunc
}

func newSession(dbg *Debugger, conn *websocket.Conn) *session {
	s := &session{
		dbg:  dbg,
		conn: conn,
		reqs: make(chan WSRequest),
	}
	s.handlers = map[string]handlerFunc{
		"status":    s.handleStatus,
		"run":       s.handleRun,
		"pause":     s.handlePause,
		"step":      s.handleStep,
		"reset":     s.handleReset,
		"irq":       s.handleIRQ,
		"nmi":       s.handleNMI,
		"mem":       s.handleMem,
		"disasm":    s.handleDisasm,
		"bp-set":    s.handleBPSet,
		"bp-clear":  s.handleBPClear,
		"callstack": s.handleCallstack,
	}
	return s
}

// run drives the session until the socket closes or a pump fails.
func (s *session) run(ctx context.Context) error {
	defer s.dbg.detach()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Closing the socket is what unblocks a read in flight once
		// the other pump fails.
		<-ctx.Done()
		return s.conn.Close()
	})
	g.Go(func() error { return s.readPump(ctx) })
	g.Go(func() error { return s.eventPump(ctx) })
	return g.Wait()
}

func (s *session) readPump(ctx context.Context) error {
	for {
		var req WSRequest
		if err := s.conn.ReadJSON(&req); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		select {
		case s.reqs <- req:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *session) eventPump(ctx context.Context) error {
	for {
		select {
		case req := <-s.reqs:
			resp, err := s.handle(req)
			if err != nil {
				resp = &WSResponse{
					Event: "error",
					Data:  errorData{Request: req.Event, Error: err.Error()},
				}
			}
			if err := s.conn.WriteJSON(resp); err != nil {
				return fmt.Errorf("write: %w", err)
			}

		case pc := <-s.dbg.cpuBlock:
			// The CPU parked, on request or on a breakpoint. A post
			// can outlive its park when a release races it, so only
			// trust it while the status agrees.
			if s.dbg.getStatus() != paused {
				continue
			}
			s.parked = true
			log.ModDbg.DebugZ("cpu parked").Hex16("pc", pc).End()
			if err := s.conn.WriteJSON(s.statusResponse("status")); err != nil {
				return fmt.Errorf("write: %w", err)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *session) handle(req WSRequest) (*WSResponse, error) {
	h, ok := s.handlers[req.Event]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", req.Event)
	}
	log.ModDbg.DebugZ("request").String("event", req.Event).End()
	return h(req.Data)
}

// state reads the CPU directly while it is parked, and falls back to
// the machine's last published snapshot while it runs.
func (s *session) state() stateData {
	st := stateData{Status: s.dbg.getStatus().String()}
	if s.parked {
		c := s.dbg.mach.CPU
		st.PC = c.PC
		st.A, st.X, st.Y, st.SP = c.A, c.X, c.Y, c.SP
		st.P = uint8(c.P)
		st.Clock = c.Clock
	} else {
		snap := s.dbg.mach.State()
		st.PC = snap.PC
		st.A, st.X, st.Y, st.SP = snap.A, snap.X, snap.Y, snap.SP
		st.P = snap.P
		st.Clock = snap.Clock
	}
	return st
}

func (s *session) statusResponse(event string) *WSResponse {
	return &WSResponse{Event: event, Data: s.state()}
}

func (s *session) handleStatus(_ []byte) (*WSResponse, error) {
	return s.statusResponse("status"), nil
}

func (s *session) handleRun(_ []byte) (*WSResponse, error) {
	s.dbg.setStatus(running)
	if s.parked {
		s.parked = false
		s.dbg.blockAcks <- struct{}{}
	}
	return s.statusResponse("run"), nil
}

func (s *session) handlePause(_ []byte) (*WSResponse, error) {
	if !s.parked {
		s.dbg.setStatus(paused)
		// The park notification follows once the CPU reaches an
		// instruction boundary.
	}
	return s.statusResponse("pause"), nil
}

func (s *session) handleStep(_ []byte) (*WSResponse, error) {
	if !s.parked {
		return nil, errNotPaused
	}
	s.dbg.setStatus(stepping)
	s.parked = false
	s.dbg.blockAcks <- struct{}{}
	return &WSResponse{Event: "step", Data: "ok"}, nil
}

func (s *session) handleReset(_ []byte) (*WSResponse, error) {
	if s.parked {
		// The CPU parked before reading the opcode, so resetting it
		// in place is safe: the fetch restarts at the reset vector
		// when released.
		s.dbg.mach.CPU.Reset()
	} else {
		s.dbg.mach.Reset()
	}
	return s.statusResponse("reset"), nil
}

func (s *session) handleIRQ(_ []byte) (*WSResponse, error) {
	if s.parked {
		s.dbg.mach.CPU.IRQ()
	} else {
		s.dbg.mach.IRQ()
	}
	return &WSResponse{Event: "irq", Data: "ok"}, nil
}

func (s *session) handleNMI(_ []byte) (*WSResponse, error) {
	if s.parked {
		s.dbg.mach.CPU.NMI()
	} else {
		s.dbg.mach.NMI()
	}
	return &WSResponse{Event: "nmi", Data: "ok"}, nil
}

type memArgs struct {
	Addr uint16 `json:"addr"`
	Size int    `json:"size"`
}

func (s *session) handleMem(data []byte) (*WSResponse, error) {
	var args memArgs
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("mem args: %w", err)
	}
	if !s.parked {
		return nil, errNotPaused
	}
	if args.Size <= 0 || args.Size > 0x1000 {
		return nil, fmt.Errorf("size %d out of range 1-4096", args.Size)
	}

	buf := make([]byte, args.Size)
	for i := range buf {
		buf[i] = s.dbg.mach.Mem.Read8(args.Addr + uint16(i))
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("addr", func(e *jx.Encoder) { e.UInt16(args.Addr) })
		e.Field("data", func(e *jx.Encoder) { e.Base64(buf) })
	})
	return &WSResponse{Event: "mem", Data: json.RawMessage(e.Bytes())}, nil
}

type disasmArgs struct {
	Addr  uint16 `json:"addr"`
	Count int    `json:"count"`
}

func (s *session) handleDisasm(data []byte) (*WSResponse, error) {
	var args disasmArgs
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("disasm args: %w", err)
	}
	if !s.parked {
		return nil, errNotPaused
	}
	if args.Count <= 0 || args.Count > 256 {
		return nil, fmt.Errorf("count %d out of range 1-256", args.Count)
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("addr", func(e *jx.Encoder) { e.UInt16(args.Addr) })
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				pc := args.Addr
				for range args.Count {
					op := mos.Disasm(s.dbg.mach.Mem, pc)
					e.Str(op.String())

					next := pc + uint16(len(op.Buf))
					if next < pc {
						break // wrapped past the top of memory
					}
					pc = next
				}
			})
		})
	})
	return &WSResponse{Event: "disasm", Data: json.RawMessage(e.Bytes())}, nil
}

type bpArgs struct {
	Addr uint16 `json:"addr"`
}

func (s *session) handleBPSet(data []byte) (*WSResponse, error) {
	var args bpArgs
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("bp-set args: %w", err)
	}
	s.dbg.setBreakpoint(args.Addr)
	return &WSResponse{Event: "bp-set", Data: args}, nil
}

func (s *session) handleBPClear(data []byte) (*WSResponse, error) {
	var args bpArgs
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("bp-clear args: %w", err)
	}
	s.dbg.clearBreakpoint(args.Addr)
	return &WSResponse{Event: "bp-clear", Data: args}, nil
}

func (s *session) handleCallstack(_ []byte) (*WSResponse, error) {
	if !s.parked {
		return nil, errNotPaused
	}
	frames := s.dbg.stackWalk(s.dbg.mach.CPU.PC)
	return &WSResponse{Event: "callstack", Data: frames}, nil
}
