package rpc

import (
	"net"
	"net/http"
	"net/rpc"

	"phi2/emu"
	"phi2/emu/log"
)

// Machine is the control surface the server exposes. Every method must
// be safe to call while the run loop is live.
type Machine interface {
	Reset()
	SetPause(pause bool)
	Quit()
	IRQ()
	NMI()
	State() emu.State
}

type machineProxy struct {
	m Machine
}

func (mp *machineProxy) Reset(_, _ *struct{}) error  { mp.m.Reset(); return nil }
func (mp *machineProxy) Pause(_, _ *struct{}) error  { mp.m.SetPause(true); return nil }
func (mp *machineProxy) Resume(_, _ *struct{}) error { mp.m.SetPause(false); return nil }
func (mp *machineProxy) Quit(_, _ *struct{}) error   { mp.m.Quit(); return nil }
func (mp *machineProxy) IRQ(_, _ *struct{}) error    { mp.m.IRQ(); return nil }
func (mp *machineProxy) NMI(_, _ *struct{}) error    { mp.m.NMI(); return nil }

func (mp *machineProxy) State(_ *struct{}, reply *emu.State) error {
	*reply = mp.m.State()
	return nil
}

// Server accepts machine control connections until closed.
type Server struct {
	l net.Listener
}

func NewServer(addr string, m Machine) (*Server, error) {
	proxy := &machineProxy{m: m}
	if err := rpc.RegisterName("machine", proxy); err != nil {
		panic("rpc register failed: " + err.Error())
	}
	rpc.HandleHTTP()
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	log.ModRPC.InfoZ("rpc server listening").String("addr", l.Addr().String()).End()
	go http.Serve(l, nil)
	return &Server{l: l}, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string { return s.l.Addr().String() }

func (s *Server) Close() error { return s.l.Close() }
