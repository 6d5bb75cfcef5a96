package debugger

import (
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"phi2/emu/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server owns the endpoint debugger clients connect to, at path /ws.
// Closing it stops accepting connections; a live session ends when its
// socket does.
type Server struct {
	l   net.Listener
	dbg *Debugger
}

func NewServer(addr string, dbg *Debugger) (*Server, error) {
	srv := &Server{dbg: dbg}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.handleWS)

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv.l = l

	log.ModDbg.InfoZ("debugger listening").
		String("url", "ws://"+l.Addr().String()+"/ws").
		End()

	go func() {
		server := &http.Server{Handler: mux}
		if err := server.Serve(l); !errors.Is(err, net.ErrClosed) {
			log.ModDbg.ErrorZ("debugger server stopped").Error("err", err).End()
		}
	}()
	return srv, nil
}

// Addr returns the address the server listens on.
func (srv *Server) Addr() string { return srv.l.Addr().String() }

func (srv *Server) Close() error { return srv.l.Close() }

func (srv *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !srv.dbg.attach() {
		http.Error(w, "a debugging session is already live", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.dbg.detach()
		log.ModDbg.WarnZ("websocket upgrade failed").Error("err", err).End()
		return
	}
	defer conn.Close()

	log.ModDbg.InfoZ("session open").
		String("peer", conn.RemoteAddr().String()).
		End()

	sess := newSession(srv.dbg, conn)
	if err := sess.run(r.Context()); err != nil {
		log.ModDbg.InfoZ("session closed").Error("err", err).End()
	}
}
