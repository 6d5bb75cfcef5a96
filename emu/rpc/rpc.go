// Package rpc exposes machine control over net/rpc, for scripted runs
// and process-level tests.
package rpc

import (
	"net"
)

// UnusedPort asks the OS for a TCP port nothing listens on.
func UnusedPort() int {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		panic("UnusedPort: " + err.Error())
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		panic("UnusedPort: " + err.Error())
	}
	return port
}
