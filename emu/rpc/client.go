package rpc

import (
	"fmt"
	"net/rpc"
	"time"

	"phi2/emu"
	"phi2/emu/log"
)

// Client drives a remote machine. Use Dial to get one.
type Client struct {
	client *rpc.Client
}

// Dial connects to a server, retrying for a while so the caller can
// start the machine process and connect in one go.
func Dial(addr string) (*Client, error) {
	const maxretries = 5
	var err error
	for i := range maxretries {
		var client *rpc.Client
		if client, err = rpc.DialHTTP("tcp", addr); err == nil {
			return &Client{client: client}, nil
		}
		log.ModRPC.WarnZ("dial failed").
			String("addr", addr).
			Int("retry", i).
			Error("err", err).
			End()
		time.Sleep(250 * time.Millisecond)
	}
	return nil, fmt.Errorf("dial %s: %w", addr, err)
}

func (c *Client) Close() error {
	log.ModRPC.DebugZ("closing rpc client").End()
	return c.client.Close()
}

func (c *Client) Reset() error  { return call(c.client, "machine.Reset", nil) }
func (c *Client) Pause() error  { return call(c.client, "machine.Pause", nil) }
func (c *Client) Resume() error { return call(c.client, "machine.Resume", nil) }
func (c *Client) Quit() error   { return call(c.client, "machine.Quit", nil) }
func (c *Client) IRQ() error    { return call(c.client, "machine.IRQ", nil) }
func (c *Client) NMI() error    { return call(c.client, "machine.NMI", nil) }

func (c *Client) State() (emu.State, error) {
	return request[emu.State](c.client, "machine.State", nil)
}

func call(client *rpc.Client, funcname string, args any) error {
	_, err := request[struct{}](client, funcname, args)
	return err
}

func request[T any](client *rpc.Client, funcname string, args any) (T, error) {
	if args == nil {
		args = &struct{}{}
	}
	var reply T
	if err := client.Call(funcname, args, &reply); err != nil {
		return reply, fmt.Errorf("%s: %w", funcname, err)
	}
	return reply, nil
}
