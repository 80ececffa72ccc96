// Package pubsub publishes power changes on a nanomsg PUB socket.
//
// Each message is the node name, a single space, then the JSON-encoded
// change, so subscribers can filter on a node-name prefix.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/gyaneshwarpardhi/powergrid/internal/event"
)

// Publisher is a sink that broadcasts every change it receives. Sends never
// block; subscribers that are not connected miss the message.
type Publisher struct {
	sock mangos.Socket
	addr string
}

// Listen opens a PUB socket bound to addr (e.g. tcp://*:9400 or inproc://name).
func Listen(addr string) (*Publisher, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("create PUB socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("bind PUB socket %s: %w", addr, err)
	}
	return &Publisher{sock: sock, addr: addr}, nil
}

func (p *Publisher) Type() string { return "pubsub" }

// Addr returns the address the socket is bound to.
func (p *Publisher) Addr() string { return p.addr }

func (p *Publisher) Notify(_ context.Context, ch *event.Change) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	msg := make([]byte, 0, len(ch.NodeName)+1+len(payload))
	msg = append(msg, ch.NodeName...)
	msg = append(msg, ' ')
	msg = append(msg, payload...)
	return p.sock.Send(msg)
}

// Close releases the socket.
func (p *Publisher) Close() error {
	return p.sock.Close()
}
