package pubsub_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	"github.com/gyaneshwarpardhi/powergrid/internal/event"
	"github.com/gyaneshwarpardhi/powergrid/internal/sink/pubsub"
)

func TestPublisher_Notify(t *testing.T) {
	p, err := pubsub.Listen("inproc://powergrid-pubsub-test")
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "pubsub", p.Type())

	s, err := sub.NewSocket()
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.SetOption(mangos.OptionSubscribe, []byte("door ")))
	require.NoError(t, s.SetOption(mangos.OptionRecvDeadline, 50*time.Millisecond))
	require.NoError(t, s.Dial(p.Addr()))

	// PUB drops messages until the subscriber's pipe is attached, so keep
	// publishing until one arrives.
	var msg []byte
	deadline := time.Now().Add(3 * time.Second)
	for msg == nil && time.Now().Before(deadline) {
		require.NoError(t, p.Notify(context.Background(), &event.Change{NodeName: "alarm", Seq: 1}))
		require.NoError(t, p.Notify(context.Background(), &event.Change{NodeName: "door", Seq: 2, Powered: true}))
		if m, err := s.Recv(); err == nil {
			msg = m
		}
	}
	require.NotNil(t, msg, "no message received")

	name, payload, ok := bytes.Cut(msg, []byte(" "))
	require.True(t, ok)
	assert.Equal(t, "door", string(name))

	var ch event.Change
	require.NoError(t, json.Unmarshal(payload, &ch))
	assert.Equal(t, uint64(2), ch.Seq)
	assert.True(t, ch.Powered)
}

func TestListen_BadAddress(t *testing.T) {
	_, err := pubsub.Listen("bogus://nowhere")
	assert.Error(t, err)
}
