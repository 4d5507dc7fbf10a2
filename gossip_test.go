package main

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoopbackTransport(t *testing.T, ctx context.Context) *GossipTransport {
	t.Helper()
	tr, err := NewGossipTransport(ctx, GossipOptions{
		ListenAddrs: []string{"/ip4/127.0.0.1/tcp/0"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Shutdown() })
	return tr
}

func collect(ctx context.Context, rx Receiver) <-chan Event {
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for {
			ev, err := rx.Next(ctx)
			if err != nil {
				return
			}
			out <- ev
		}
	}()
	return out
}

func TestGossipTransportDelivers(t *testing.T) {
	if testing.Short() {
		t.Skip("starts two libp2p hosts")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := newLoopbackTransport(t, ctx)
	b := newLoopbackTransport(t, ctx)

	txA, rxA, err := a.Join(ctx, "gossip-test", nil)
	require.NoError(t, err)
	_, rxB, err := b.Join(ctx, "gossip-test", []peer.AddrInfo{{ID: a.LocalIdentity(), Addrs: a.host.Addrs()}})
	require.NoError(t, err)

	eventsA, eventsB := collect(ctx, rxA), collect(ctx, rxB)
	want := Encode(Chat{From: a.LocalIdentity(), Text: "over the wire"})

	// The mesh forms asynchronously; publish until b has seen it.
	var got Event
	deadline := time.After(20 * time.Second)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case ev := <-eventsB:
			if ev.Kind == EventPayload {
				got = ev
				break wait
			}
		case <-ticker.C:
			require.NoError(t, txA.Broadcast(ctx, want))
		case <-deadline:
			t.Fatal("payload never arrived")
		}
	}
	assert.Equal(t, a.LocalIdentity(), got.Peer)
	assert.Equal(t, want, got.Payload)

	// a never hears its own publications.
	for {
		select {
		case ev := <-eventsA:
			assert.NotEqual(t, EventPayload, ev.Kind)
			continue
		case <-time.After(200 * time.Millisecond):
		}
		break
	}

	// Closing ends b's stream.
	require.NoError(t, rxB.Close())
	closed := time.After(waitFor)
drain:
	for {
		select {
		case _, ok := <-eventsB:
			if !ok {
				break drain
			}
		case <-closed:
			t.Fatal("stream did not end after Close")
		}
	}

	assert.Len(t, a.Addrs(), len(a.host.Addrs()))
	require.NoError(t, a.Shutdown())
	assert.NoError(t, a.Shutdown())
}
