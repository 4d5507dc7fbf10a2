package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	mdns "github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/multiformats/go-multiaddr"
)

// receiveBuffer is the number of inbound events queued ahead of Next.
const receiveBuffer = 32

// GossipOptions configures a GossipTransport.
type GossipOptions struct {
	// Identity is the host key; nil generates an ephemeral one.
	Identity    crypto.PrivKey
	ListenAddrs []string
	Discovery   bool
	ServiceTag  string
}

// GossipTransport is a Transport backed by a libp2p host and GossipSub.
type GossipTransport struct {
	host   host.Host
	ps     *pubsub.PubSub
	mdns   mdns.Service
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	topics []*pubsub.Topic

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewGossipTransport starts a libp2p host and a GossipSub router on it.
func NewGossipTransport(ctx context.Context, opts GossipOptions) (*GossipTransport, error) {
	hostOpts := []libp2p.Option{libp2p.ListenAddrStrings(opts.ListenAddrs...)}
	if opts.Identity != nil {
		hostOpts = append(hostOpts, libp2p.Identity(opts.Identity))
	}

	h, err := libp2p.New(hostOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start libp2p host: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	ps, err := pubsub.NewGossipSub(ctx, h,
		pubsub.WithMessageSigning(true),
		pubsub.WithStrictSignatureVerification(true),
	)
	if err != nil {
		cancel()
		h.Close()
		return nil, fmt.Errorf("failed to start gossipsub: %w", err)
	}

	t := &GossipTransport{
		host:   h,
		ps:     ps,
		ctx:    ctx,
		cancel: cancel,
	}

	if opts.Discovery {
		svc := mdns.NewMdnsService(h, opts.ServiceTag, &discoveryNotifee{ctx: ctx, host: h})
		if err := svc.Start(); err != nil {
			log.Printf("Warning: Failed to start mDNS discovery: %v", err)
			log.Printf("Continuing without auto-discovery. Use -peer <multiaddr> to add peers manually.")
		} else {
			t.mdns = svc
			log.Printf("Auto-discovery enabled (mDNS service %q)", opts.ServiceTag)
		}
	} else {
		log.Printf("Auto-discovery disabled")
	}

	log.Printf("Node listening on %v (ID: %s)", h.Addrs(), h.ID())
	return t, nil
}

// LocalIdentity returns the host's peer ID.
func (t *GossipTransport) LocalIdentity() peer.ID {
	return t.host.ID()
}

// Addrs returns the host's addresses in the /.../p2p/<id> form accepted by -peer.
func (t *GossipTransport) Addrs() []multiaddr.Multiaddr {
	info := peer.AddrInfo{ID: t.host.ID(), Addrs: t.host.Addrs()}
	addrs, err := peer.AddrInfoToP2pAddrs(&info)
	if err != nil {
		log.Printf("Failed to build peer addresses: %v", err)
		return nil
	}
	return addrs
}

// Join joins the pubsub topic and dials the known peers. A peer that cannot be
// dialled is logged and skipped.
func (t *GossipTransport) Join(ctx context.Context, name string, known []peer.AddrInfo) (Sender, Receiver, error) {
	topic, err := t.ps.Join(name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to join topic: %w", err)
	}

	sub, err := topic.Subscribe()
	if err != nil {
		topic.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	events, err := topic.EventHandler()
	if err != nil {
		sub.Cancel()
		topic.Close()
		return nil, nil, fmt.Errorf("failed to watch topic peers: %w", err)
	}

	t.mu.Lock()
	t.topics = append(t.topics, topic)
	t.mu.Unlock()

	for _, info := range known {
		if err := connectToPeer(ctx, t.host, info); err != nil {
			log.Printf("%v", err)
		}
	}

	return &gossipSender{topic: topic}, newGossipReceiver(t.ctx, t.host.ID(), sub, events), nil
}

// Shutdown closes joined topics, discovery and the host.
func (t *GossipTransport) Shutdown() error {
	t.shutdownOnce.Do(func() {
		t.mu.Lock()
		topics := t.topics
		t.topics = nil
		t.mu.Unlock()

		for _, topic := range topics {
			if err := topic.Close(); err != nil {
				log.Printf("Failed to close topic %s: %v", topic.String(), err)
			}
		}
		if t.mdns != nil {
			t.mdns.Close()
		}
		t.cancel()
		t.shutdownErr = t.host.Close()
		log.Println("Transport shut down")
	})
	return t.shutdownErr
}

type gossipSender struct {
	topic *pubsub.Topic
}

func (s *gossipSender) Broadcast(ctx context.Context, payload []byte) error {
	return s.topic.Publish(ctx, payload)
}

// gossipReceiver merges a subscription and the topic's peer events into one
// stream.
type gossipReceiver struct {
	self   peer.ID
	sub    *pubsub.Subscription
	peers  *pubsub.TopicEventHandler
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc

	once sync.Once
	done chan struct{}
	err  error
}

func newGossipReceiver(ctx context.Context, self peer.ID, sub *pubsub.Subscription, peers *pubsub.TopicEventHandler) *gossipReceiver {
	ctx, cancel := context.WithCancel(ctx)
	r := &gossipReceiver{
		self:   self,
		sub:    sub,
		peers:  peers,
		events: make(chan Event, receiveBuffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go r.pumpMessages()
	go r.pumpPeerEvents()
	return r
}

func (r *gossipReceiver) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-r.events:
		return ev, nil
	case <-r.done:
		if r.err != nil {
			return Event{}, r.err
		}
		return Event{}, ErrTopicClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (r *gossipReceiver) Close() error {
	r.cancel()
	r.sub.Cancel()
	r.peers.Cancel()
	r.finish(nil)
	return nil
}

// finish ends the stream; a nil err means a graceful close.
func (r *gossipReceiver) finish(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

func (r *gossipReceiver) deliver(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *gossipReceiver) pumpMessages() {
	for {
		msg, err := r.sub.Next(r.ctx)
		if err != nil {
			if errors.Is(err, pubsub.ErrSubscriptionCancelled) || r.ctx.Err() != nil {
				r.finish(nil)
			} else {
				r.finish(err)
			}
			return
		}
		// Our own publications are delivered locally as well.
		if msg.ReceivedFrom == r.self {
			continue
		}
		if !r.deliver(Event{Kind: EventPayload, Peer: msg.ReceivedFrom, Payload: msg.Data}) {
			return
		}
	}
}

func (r *gossipReceiver) pumpPeerEvents() {
	for {
		pe, err := r.peers.NextPeerEvent(r.ctx)
		if err != nil {
			// The subscription pump decides how the stream ends.
			return
		}
		kind := EventPeerJoined
		if pe.Type == pubsub.PeerLeave {
			kind = EventPeerLeft
		}
		if !r.deliver(Event{Kind: kind, Peer: pe.Peer}) {
			return
		}
	}
}
