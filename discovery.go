package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
)

const dialTimeout = 5 * time.Second

// discoveryNotifee dials peers announced over mDNS.
type discoveryNotifee struct {
	ctx  context.Context
	host host.Host
}

func (n *discoveryNotifee) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.host.ID() {
		return
	}
	if n.host.Network().Connectedness(info.ID) == network.Connected {
		return
	}

	log.Printf("Auto-discovered peer: %s", info.ID)
	go func() {
		if err := connectToPeer(n.ctx, n.host, info); err != nil {
			log.Printf("%v", err)
		}
	}()
}

func connectToPeer(ctx context.Context, h host.Host, info peer.AddrInfo) error {
	if info.ID == h.ID() {
		return errors.New("cannot connect to self")
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	log.Printf("Connecting to %s...", info.ID)
	if err := h.Connect(ctx, info); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", info.ID, err)
	}
	log.Printf("Connected to %s", info.ID)
	return nil
}
