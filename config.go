package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

const (
	defaultTopic      = "gossipchat"
	defaultListenAddr = "/ip4/0.0.0.0/tcp/0"
	mdnsServiceTag    = "gossipchat-mdns"
)

// Config holds everything a node needs to start.
type Config struct {
	Name           string
	Topic          string
	Peers          []string
	ListenAddrs    []string
	NoDiscovery    bool
	KeysDir        string
	AnnouncePolicy string
	TUI            bool
	Chime          string
	LogFile        string
}

// defaultName picks a display name when -name is not given.
func defaultName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "anonymous"
}

// Validate normalises c and checks it for errors.
func (c *Config) Validate() error {
	c.Name = strings.ToValidUTF8(strings.TrimSpace(c.Name), "�")
	if c.Name == "" {
		return errors.New("name must not be empty")
	}
	c.Topic = strings.TrimSpace(c.Topic)
	if c.Topic == "" {
		return errors.New("topic must not be empty")
	}
	if len(c.ListenAddrs) == 0 {
		c.ListenAddrs = []string{defaultListenAddr}
	}
	for _, addr := range c.ListenAddrs {
		if _, err := multiaddr.NewMultiaddr(addr); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", addr, err)
		}
	}
	if _, err := c.KnownPeers(); err != nil {
		return err
	}
	if _, err := ParseAnnouncePolicy(c.AnnouncePolicy); err != nil {
		return err
	}
	return nil
}

// KnownPeers parses the -peer multiaddrs.
func (c *Config) KnownPeers() ([]peer.AddrInfo, error) {
	infos := make([]peer.AddrInfo, 0, len(c.Peers))
	for _, addr := range c.Peers {
		info, err := peer.AddrInfoFromString(strings.TrimSpace(addr))
		if err != nil {
			return nil, fmt.Errorf("invalid peer address %q: %w", addr, err)
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// Policy returns the parsed announce policy.
func (c *Config) Policy() AnnouncePolicy {
	p, err := ParseAnnouncePolicy(c.AnnouncePolicy)
	if err != nil {
		return AnnounceOverwrite
	}
	return p
}
