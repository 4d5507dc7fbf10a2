package main

import (
	"fmt"
	"strings"

	"github.com/libp2p/go-libp2p/core/peer"
)

// shortIDLen is the number of trailing characters of a peer ID shown when no
// display name is known. Ed25519 peer IDs share their leading characters, so
// the tail is the distinguishing part.
const shortIDLen = 8

// AnnouncePolicy decides what a repeated announcement from the same identity
// does to the directory.
type AnnouncePolicy int

const (
	// AnnounceOverwrite lets the latest announcement win.
	AnnounceOverwrite AnnouncePolicy = iota
	// AnnounceKeepFirst ignores announcements for identities already known.
	AnnounceKeepFirst
)

func (p AnnouncePolicy) String() string {
	switch p {
	case AnnounceOverwrite:
		return "overwrite"
	case AnnounceKeepFirst:
		return "keep-first"
	default:
		return fmt.Sprintf("AnnouncePolicy(%d)", int(p))
	}
}

// ParseAnnouncePolicy parses the -announce-policy flag value.
func ParseAnnouncePolicy(s string) (AnnouncePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return AnnounceOverwrite, nil
	case "keep-first":
		return AnnounceKeepFirst, nil
	default:
		return 0, fmt.Errorf("unknown announce policy %q (want overwrite or keep-first)", s)
	}
}

// PeerDirectory maps peer identities to self-reported display names.
//
// It is not safe for concurrent use; the ReceiveLoop that owns it is its only
// reader and writer.
type PeerDirectory struct {
	policy AnnouncePolicy
	names  map[peer.ID]string
}

// NewPeerDirectory creates an empty directory.
func NewPeerDirectory(policy AnnouncePolicy) *PeerDirectory {
	return &PeerDirectory{
		policy: policy,
		names:  make(map[peer.ID]string),
	}
}

// RecordAnnouncement stores name for id. applied is false only when the
// policy rejected the announcement; changed reports whether the resolved name
// for id is different afterwards.
func (d *PeerDirectory) RecordAnnouncement(id peer.ID, name string) (applied, changed bool) {
	prev, known := d.names[id]
	if known && d.policy == AnnounceKeepFirst {
		return false, false
	}
	d.names[id] = name
	return true, !known || prev != name
}

// Resolve returns the announced name for id, or its short form.
func (d *PeerDirectory) Resolve(id peer.ID) string {
	if name, ok := d.names[id]; ok {
		return name
	}
	return shortID(id)
}

// Len returns the number of announced identities.
func (d *PeerDirectory) Len() int {
	return len(d.names)
}

// shortID renders a peer ID for display when no name is known.
func shortID(id peer.ID) string {
	s := id.String()
	if s == "" {
		return "<unknown>"
	}
	if len(s) > shortIDLen {
		return s[len(s)-shortIDLen:]
	}
	return s
}
