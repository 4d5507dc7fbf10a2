package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// EntryKind tells a Display how to present an entry.
type EntryKind int

const (
	EntryChat EntryKind = iota
	EntryAnnounce
	EntryJoined
	EntryLeft
	EntryNotice
	EntryError
)

// Entry is one rendered line of session output.
type Entry struct {
	Kind EntryKind
	// Peer and Name are set for entries about a remote peer.
	Peer peer.ID
	Name string
	// Body is the chat text alone; Text is the full rendered line.
	Body string
	Text string
	At   time.Time
}

// Display receives session output. Implementations must be safe for
// concurrent use: the receive loop and the dispatch loop both write to it.
type Display interface {
	Show(Entry)
}

// consoleDisplay prints entries as plain lines.
type consoleDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleDisplay(w io.Writer) *consoleDisplay {
	return &consoleDisplay{w: w}
}

func (d *consoleDisplay) Show(e Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch e.Kind {
	case EntryError:
		fmt.Fprintf(d.w, "! %s\n", e.Text)
	case EntryChat:
		fmt.Fprintln(d.w, e.Text)
	default:
		fmt.Fprintf(d.w, "> %s\n", e.Text)
	}
}

func notice(format string, args ...any) Entry {
	return Entry{Kind: EntryNotice, Text: fmt.Sprintf(format, args...), At: time.Now()}
}

func errorEntry(format string, args ...any) Entry {
	return Entry{Kind: EntryError, Text: fmt.Sprintf(format, args...), At: time.Now()}
}
