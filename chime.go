package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const (
	chimeTone       = "tone"
	chimeSampleRate = beep.SampleRate(44100)
	toneFrequency   = 880.0
	toneDuration    = 150 * time.Millisecond
	toneVolume      = 0.3
)

// Chime plays a short sound when a chat message arrives.
type Chime struct {
	audio  []byte
	format string

	speakerInitOnce sync.Once
	speakerInitErr  error
	warnOnce        sync.Once
}

// NewChime creates a chime from source: "tone" for a generated beep, or the
// path of a .wav or .mp3 file.
func NewChime(source string) (*Chime, error) {
	if source == chimeTone {
		return &Chime{}, nil
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".")
	if format != "wav" && format != "mp3" {
		return nil, fmt.Errorf("unsupported chime format %q (want tone, .wav or .mp3)", source)
	}
	audio, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read chime: %w", err)
	}
	return &Chime{audio: audio, format: format}, nil
}

// Ring starts playback and returns immediately.
func (c *Chime) Ring() {
	c.speakerInitOnce.Do(func() {
		c.speakerInitErr = speaker.Init(chimeSampleRate, chimeSampleRate.N(time.Second/10))
	})
	if c.speakerInitErr != nil {
		c.warnOnce.Do(func() {
			log.Printf("Chime disabled: failed to initialise speaker: %v", c.speakerInitErr)
		})
		return
	}

	s, err := c.streamer()
	if err != nil {
		log.Printf("Failed to play chime: %v", err)
		return
	}
	speaker.Play(s)
}

func (c *Chime) streamer() (beep.Streamer, error) {
	if c.audio == nil {
		return toneStreamer(chimeSampleRate, toneFrequency, toneDuration), nil
	}

	reader := io.NopCloser(bytes.NewReader(c.audio))

	var streamer beep.StreamSeekCloser
	var format beep.Format
	var err error

	switch c.format {
	case "mp3":
		streamer, format, err = mp3.Decode(reader)
	case "wav":
		streamer, format, err = wav.Decode(reader)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", c.format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}

	resampled := beep.Resample(4, format.SampleRate, chimeSampleRate, streamer)
	return beep.Seq(resampled, beep.Callback(func() {
		streamer.Close()
	})), nil
}

// toneStreamer generates a sine tone with a linear fade-out.
func toneStreamer(sr beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	total := sr.N(d)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		if pos >= total {
			return 0, false
		}
		for i := range samples {
			if pos >= total {
				break
			}
			amp := toneVolume * (1 - float64(pos)/float64(total))
			v := amp * math.Sin(2*math.Pi*freq*float64(pos)/float64(sr))
			samples[i][0], samples[i][1] = v, v
			pos++
			n++
		}
		return n, true
	})
}

// chimeDisplay rings for every incoming chat message.
type chimeDisplay struct {
	Display
	chime *Chime
}

func (d chimeDisplay) Show(e Entry) {
	d.Display.Show(e)
	if e.Kind == EntryChat {
		d.chime.Ring()
	}
}
