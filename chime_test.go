package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countSamples(t *testing.T, s beep.Streamer) int {
	t.Helper()
	buf := make([][2]float64, 512)
	total := 0
	for i := 0; i < 10_000; i++ {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			return total
		}
	}
	t.Fatal("streamer never drained")
	return 0
}

func TestToneStreamer(t *testing.T) {
	s := toneStreamer(chimeSampleRate, toneFrequency, toneDuration)

	buf := make([][2]float64, 256)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, len(buf), n)
	for _, sample := range buf {
		assert.LessOrEqual(t, sample[0], toneVolume)
		assert.GreaterOrEqual(t, sample[0], -toneVolume)
		assert.Equal(t, sample[0], sample[1])
	}

	assert.Equal(t, chimeSampleRate.N(toneDuration), n+countSamples(t, s))
}

func TestNewChimeSources(t *testing.T) {
	c, err := NewChime(chimeTone)
	require.NoError(t, err)
	s, err := c.streamer()
	require.NoError(t, err)
	assert.Equal(t, chimeSampleRate.N(toneDuration), countSamples(t, s))

	_, err = NewChime("ding.ogg")
	assert.ErrorContains(t, err, "unsupported chime format")

	_, err = NewChime(filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorContains(t, err, "failed to read chime")
}

func TestChimeFromWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ding.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, toneStreamer(format.SampleRate, 440, 100*time.Millisecond), format))
	require.NoError(t, f.Close())

	c, err := NewChime(path)
	require.NoError(t, err)
	s, err := c.streamer()
	require.NoError(t, err)

	// Resampled to the speaker rate.
	assert.InDelta(t, chimeSampleRate.N(100*time.Millisecond), countSamples(t, s), 200)
}

func TestChimeDisplayForwards(t *testing.T) {
	inner := &recordingDisplay{}
	d := withChime(inner, nil)
	assert.Same(t, inner, d)

	// Non-chat entries never touch the speaker.
	d = withChime(inner, &Chime{})
	d.Show(notice("bob joined"))
	assert.Equal(t, []string{"bob joined"}, inner.texts())
}
