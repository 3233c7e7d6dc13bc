// Package monitor plays the generated baseband through the local audio
// device, with I on the left channel and Q on the right. Useful for a quick
// audible sanity check of a tone script at audio-range sample rates; the
// device rejects rates it cannot open.
package monitor

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
)

// Monitor is an io.Writer sink that converts CU8 I/Q blocks to signed
// 16-bit stereo PCM and queues them for playback. Writes block at the
// device's playback rate, which paces generation to real time.
type Monitor struct {
	player *oto.Player
	pw     *io.PipeWriter
}

// New opens the audio device at the given sample rate and starts playback.
func New(sampleRate int) (*Monitor, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("monitor: open audio device: %w", err)
	}
	<-ready

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()

	return &Monitor{player: player, pw: pw}, nil
}

// Write converts one block of interleaved unsigned 8-bit I/Q samples and
// hands it to the player.
func (m *Monitor) Write(b []byte) (int, error) {
	pcm := make([]byte, len(b)*2)
	for i, s := range b {
		v := (int16(s) - 128) << 8
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	if _, err := m.pw.Write(pcm); err != nil {
		return 0, fmt.Errorf("monitor: queue samples: %w", err)
	}
	return len(b), nil
}

// Close stops playback and releases the device.
func (m *Monitor) Close() error {
	m.pw.Close()
	return m.player.Close()
}
