package notify

import (
	"encoding/binary"
	"io"
	"math"
	"os"
)

// The kitchen bell: two sine tones, 800Hz struck immediately and 1000Hz
// struck 150ms later, each 500ms long with a sharp attack and an
// exponential decay.

const (
	sampleRate = 44100

	toneHzLow   = 800.0
	toneHzHigh  = 1000.0
	toneSeconds = 0.5
	toneOffset  = 0.150

	attackSeconds = 0.01
	peakGain      = 0.3
	floorGain     = 0.01
)

// ChimeWAV synthesizes the chime as a 16-bit mono PCM WAV.
func ChimeWAV() []byte {
	total := int((toneOffset + toneSeconds) * sampleRate)
	samples := make([]float64, total)

	mixTone(samples, toneHzLow, 0)
	mixTone(samples, toneHzHigh, int(toneOffset*sampleRate))

	return encodeWAV(samples)
}

func mixTone(samples []float64, freq float64, offset int) {
	n := int(toneSeconds * sampleRate)
	attack := int(attackSeconds * sampleRate)
	// Per-sample multiplier that takes the gain from peak to floor over
	// the tone's tail.
	decay := math.Pow(floorGain/peakGain, 1.0/float64(n-attack))

	gain := 0.0
	for i := 0; i < n && offset+i < len(samples); i++ {
		if i < attack {
			gain = peakGain * float64(i) / float64(attack)
		} else {
			gain *= decay
		}
		samples[offset+i] += gain * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
}

func encodeWAV(samples []float64) []byte {
	dataLen := len(samples) * 2
	buf := make([]byte, 0, 44+dataLen)

	le := binary.LittleEndian
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	le.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	le.PutUint32(header[16:20], 16)
	le.PutUint16(header[20:22], 1) // PCM
	le.PutUint16(header[22:24], 1) // mono
	le.PutUint32(header[24:28], sampleRate)
	le.PutUint32(header[28:32], sampleRate*2)
	le.PutUint16(header[32:34], 2)
	le.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	le.PutUint32(header[40:44], uint32(dataLen))
	buf = append(buf, header...)

	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * math.MaxInt16)
		buf = append(buf, byte(v), byte(v>>8))
	}
	return buf
}

// WriterPlayer writes the WAV stream to an audio sink, typically a
// sound device or a FIFO an audio daemon reads.
type WriterPlayer struct {
	W io.Writer
}

func (p WriterPlayer) Play(wav []byte) error {
	_, err := p.W.Write(wav)
	return err
}

// SinkPlayer opens the configured path per chime so a missing or
// hot-plugged device never wedges the daemon.
type SinkPlayer struct {
	Path string
}

func (p SinkPlayer) Play(wav []byte) error {
	f, err := os.OpenFile(p.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(wav)
	return err
}
