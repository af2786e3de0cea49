// Package audio implements the multi-track assembly pipeline — pad, mixdown,
// waveform, WebVTT generation, and title cleaning — with DSP implemented
// directly against precise arithmetic (scale-then-sum, clamp, uint8 peak
// envelope); codec transcoding to/from the canonical 48kHz/64kbps Opus
// wire format is a Codec boundary (no available reference implementation
// ships an Opus codec, so it is kept as a narrow interface rather than
// invented) — surrounding file/key conventions are grounded on
// LumenPrima-tr-engine's internal/storage key layout.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// SampleRate is the canonical PCM sample rate all tracks are decoded to
// and mixed at.
const SampleRate = 48000

// Samples is a mono PCM buffer, one float64 per sample, in [-1, 1].
type Samples []float64

// Track is one participant's decoded, not-yet-padded audio.
type Track struct {
	Index   int
	Start   time.Duration // wall-clock offset of this track's first sample
	Samples Samples
}

// Codec decodes/encodes the wire format (canonical 48kHz/64kbps Opus) to
// and from the PCM representation the DSP in this package operates on.
// No concrete implementation ships here — no available reference
// implementation carries an Opus library, so encoding is left to
// whatever codec the deployment wires in; tests use a PCM passthrough
// codec.
type Codec interface {
	Decode(blob []byte) (Samples, error)
	Encode(samples Samples) ([]byte, error)
}

// PassthroughCodec treats the blob as already being raw PCM. Used by tests
// and by any deployment that stores tracks uncompressed.
type PassthroughCodec struct{}

func (PassthroughCodec) Decode(blob []byte) (Samples, error) {
	samples := make(Samples, len(blob)/8)
	for i := range samples {
		bits := binary.LittleEndian.Uint64(blob[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}
	return samples, nil
}

func (PassthroughCodec) Encode(samples Samples) ([]byte, error) {
	blob := make([]byte, len(samples)*8)
	for i, s := range samples {
		binary.LittleEndian.PutUint64(blob[i*8:i*8+8], math.Float64bits(s))
	}
	return blob, nil
}
