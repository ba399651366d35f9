package transcribe

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrBadChunk marks audio payloads that could not be decoded.
var ErrBadChunk = errors.New("undecodable audio chunk")

// Chunk holds decoded mono float32 samples and their sample rate.
type Chunk struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the chunk length in seconds.
func (c *Chunk) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// DecodeChunk parses a base64-encoded WAV payload into normalized mono
// samples. Data-URL prefixes are tolerated. Stereo input is downmixed.
func DecodeChunk(payload string) (*Chunk, error) {
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrBadChunk, err)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a wav file", ErrBadChunk)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: pcm: %v", ErrBadChunk, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: empty pcm data", ErrBadChunk)
	}

	return fromIntBuffer(buf, int(dec.BitDepth)), nil
}

func fromIntBuffer(buf *audio.IntBuffer, bitDepth int) *Chunk {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(buf.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float32(channels)
	}

	rate := 16000
	if buf.Format != nil && buf.Format.SampleRate > 0 {
		rate = buf.Format.SampleRate
	}
	return &Chunk{Samples: samples, SampleRate: rate}
}
