// Package audioio provides microphone capture and speaker playback for stallcam.
//
// Backends:
//   - ffmpeg - production capture/playback via an ffmpeg subprocess
//   - mock   - synthetic audio for CI/testing without hardware
//
// Sources and sinks deal exclusively in raw PCM16 mono chunks; encoding and
// decoding of compressed formats is out of scope for this package.
package audioio

import (
	"math"
	"time"
)

// Chunk is a block of PCM16 audio samples.
type Chunk struct {
	// Samples contains PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate of this chunk in Hz.
	SampleRate int

	// Channels is the number of channels in this chunk.
	Channels int
}

// Bytes returns the raw little-endian bytes of the chunk.
func (c *Chunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// FromBytes populates the chunk from raw PCM16 bytes.
func (c *Chunk) FromBytes(data []byte, sampleRate, channels int) {
	c.SampleRate = sampleRate
	c.Channels = channels
	c.Samples = BytesToSamples(data)
}

// Duration returns the playback duration of this chunk.
func (c *Chunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	seconds := float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
	return time.Duration(seconds * float64(time.Second))
}

// Level returns the normalized loudness of the chunk in [0, 1].
// It is the RMS amplitude relative to full scale.
func (c *Chunk) Level() float64 {
	return Level(c.Samples)
}

// Level returns the normalized RMS amplitude of samples in [0, 1].
func Level(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum/float64(len(samples))) / 32767.0
}

// BytesToSamples converts raw PCM16 little-endian bytes to int16 samples.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts int16 samples to raw PCM16 little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// PCMDuration returns the playback duration of raw PCM16 mono bytes.
func PCMDuration(data []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(data) / 2
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}
