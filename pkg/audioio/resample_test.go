package audioio

import (
	"math"
	"testing"
)

func TestResampleSameRate(t *testing.T) {
	in := []int16{1, 2, 3, 4, 5}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d: expected %d, got %d", i, in[i], out[i])
		}
	}

	// Output must be a copy, not an alias.
	out[0] = 99
	if in[0] == 99 {
		t.Error("resample output aliases input")
	}
}

func TestResampleUpsample(t *testing.T) {
	// 16kHz -> 24kHz should produce 1.5x the samples.
	in := make([]int16, 320)
	for i := range in {
		in[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	out := Resample(in, 16000, 24000)
	if len(out) != 480 {
		t.Fatalf("expected 480 samples, got %d", len(out))
	}

	// The tone's loudness should survive resampling.
	inLevel := Level(in)
	outLevel := Level(out)
	if math.Abs(inLevel-outLevel) > 0.05 {
		t.Errorf("level changed too much: in=%f out=%f", inLevel, outLevel)
	}
}

func TestResampleDownsample(t *testing.T) {
	in := make([]int16, 480)
	for i := range in {
		in[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/24000))
	}
	out := Resample(in, 24000, 16000)
	if len(out) != 320 {
		t.Fatalf("expected 320 samples, got %d", len(out))
	}
}

func TestResampleEmpty(t *testing.T) {
	if out := Resample(nil, 16000, 24000); len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestResampleBytes(t *testing.T) {
	in := SamplesToBytes(make([]int16, 320))
	out := ResampleBytes(in, 16000, 24000)
	if len(out) != 960 {
		t.Errorf("expected 960 bytes, got %d", len(out))
	}
}
