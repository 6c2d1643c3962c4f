package audio

import (
	"bytes"
	"io"
	"testing"
)

func TestRateConverterPassthrough(t *testing.T) {
	rc, err := NewRateConverter(24000, 24000)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	in := []byte{0x01, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	out, err := rc.Convert(in)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Errorf("equal rates should pass through, got %v", out)
	}
}

func TestRateConverterDownsample(t *testing.T) {
	rc, err := NewRateConverter(24000, 16000)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// One 20ms frame at 24k. The filter may hold back samples at the
	// start, so only check the output is sane, not its exact length.
	in := make([]byte, FrameBytes(24000, DefaultFrameDuration))
	for i := 0; i < len(in); i += 2 {
		in[i] = byte(i)
	}

	out, err := rc.Convert(in)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(out)%2 != 0 {
		t.Errorf("output length %d is not whole samples", len(out))
	}
	if len(out) > len(in) {
		t.Errorf("downsampling grew the data: %d -> %d bytes", len(in), len(out))
	}
}

func TestResampleSourceSameRate(t *testing.T) {
	in := []byte{1, 0, 2, 0, 3, 0}
	src := io.NopCloser(bytes.NewReader(in))

	wrapped, err := ResampleSource(src, 24000, 24000)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if wrapped != src {
		t.Error("equal rates should return the source unwrapped")
	}

	got, err := io.ReadAll(wrapped)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, in) {
		t.Errorf("got %v, want %v", got, in)
	}
}
