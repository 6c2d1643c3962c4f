package audio

import (
	"testing"
	"time"
)

func TestBytesToSamples(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []int16
	}{
		{name: "empty", data: nil, want: []int16{}},
		{name: "one", data: []byte{0x01, 0x00}, want: []int16{1}},
		{name: "negative one", data: []byte{0xFF, 0xFF}, want: []int16{-1}},
		{name: "min and max", data: []byte{0x00, 0x80, 0xFF, 0x7F}, want: []int16{-32768, 32767}},
		{name: "odd trailing byte dropped", data: []byte{0x01, 0x00, 0x7F}, want: []int16{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BytesToSamples(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("len=%d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSamplesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 12345, -12345, 32767, -32768}
	got := BytesToSamples(SamplesToBytes(samples))
	if len(got) != len(samples) {
		t.Fatalf("len=%d, want %d", len(got), len(samples))
	}
	for i := range got {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestFrameBytes(t *testing.T) {
	tests := []struct {
		name string
		rate int
		dur  time.Duration
		want int
	}{
		{name: "20ms at 24k", rate: 24000, dur: 20 * time.Millisecond, want: 960},
		{name: "100ms at 16k", rate: 16000, dur: 100 * time.Millisecond, want: 3200},
		{name: "10ms at 48k", rate: 48000, dur: 10 * time.Millisecond, want: 960},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FrameBytes(tt.rate, tt.dur); got != tt.want {
				t.Errorf("FrameBytes(%d, %v) = %d, want %d", tt.rate, tt.dur, got, tt.want)
			}
		})
	}
}
