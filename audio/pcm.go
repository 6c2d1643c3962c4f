// Package audio provides the capture and playback half of a voice
// session: PCM16 frame handling, a fixed-cadence recorder, a gapless
// player, and the device constraint layer that binds them to hardware.
package audio

import (
	"encoding/binary"
	"time"
)

// DefaultSampleRate is the wire and playback sample rate in Hz.
const DefaultSampleRate = 24000

// DefaultFrameDuration is the capture cadence: one frame callback per
// this much audio.
const DefaultFrameDuration = 20 * time.Millisecond

// FrameBytes returns the byte length of a mono PCM16 frame covering d
// at the given sample rate.
func FrameBytes(sampleRate int, d time.Duration) int {
	samples := int(time.Duration(sampleRate) * d / time.Second)
	return samples * 2
}

// BytesToSamples reinterprets little-endian PCM16 bytes as 16-bit
// signed samples. A trailing odd byte is dropped.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples
}

// SamplesToBytes converts 16-bit signed samples to little-endian PCM16
// bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:i*2+2], uint16(s))
	}
	return data
}
