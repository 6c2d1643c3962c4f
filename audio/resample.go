package audio

import (
	"fmt"
	"io"

	resampling "github.com/tphakala/go-audio-resampling"
)

// RateConverter converts a stream of mono PCM16 chunks from one sample
// rate to another. Chunks are pushed through Convert in arrival order;
// output length varies with the rate ratio.
type RateConverter struct {
	srcRate   int
	dstRate   int
	resampler resampling.Resampler
}

// NewRateConverter builds a converter between the two rates. When the
// rates match the converter passes data through untouched.
func NewRateConverter(srcRate, dstRate int) (*RateConverter, error) {
	rc := &RateConverter{srcRate: srcRate, dstRate: dstRate}

	if srcRate != dstRate {
		r, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcRate),
			OutputRate: float64(dstRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("create resampler %d->%d: %w", srcRate, dstRate, err)
		}
		rc.resampler = r
	}

	return rc, nil
}

// Convert resamples one PCM16 chunk (little-endian bytes).
func (rc *RateConverter) Convert(pcm []byte) ([]byte, error) {
	if rc.resampler == nil {
		return pcm, nil
	}

	samples := BytesToSamples(pcm)
	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}

	output, err := rc.resampler.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	out := make([]int16, len(output))
	for i, s := range output {
		switch {
		case s > 1.0:
			out[i] = 32767
		case s < -1.0:
			out[i] = -32768
		default:
			out[i] = int16(s * 32767.0)
		}
	}
	return SamplesToBytes(out), nil
}

// ResampleSource wraps a capture source whose device rate differs from
// the wanted rate, converting on the fly.
func ResampleSource(src Source, srcRate, dstRate int) (Source, error) {
	if srcRate == dstRate {
		return src, nil
	}
	rc, err := NewRateConverter(srcRate, dstRate)
	if err != nil {
		return nil, err
	}
	return &resampledSource{src: src, rc: rc, readBuf: make([]byte, 4096)}, nil
}

type resampledSource struct {
	src      Source
	rc       *RateConverter
	readBuf  []byte
	leftover []byte
}

func (r *resampledSource) Read(p []byte) (int, error) {
	for len(r.leftover) == 0 {
		n, err := r.src.Read(r.readBuf)
		if n > 0 {
			converted, cerr := r.rc.Convert(r.readBuf[:n&^1])
			if cerr != nil {
				return 0, cerr
			}
			r.leftover = converted
		}
		if err != nil {
			if len(r.leftover) > 0 {
				break
			}
			return 0, err
		}
	}

	n := copy(p, r.leftover)
	r.leftover = r.leftover[n:]
	return n, nil
}

func (r *resampledSource) Close() error {
	return r.src.Close()
}

var _ io.ReadCloser = (*resampledSource)(nil)
