// Package audio implements the call assembly engine: timeline pacing,
// speaker diarization, line-quality degradation, background noise overlay,
// and export into the final container.
//
// Everything operates on mono or per-channel []int16 PCM. Clips arrive
// independently synthesized at arbitrary sample rates and leave as a single
// coherent signal.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hajimehoshi/go-mp3"

	"github.com/calldrill/calldrill/internal/scenario"
)

// Clip is one utterance's synthesized audio. Clips are created by the
// synthesis orchestrator, exclusively owned by the assembly engine, and
// discarded after mixing.
type Clip struct {
	PCM          []int16 // mono samples
	SampleRate   int
	Speaker      scenario.Role
	DurationMs   int
	PauseAfterMs int
}

// ProcessingError reports a fatal assembly or export failure. No partial
// artifact is ever produced once one is raised.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("audio processing failed (%s): %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// DecodeMP3 decodes MP3 bytes into a mono clip for the given speaker.
// go-mp3 always emits 16-bit little-endian stereo; the channels are averaged
// down to mono.
func DecodeMP3(data []byte, speaker scenario.Role) (Clip, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Clip{}, fmt.Errorf("decoding mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("reading mp3 frames: %w", err)
	}
	if len(raw) == 0 || len(raw)%4 != 0 {
		return Clip{}, fmt.Errorf("unexpected decoded length %d", len(raw))
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}

	// Stereo interleaved → mono.
	mono := make([]int16, len(samples)/2)
	for i := range mono {
		l := int(samples[2*i])
		r := int(samples[2*i+1])
		mono[i] = int16((l + r) / 2)
	}

	rate := dec.SampleRate()
	return Clip{
		PCM:        mono,
		SampleRate: rate,
		Speaker:    speaker,
		DurationMs: len(mono) * 1000 / rate,
	}, nil
}

// resampleLinear converts samples between rates with linear interpolation.
// Equal rates return a copy, which keeps repeated degradation to the same
// target rate a no-op on length.
func resampleLinear(in []int16, inRate, outRate int) []int16 {
	if inRate == outRate || len(in) == 0 {
		return append([]int16(nil), in...)
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(math.Round(float64(len(in)) * ratio))
	if outLen <= 1 {
		return []int16{}
	}
	out := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(math.Floor(srcPos))
		i1 := i0 + 1
		if i0 >= len(in) {
			i0 = len(in) - 1
		}
		if i1 >= len(in) {
			i1 = len(in) - 1
		}
		f := srcPos - float64(i0)
		out[i] = clampSample(float64(in[i0])*(1.0-f) + float64(in[i1])*f)
	}
	return out
}

// mixInto adds src into dst starting at offset, saturating at int16 range.
func mixInto(dst, src []int16, offset int) {
	for i, s := range src {
		pos := offset + i
		if pos < 0 || pos >= len(dst) {
			break
		}
		dst[pos] = clampSample(float64(int(dst[pos]) + int(s)))
	}
}

// overlayNormalized mixes bed under every channel, accumulating in 32-bit
// space so the sum never saturates before normalization. The combined signal
// is scaled down to keep its peak within limit and quantized back in place.
func overlayNormalized(channels [][]int16, bed []int16, limit int) {
	sums := make([][]int32, len(channels))
	var max int32
	for ci, ch := range channels {
		s := make([]int32, len(ch))
		for i := range ch {
			v := int32(ch[i])
			if i < len(bed) {
				v += int32(bed[i])
			}
			s[i] = v
			a := v
			if a < 0 {
				a = -a
			}
			if a > max {
				max = a
			}
		}
		sums[ci] = s
	}

	gain := 1.0
	if max > int32(limit) {
		gain = float64(limit) / float64(max)
	}
	for ci, s := range sums {
		for i, v := range s {
			channels[ci][i] = clampSample(float64(v) * gain)
		}
	}
}

// peak returns the largest absolute sample value.
func peak(samples []int16) int {
	max := 0
	for _, s := range samples {
		a := int(s)
		if a < 0 {
			a = -a
		}
		if a > max {
			max = a
		}
	}
	return max
}

// normalizePeak scales channels down so no sample exceeds limit. It only ever
// attenuates; quiet audio is left alone.
func normalizePeak(channels [][]int16, limit int) {
	max := 0
	for _, ch := range channels {
		if p := peak(ch); p > max {
			max = p
		}
	}
	if max <= limit || max == 0 {
		return
	}
	gain := float64(limit) / float64(max)
	for _, ch := range channels {
		for i := range ch {
			ch[i] = clampSample(float64(ch[i]) * gain)
		}
	}
}

func clampSample(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func msToSamples(ms, rate int) int {
	return ms * rate / 1000
}
