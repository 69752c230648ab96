package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/calldrill/calldrill/internal/scenario"
)

// Peak amplitude of the noise bed per intensity level, in dBFS.
var noiseGainDB = map[scenario.NoiseLevel]float64{
	scenario.NoiseLow:    -30,
	scenario.NoiseMedium: -22,
	scenario.NoiseHigh:   -14,
}

// Fixed gain for the synthesized comfort-noise fallback.
const comfortGainDB = -42

// noiseSample is one loaded ambience recording.
type noiseSample struct {
	pcm  []int16
	rate int
}

// NoiseBank holds background ambience beds loaded from a directory of WAV
// files. The bed name is the file name without extension, so the directory
// listing is the set of supported noise types.
type NoiseBank struct {
	beds map[string]noiseSample
}

// LoadNoiseBank reads every WAV file under dir. Files that fail to parse
// are skipped with a warning; a missing or empty directory yields an empty
// bank, which still serves synthesized comfort noise.
func LoadNoiseBank(dir string) *NoiseBank {
	bank := &NoiseBank{beds: make(map[string]noiseSample)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("noise directory unavailable, using comfort noise only", "dir", dir, "error", err)
		return bank
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".wav") {
			continue
		}
		pcm, rate, err := readWAV(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("skipping unreadable noise bed", "file", name, "error", err)
			continue
		}
		bank.beds[strings.TrimSuffix(name, ".wav")] = noiseSample{pcm: pcm, rate: rate}
	}
	slog.Debug("noise bank loaded", "dir", dir, "beds", len(bank.beds))
	return bank
}

// Types lists the loaded bed names.
func (nb *NoiseBank) Types() []string {
	types := make([]string, 0, len(nb.beds))
	for name := range nb.beds {
		types = append(types, name)
	}
	return types
}

// Bed returns a noise bed of exactly durMs at the given sample rate, scaled
// to the level's gain. A bed shorter than the call loops seamlessly; a
// longer one is truncated. When no recording exists for the type, a
// synthesized comfort-noise hum stands in at a low fixed gain so the
// request still succeeds.
func (nb *NoiseBank) Bed(noiseType string, level scenario.NoiseLevel, durMs, rate int) []int16 {
	n := msToSamples(durMs, rate)

	sample, ok := nb.beds[noiseType]
	if !ok || len(sample.pcm) == 0 {
		slog.Debug("no bed for noise type, synthesizing comfort noise", "type", noiseType)
		return comfortNoise(n, rate)
	}

	src := resampleLinear(sample.pcm, sample.rate, rate)
	out := make([]int16, n)
	for i := range out {
		out[i] = src[i%len(src)]
	}
	scaleToPeak(out, dbToAmplitude(noiseGainDB[level]))
	return out
}

// comfortNoise synthesizes a low hum with a touch of deterministic white
// noise, standing in where no recorded ambience exists.
func comfortNoise(n, rate int) []int16 {
	out := make([]int16, n)
	amp := dbToAmplitude(comfortGainDB)
	// xorshift keeps the noise component reproducible.
	state := uint32(0x2545f491)
	for i := range out {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		hum := math.Sin(2 * math.Pi * 120 * float64(i) / float64(rate))
		hiss := (float64(int32(state)) / math.MaxInt32) * 0.3
		out[i] = clampSample((hum + hiss) * amp)
	}
	return out
}

// scaleToPeak scales samples so their peak equals target, attenuating or
// amplifying as needed.
func scaleToPeak(samples []int16, target float64) {
	p := peak(samples)
	if p == 0 {
		return
	}
	factor := target / float64(p)
	for i, s := range samples {
		samples[i] = clampSample(float64(s) * factor)
	}
}

func dbToAmplitude(db float64) float64 {
	return math.MaxInt16 * math.Pow(10, db/20)
}

// readWAV parses a 16-bit PCM WAV file and returns mono samples with the
// source sample rate. Stereo files are averaged down to mono.
func readWAV(path string) ([]int16, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%s: not a RIFF/WAVE file", path)
	}

	var (
		rate     int
		channels int
		bits     int
		pcm      []byte
	)
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("%s: truncated fmt chunk", path)
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return nil, 0, fmt.Errorf("%s: unsupported WAV format %d", path, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			rate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}
		// Chunks are word-aligned.
		off = body + size + size%2
	}

	if rate == 0 || pcm == nil {
		return nil, 0, fmt.Errorf("%s: missing fmt or data chunk", path)
	}
	if bits != 16 {
		return nil, 0, fmt.Errorf("%s: unsupported bit depth %d", path, bits)
	}
	if channels != 1 && channels != 2 {
		return nil, 0, fmt.Errorf("%s: unsupported channel count %d", path, channels)
	}

	frameBytes := 2 * channels
	frames := len(pcm) / frameBytes
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		base := i * frameBytes
		left := int16(binary.LittleEndian.Uint16(pcm[base : base+2]))
		if channels == 1 {
			out[i] = left
			continue
		}
		right := int16(binary.LittleEndian.Uint16(pcm[base+2 : base+4]))
		out[i] = int16((int32(left) + int32(right)) / 2)
	}
	return out, rate, nil
}
