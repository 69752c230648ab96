package audio

import (
	"fmt"
	"math"

	"github.com/calldrill/calldrill/internal/scenario"
)

// Target sample rate per quality level.
var qualityRates = map[scenario.QualityLevel]int{
	scenario.QualityHigh:    44100,
	scenario.QualityMedium:  24000,
	scenario.QualityLow:     16000,
	scenario.QualityVeryLow: 8000,
}

// band describes the band-limit applied after resampling. A zero cutoff
// disables that side of the filter.
type band struct {
	highPassHz float64
	lowPassHz  float64
}

// Lower qualities approach the classic telephone band. High quality passes
// audio through untouched.
var qualityBands = map[scenario.QualityLevel]band{
	scenario.QualityHigh:    {},
	scenario.QualityMedium:  {lowPassHz: 10000},
	scenario.QualityLow:     {highPassHz: 250, lowPassHz: 3800},
	scenario.QualityVeryLow: {highPassHz: 300, lowPassHz: 3400},
}

// degrade resamples every channel in place to the quality level's target
// rate and band-limits it. It returns the new sample rate. High quality at
// the native rate is a no-op, so degrading twice changes nothing.
func degrade(channels [][]int16, rate int, quality scenario.QualityLevel) (int, error) {
	target, ok := qualityRates[quality]
	if !ok {
		return 0, fmt.Errorf("unknown quality level %q", quality)
	}
	if target > rate {
		// Degradation never upsamples.
		target = rate
	}
	b := qualityBands[quality]
	for i, ch := range channels {
		ch = resampleLinear(ch, rate, target)
		if b.highPassHz > 0 {
			highPass(ch, target, b.highPassHz)
		}
		if b.lowPassHz > 0 {
			lowPass(ch, target, b.lowPassHz)
		}
		channels[i] = ch
	}
	return target, nil
}

// lowPass runs a one-pole low-pass filter over samples in place.
func lowPass(samples []int16, rate int, cutoffHz float64) {
	if len(samples) == 0 || cutoffHz >= float64(rate)/2 {
		return
	}
	rc := 1 / (2 * math.Pi * cutoffHz)
	dt := 1 / float64(rate)
	alpha := dt / (rc + dt)

	prev := float64(samples[0])
	for i := 1; i < len(samples); i++ {
		prev += alpha * (float64(samples[i]) - prev)
		samples[i] = clampSample(prev)
	}
}

// highPass runs a one-pole high-pass filter over samples in place.
func highPass(samples []int16, rate int, cutoffHz float64) {
	if len(samples) == 0 {
		return
	}
	rc := 1 / (2 * math.Pi * cutoffHz)
	dt := 1 / float64(rate)
	alpha := rc / (rc + dt)

	prevIn := float64(samples[0])
	prevOut := 0.0
	samples[0] = 0
	for i := 1; i < len(samples); i++ {
		in := float64(samples[i])
		prevOut = alpha * (prevOut + in - prevIn)
		prevIn = in
		samples[i] = clampSample(prevOut)
	}
}
