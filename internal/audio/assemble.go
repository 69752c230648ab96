package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/calldrill/calldrill/internal/scenario"
)

// Artifact is the finished call audio. It is created once per request and
// immutable after creation; ownership passes to the artifact store.
type Artifact struct {
	Data            []byte
	Format          scenario.AudioFormat
	TotalDurationMs int
	ExchangeCount   int
	Diarized        bool
	Metadata        map[string]string
}

// Left and right channel indexes for diarized output.
const (
	channelLeft  = 0
	channelRight = 1
)

// Engine assembles synthesized clips into a finished artifact.
type Engine struct {
	noise  *NoiseBank
	ffmpeg string
}

// NewEngine creates an assembly engine using the given noise bank and ffmpeg
// binary for MP3 export.
func NewEngine(noise *NoiseBank, ffmpegPath string) *Engine {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Engine{noise: noise, ffmpeg: ffmpegPath}
}

// Assemble lays the clips onto a single timeline, applies diarization,
// quality degradation, and the noise overlay, and encodes the result.
//
// Clip i starts at the cumulative end of clip i-1 plus clip i-1's pause, so
// the total duration is exactly the sum of clip durations and pause gaps.
// That figure is computed before degradation and never drifts with
// resampling. Any empty clip, invalid resample target, or encoder failure is
// fatal for the whole request; no partial artifact is returned.
func (e *Engine) Assemble(ctx context.Context, clips []Clip, scn *scenario.CallScenario) (*Artifact, error) {
	if len(clips) == 0 {
		return nil, &ProcessingError{Stage: "layout", Err: fmt.Errorf("no clips to assemble")}
	}

	workRate := 0
	totalMs := 0
	for i, c := range clips {
		if len(c.PCM) == 0 {
			return nil, &ProcessingError{Stage: "layout", Err: fmt.Errorf("clip %d (%s) is empty", i, c.Speaker)}
		}
		if c.SampleRate <= 0 {
			return nil, &ProcessingError{Stage: "layout", Err: fmt.Errorf("clip %d (%s) has invalid sample rate %d", i, c.Speaker, c.SampleRate)}
		}
		if c.SampleRate > workRate {
			workRate = c.SampleRate
		}
		totalMs += c.DurationMs + c.PauseAfterMs
	}

	totalSamples := msToSamples(totalMs, workRate)

	var channels [][]int16
	if scn.Diarized {
		left := make([]int16, totalSamples)
		right := make([]int16, totalSamples)
		assignment := assignChannels(clips)

		offsetMs := 0
		for _, c := range clips {
			dst := left
			if assignment[c.Speaker] == channelRight {
				dst = right
			}
			mixInto(dst, resampleLinear(c.PCM, c.SampleRate, workRate), msToSamples(offsetMs, workRate))
			offsetMs += c.DurationMs + c.PauseAfterMs
		}
		channels = [][]int16{left, right}
	} else {
		mono := make([]int16, totalSamples)
		offsetMs := 0
		for _, c := range clips {
			mixInto(mono, resampleLinear(c.PCM, c.SampleRate, workRate), msToSamples(offsetMs, workRate))
			offsetMs += c.DurationMs + c.PauseAfterMs
		}
		channels = [][]int16{mono}
	}

	// Quality degradation applies identically in both channel modes.
	outRate, err := degrade(channels, workRate, scn.AudioQuality)
	if err != nil {
		return nil, &ProcessingError{Stage: "degrade", Err: err}
	}

	// The noise sum is accumulated wide and normalized before quantizing, so
	// the final output never clips regardless of noise level or type.
	if scn.BackgroundNoise.Type != "" {
		bed := e.noise.Bed(scn.BackgroundNoise.Type, scn.BackgroundNoise.Level, totalMs, outRate)
		overlayNormalized(channels, bed, math.MaxInt16)
	} else {
		normalizePeak(channels, math.MaxInt16)
	}

	data, err := e.encode(ctx, channels, outRate, scn.AudioFormat)
	if err != nil {
		return nil, &ProcessingError{Stage: "export", Err: err}
	}

	slog.Info("call assembled",
		"duration_ms", totalMs,
		"exchanges", len(clips),
		"diarized", scn.Diarized,
		"quality", scn.AudioQuality,
		"format", scn.AudioFormat)

	return &Artifact{
		Data:            data,
		Format:          scn.AudioFormat,
		TotalDurationMs: totalMs,
		ExchangeCount:   len(clips),
		Diarized:        scn.Diarized,
	}, nil
}

// assignChannels maps speaker roles onto the two diarization channels.
//
// The rule carries no call-type special-casing: the first-introduced speaker
// takes the left channel, the second takes the right, and any later role
// inherits the channel of the role that handed off to it — the speaker of
// the utterance immediately preceding its first line. A transferred-in nurse
// therefore takes over the dispatcher's channel and signs opposite the
// caller, and a conferenced-in translator takes the channel of the
// dispatcher that brought it on the line.
func assignChannels(clips []Clip) map[scenario.Role]int {
	assignment := make(map[scenario.Role]int, 2)
	introduced := 0
	var prev scenario.Role

	for _, c := range clips {
		if _, seen := assignment[c.Speaker]; !seen {
			switch introduced {
			case 0:
				assignment[c.Speaker] = channelLeft
			case 1:
				assignment[c.Speaker] = channelRight
			default:
				assignment[c.Speaker] = assignment[prev]
			}
			introduced++
		}
		prev = c.Speaker
	}
	return assignment
}
