package audio

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/calldrill/calldrill/internal/scenario"
)

// toneClip builds a constant-amplitude clip of the given duration.
func toneClip(speaker scenario.Role, durMs, pauseMs, rate int, amp int16) Clip {
	pcm := make([]int16, msToSamples(durMs, rate))
	for i := range pcm {
		pcm[i] = amp
	}
	return Clip{PCM: pcm, SampleRate: rate, Speaker: speaker, DurationMs: durMs, PauseAfterMs: pauseMs}
}

func assemblyScenario() *scenario.CallScenario {
	return &scenario.CallScenario{
		CallType:     scenario.Emergency,
		AudioFormat:  scenario.FormatWAV,
		AudioQuality: scenario.QualityHigh,
	}
}

func testEngine() *Engine {
	return NewEngine(LoadNoiseBank("testdata/does-not-exist"), "ffmpeg")
}

func TestAssembleTotalDuration(t *testing.T) {
	clips := []Clip{
		toneClip(scenario.RoleDispatcher, 1000, 500, 8000, 1000),
		toneClip(scenario.RoleCaller, 1500, 800, 8000, 1000),
		toneClip(scenario.RoleDispatcher, 700, 500, 8000, 1000),
	}

	art, err := testEngine().Assemble(context.Background(), clips, assemblyScenario())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// Total is the exact sum of durations and pauses, trailing pause included.
	want := 1000 + 500 + 1500 + 800 + 700 + 500
	if art.TotalDurationMs != want {
		t.Errorf("TotalDurationMs = %d, want %d", art.TotalDurationMs, want)
	}
	if art.ExchangeCount != 3 {
		t.Errorf("ExchangeCount = %d, want 3", art.ExchangeCount)
	}
	if art.Diarized {
		t.Error("artifact should not be diarized")
	}
	if art.Format != scenario.FormatWAV {
		t.Errorf("Format = %q", art.Format)
	}
	if len(art.Data) == 0 {
		t.Error("empty artifact data")
	}
}

func TestAssembleMixedRates(t *testing.T) {
	// Clips synthesized at different rates land on one coherent timeline.
	clips := []Clip{
		toneClip(scenario.RoleDispatcher, 1000, 200, 22050, 1000),
		toneClip(scenario.RoleCaller, 1000, 200, 44100, 1000),
	}

	art, err := testEngine().Assemble(context.Background(), clips, assemblyScenario())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if art.TotalDurationMs != 2400 {
		t.Errorf("TotalDurationMs = %d, want 2400", art.TotalDurationMs)
	}
}

func TestAssembleRejectsBadClips(t *testing.T) {
	engine := testEngine()
	tests := []struct {
		name  string
		clips []Clip
	}{
		{"no clips", nil},
		{"empty clip", []Clip{{SampleRate: 8000, Speaker: scenario.RoleCaller, DurationMs: 100}}},
		{"zero sample rate", []Clip{{PCM: make([]int16, 10), Speaker: scenario.RoleCaller, DurationMs: 100}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Assemble(context.Background(), tt.clips, assemblyScenario())
			var perr *ProcessingError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ProcessingError, got %v", err)
			}
			if perr.Stage != "layout" {
				t.Errorf("Stage = %q, want layout", perr.Stage)
			}
		})
	}
}

func TestAssembleNoiseOverlayNeverClips(t *testing.T) {
	dir := t.TempDir()
	writeNoiseWAV(t, dir, "traffic.wav", sine(8000, 8000, 100, 20000), 8000)
	engine := NewEngine(LoadNoiseBank(dir), "ffmpeg")

	// A near-full-scale clip plus a high-level bed sums past int16 range, so
	// the overlay has to normalize rather than saturate.
	clips := []Clip{toneClip(scenario.RoleDispatcher, 1000, 0, 8000, 30000)}
	scn := assemblyScenario()
	scn.BackgroundNoise = scenario.BackgroundNoise{Type: "traffic", Level: scenario.NoiseHigh}

	art, err := engine.Assemble(context.Background(), clips, scn)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	samples, _ := decodeWAVMono(t, art.Data)
	pinned := 0
	for _, s := range samples {
		if s == math.MaxInt16 || s == math.MinInt16 {
			pinned++
		}
	}
	// Only the true peaks of the scaled sum may touch full scale; a saturated
	// mix pins the entire waveform.
	if pinned > len(samples)/10 {
		t.Errorf("%d of %d samples pinned at full scale, overlay clipped instead of normalizing", pinned, len(samples))
	}
	if p := peak(samples); p == 0 {
		t.Error("output silent")
	}
}

func TestAssembleTenExchangeDiarized(t *testing.T) {
	const rate = 8000
	clips := make([]Clip, 0, 10)
	for i := 0; i < 10; i++ {
		speaker := scenario.RoleDispatcher
		if i%2 == 1 {
			speaker = scenario.RoleCaller
		}
		clips = append(clips, toneClip(speaker, 500, 0, rate, 8000))
	}
	scn := assemblyScenario()
	scn.Diarized = true

	art, err := testEngine().Assemble(context.Background(), clips, scn)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if art.ExchangeCount != 10 {
		t.Errorf("ExchangeCount = %d, want 10", art.ExchangeCount)
	}
	if art.TotalDurationMs != 5000 {
		t.Errorf("TotalDurationMs = %d, want 5000", art.TotalDurationMs)
	}

	left, right, wavRate := decodeWAVStereo(t, art.Data)
	if wavRate != rate {
		t.Fatalf("rate = %d, want %d", wavRate, rate)
	}

	// The left channel carries only the dispatcher: sound in even segments,
	// silence in odd ones, with the inverse on the right.
	seg := msToSamples(500, rate)
	for i := 0; i < 10; i++ {
		lo, hi := i*seg+50, (i+1)*seg-50
		if i%2 == 0 {
			if peak(left[lo:hi]) == 0 {
				t.Errorf("segment %d: dispatcher channel silent", i)
			}
			if p := peak(right[lo:hi]); p != 0 {
				t.Errorf("segment %d: caller channel not silent (peak %d)", i, p)
			}
		} else {
			if peak(right[lo:hi]) == 0 {
				t.Errorf("segment %d: caller channel silent", i)
			}
			if p := peak(left[lo:hi]); p != 0 {
				t.Errorf("segment %d: dispatcher channel not silent (peak %d)", i, p)
			}
		}
	}
}

func TestAssignChannels(t *testing.T) {
	clip := func(r scenario.Role) Clip { return Clip{Speaker: r} }

	tests := []struct {
		name  string
		clips []Clip
		want  map[scenario.Role]int
	}{
		{
			name:  "two parties alternate",
			clips: []Clip{clip(scenario.RoleDispatcher), clip(scenario.RoleCaller), clip(scenario.RoleDispatcher)},
			want: map[scenario.Role]int{
				scenario.RoleDispatcher: channelLeft,
				scenario.RoleCaller:     channelRight,
			},
		},
		{
			name: "nurse inherits the dispatcher channel on handoff",
			clips: []Clip{
				clip(scenario.RoleDispatcher),
				clip(scenario.RoleCaller),
				clip(scenario.RoleDispatcher), // announces the transfer
				clip(scenario.RoleNurse),
				clip(scenario.RoleCaller),
			},
			want: map[scenario.Role]int{
				scenario.RoleDispatcher: channelLeft,
				scenario.RoleCaller:     channelRight,
				scenario.RoleNurse:      channelLeft,
			},
		},
		{
			name: "translator inherits the channel of the dispatcher bringing it on",
			clips: []Clip{
				clip(scenario.RoleDispatcher),
				clip(scenario.RoleCaller),
				clip(scenario.RoleDispatcher), // brings the language line on
				clip(scenario.RoleTranslator),
				clip(scenario.RoleCaller),
				clip(scenario.RoleTranslator),
			},
			want: map[scenario.Role]int{
				scenario.RoleDispatcher: channelLeft,
				scenario.RoleCaller:     channelRight,
				scenario.RoleTranslator: channelLeft,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assignChannels(tt.clips)
			if len(got) != len(tt.want) {
				t.Fatalf("assignment = %v, want %v", got, tt.want)
			}
			for role, ch := range tt.want {
				if got[role] != ch {
					t.Errorf("%s on channel %d, want %d", role, got[role], ch)
				}
			}
		})
	}
}

func TestAssembleDiarizedChannels(t *testing.T) {
	rate := 8000
	clips := []Clip{
		toneClip(scenario.RoleDispatcher, 1000, 0, rate, 8000),
		toneClip(scenario.RoleCaller, 1000, 0, rate, 8000),
	}
	scn := assemblyScenario()
	scn.Diarized = true

	art, err := testEngine().Assemble(context.Background(), clips, scn)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !art.Diarized {
		t.Fatal("artifact should be diarized")
	}

	// High quality never upsamples, so the clips' native rate survives.
	left, right, wavRate := decodeWAVStereo(t, art.Data)
	if wavRate != 8000 {
		t.Fatalf("rate = %d, want 8000", wavRate)
	}

	// While the dispatcher speaks the right channel is silent, and vice versa.
	firstHalf := len(left) / 2
	if peak(left[:firstHalf-100]) == 0 {
		t.Error("dispatcher channel silent during dispatcher speech")
	}
	if p := peak(right[:firstHalf-100]); p != 0 {
		t.Errorf("caller channel not silent during dispatcher speech (peak %d)", p)
	}
	if peak(right[firstHalf+100:]) == 0 {
		t.Error("caller channel silent during caller speech")
	}
	if p := peak(left[firstHalf+100:]); p != 0 {
		t.Errorf("dispatcher channel not silent during caller speech (peak %d)", p)
	}
}
