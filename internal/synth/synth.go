// Package synth orchestrates per-utterance voice synthesis.
//
// The orchestrator maps each utterance to a synthesis request — voice from
// the scenario's assignment, stability and style exaggeration from fixed
// emotion tables — and collects decoded clips in exact utterance order.
// Backends (ElevenLabs in production) are behind the Backend interface.
package synth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calldrill/calldrill/internal/audio"
	"github.com/calldrill/calldrill/internal/scenario"
)

// primaryLanguage is the default monolingual synthesis language.
const primaryLanguage = "en"

// Request is one utterance's synthesis parameters.
type Request struct {
	Text              string
	VoiceID           string
	Language          string
	Stability         float64
	StyleExaggeration float64

	// Multilingual selects the multilingual model. Set whenever the
	// utterance language differs from the primary default, which is always
	// the case for translator-role utterances.
	Multilingual bool
}

// Voice describes an available synthesis voice.
type Voice struct {
	ID          string `json:"voice_id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Gender      string `json:"gender,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

// Backend is the interface for speech synthesis providers.
type Backend interface {
	// Name returns the backend identifier (e.g., "elevenlabs").
	Name() string

	// Speak synthesizes one utterance and returns encoded MP3 bytes.
	Speak(ctx context.Context, req Request) ([]byte, error)

	// Voices lists the available voices.
	Voices(ctx context.Context) ([]Voice, error)

	// Preview synthesizes arbitrary sample text outside of a call context.
	Preview(ctx context.Context, voiceID, sampleText string) ([]byte, error)

	// Close releases any resources held by the backend.
	Close() error
}

// SynthesisError reports a per-utterance synthesis failure.
type SynthesisError struct {
	Index   int
	Speaker scenario.Role
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed for utterance %d (%s): %v", e.Index, e.Speaker, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// voiceSettings are the two numeric synthesis parameters sent per utterance.
type voiceSettings struct {
	stability float64
	style     float64
}

// callerSettings maps emotion level to caller voice parameters. The table is
// monotonic: calmer means higher stability and lower exaggeration.
var callerSettings = map[scenario.EmotionLevel]voiceSettings{
	scenario.EmotionCalm:       {stability: 0.65, style: 0.10},
	scenario.EmotionConcerned:  {stability: 0.50, style: 0.25},
	scenario.EmotionAnxious:    {stability: 0.40, style: 0.40},
	scenario.EmotionPanicked:   {stability: 0.30, style: 0.55},
	scenario.EmotionHysterical: {stability: 0.20, style: 0.70},
}

// erraticStabilityDrop nudges caller stability further down as incoherence
// rises. The drop is small and bounded so the emotion ordering survives.
var erraticStabilityDrop = map[scenario.ErraticLevel]float64{
	scenario.ErraticNone:     0,
	scenario.ErraticSlight:   0.02,
	scenario.ErraticModerate: 0.04,
	scenario.ErraticHigh:     0.06,
	scenario.ErraticExtreme:  0.08,
}

// roleSettings are fixed presets for professional roles.
var roleSettings = map[scenario.Role]voiceSettings{
	scenario.RoleDispatcher:  {stability: 0.70, style: 0.05},
	scenario.RoleDispatcher2: {stability: 0.70, style: 0.05},
	scenario.RoleNurse:       {stability: 0.60, style: 0.10},
	scenario.RoleTranslator:  {stability: 0.55, style: 0.10},
}

const minStability = 0.10

// settingsFor resolves the voice parameters for one utterance.
func settingsFor(speaker scenario.Role, emotion scenario.EmotionLevel, erratic scenario.ErraticLevel) voiceSettings {
	if vs, ok := roleSettings[speaker]; ok {
		return vs
	}
	vs, ok := callerSettings[emotion]
	if !ok {
		vs = callerSettings[scenario.EmotionConcerned]
	}
	vs.stability -= erraticStabilityDrop[erratic]
	if vs.stability < minStability {
		vs.stability = minStability
	}
	return vs
}

// Orchestrator drives a synthesis backend across a whole script.
type Orchestrator struct {
	backend Backend
	decode  func(data []byte, speaker scenario.Role) (audio.Clip, error)
}

// NewOrchestrator creates an Orchestrator on the given backend.
func NewOrchestrator(backend Backend) *Orchestrator {
	return &Orchestrator{backend: backend, decode: audio.DecodeMP3}
}

// Synthesize produces one decoded clip per utterance, in utterance order.
// Order is significant and preserved exactly; pacing downstream depends on
// it. A backend error, exhausted quota, or zero-length response is retried
// once and then surfaced as a *SynthesisError carrying the utterance index
// and speaker.
func (o *Orchestrator) Synthesize(ctx context.Context, script *scenario.DialogueScript, scn *scenario.CallScenario) ([]audio.Clip, error) {
	clips := make([]audio.Clip, 0, len(script.Utterances))

	// Preloaded transcripts carry no emotional profile; whatever the request
	// put in those fields is ignored and the caller reads calm.
	emotion, erratic := scn.EmotionLevel, scn.ErraticLevel
	if script.Preloaded {
		emotion, erratic = scenario.EmotionCalm, scenario.ErraticNone
	}

	for i, u := range script.Utterances {
		req := Request{
			Text:         u.Text,
			VoiceID:      scn.VoiceAssignment[u.Speaker],
			Language:     u.Language,
			Multilingual: u.Language != primaryLanguage || u.Speaker == scenario.RoleTranslator,
		}
		vs := settingsFor(u.Speaker, emotion, erratic)
		req.Stability = vs.stability
		req.StyleExaggeration = vs.style

		data, err := o.speakOnce(ctx, req)
		if err != nil {
			// One retry of the paid call, never more.
			slog.Warn("synthesis failed, retrying once", "index", i, "speaker", u.Speaker, "error", err)
			data, err = o.speakOnce(ctx, req)
			if err != nil {
				return nil, &SynthesisError{Index: i, Speaker: u.Speaker, Err: err}
			}
		}

		clip, err := o.decode(data, u.Speaker)
		if err != nil {
			return nil, &SynthesisError{Index: i, Speaker: u.Speaker, Err: err}
		}
		clip.PauseAfterMs = u.PauseAfterMs
		clips = append(clips, clip)

		slog.Debug("utterance synthesized",
			"index", i,
			"speaker", u.Speaker,
			"duration_ms", clip.DurationMs,
			"multilingual", req.Multilingual)
	}

	return clips, nil
}

func (o *Orchestrator) speakOnce(ctx context.Context, req Request) ([]byte, error) {
	data, err := o.backend.Speak(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("backend returned zero-length audio")
	}
	return data, nil
}
