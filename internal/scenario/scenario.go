// Package scenario defines the core data types flowing through the calldrill
// pipeline: the immutable call scenario, the dialogue script model, and the
// validation rules that tie speaker roles to call types.
package scenario

import (
	"fmt"
	"sort"
)

// Role identifies a speaker in a call.
type Role string

const (
	RoleDispatcher  Role = "dispatcher"
	RoleDispatcher2 Role = "dispatcher2"
	RoleCaller      Role = "caller"
	RoleNurse       Role = "nurse"
	RoleTranslator  Role = "translator"
)

// CallType selects the call flow and its fixed set of speaker roles.
type CallType string

const (
	// Emergency is a standard two-party call: dispatcher and caller.
	Emergency CallType = "emergency"

	// DispatcherTransfer is an incident handoff between two dispatchers.
	DispatcherTransfer CallType = "dispatcher_transfer"

	// WarmTransferNurse is an emergency call where the dispatcher brings a
	// triage nurse onto the line to continue with the original caller.
	WarmTransferNurse CallType = "warm_transfer_nurse"

	// EmergencyWithTranslator is an emergency call with a language barrier,
	// bridged by a bilingual translator.
	EmergencyWithTranslator CallType = "emergency_with_translator"
)

// roleSets maps each call type to its fixed, total set of required roles.
var roleSets = map[CallType][]Role{
	Emergency:               {RoleDispatcher, RoleCaller},
	DispatcherTransfer:      {RoleDispatcher, RoleDispatcher2},
	WarmTransferNurse:       {RoleDispatcher, RoleCaller, RoleNurse},
	EmergencyWithTranslator: {RoleDispatcher, RoleCaller, RoleTranslator},
}

// RequiredRoles returns the fixed role set for a call type, or false if the
// call type is unknown.
func RequiredRoles(ct CallType) ([]Role, bool) {
	roles, ok := roleSets[ct]
	return roles, ok
}

// EmotionLevel is the 5-level ordinal controlling caller emotional intensity.
type EmotionLevel string

const (
	EmotionCalm       EmotionLevel = "calm"
	EmotionConcerned  EmotionLevel = "concerned"
	EmotionAnxious    EmotionLevel = "anxious"
	EmotionPanicked   EmotionLevel = "panicked"
	EmotionHysterical EmotionLevel = "hysterical"
)

// EmotionLevels lists all levels in ascending intensity order.
var EmotionLevels = []EmotionLevel{
	EmotionCalm, EmotionConcerned, EmotionAnxious, EmotionPanicked, EmotionHysterical,
}

// ErraticLevel is the 5-level ordinal controlling caller incoherence and
// interruption frequency, independent of emotional intensity. It applies
// only to caller-type roles.
type ErraticLevel string

const (
	ErraticNone     ErraticLevel = "none"
	ErraticSlight   ErraticLevel = "slight"
	ErraticModerate ErraticLevel = "moderate"
	ErraticHigh     ErraticLevel = "high"
	ErraticExtreme  ErraticLevel = "extreme"
)

// ErraticLevels lists all levels in ascending order.
var ErraticLevels = []ErraticLevel{
	ErraticNone, ErraticSlight, ErraticModerate, ErraticHigh, ErraticExtreme,
}

// QualityLevel is the 4-level ordinal controlling simulated line degradation.
type QualityLevel string

const (
	QualityHigh    QualityLevel = "high"
	QualityMedium  QualityLevel = "medium"
	QualityLow     QualityLevel = "low"
	QualityVeryLow QualityLevel = "very_low"
)

// NoiseLevel is the ordinal gain setting for a background noise bed.
type NoiseLevel string

const (
	NoiseLow    NoiseLevel = "low"
	NoiseMedium NoiseLevel = "medium"
	NoiseHigh   NoiseLevel = "high"
)

// BackgroundNoise selects an ambient noise bed mixed under the dialogue.
// A zero value (empty Type) means no noise overlay.
type BackgroundNoise struct {
	Type  string     `json:"type"`
	Level NoiseLevel `json:"level"`
}

// AudioFormat is the output container.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatWAV AudioFormat = "wav"
)

// Limits enforced before any pipeline stage runs.
const (
	MaxPromptLength    = 500
	MinDurationSeconds = 30
	MaxDurationSeconds = 180
)

// CallScenario is the immutable request describing one call. It is validated
// once at the request boundary and never mutated by pipeline stages.
type CallScenario struct {
	CallType        CallType        `json:"call_type"`
	Prompt          string          `json:"prompt,omitempty"`
	ScriptName      string          `json:"script_name,omitempty"` // preloaded transcript reference
	DurationSeconds int             `json:"duration_seconds"`
	EmotionLevel    EmotionLevel    `json:"emotion_level"`
	ErraticLevel    ErraticLevel    `json:"erratic_level"`

	// ProtocolQuestions maps a role to the ordered questions that role must
	// work into the conversation.
	ProtocolQuestions map[Role][]string `json:"protocol_questions,omitempty"`

	// Language is the single call language (ISO-639-1). For the translator
	// variant, DispatcherLanguage and CallerLanguage replace it.
	Language           string `json:"language,omitempty"`
	DispatcherLanguage string `json:"dispatcher_language,omitempty"`
	CallerLanguage     string `json:"caller_language,omitempty"`

	AudioFormat     AudioFormat     `json:"audio_format"`
	AudioQuality    QualityLevel    `json:"audio_quality"`
	BackgroundNoise BackgroundNoise `json:"background_noise"`
	Diarized        bool            `json:"diarized"`

	// VoiceAssignment maps each required role to an external voice identifier.
	// It must cover exactly the call type's role set.
	VoiceAssignment map[Role]string `json:"voice_assignment"`
}

// Preloaded reports whether the scenario references a preloaded transcript
// rather than an AI-composed script.
func (s *CallScenario) Preloaded() bool { return s.ScriptName != "" }

// PrimaryLanguage returns the language dialogue defaults to: the dispatcher
// language for translator calls, the scenario language otherwise, "en" if unset.
func (s *CallScenario) PrimaryLanguage() string {
	if s.CallType == EmergencyWithTranslator && s.DispatcherLanguage != "" {
		return s.DispatcherLanguage
	}
	if s.Language != "" {
		return s.Language
	}
	return "en"
}

// ValidationError reports a malformed or out-of-range scenario. It is raised
// at the request boundary, before any pipeline stage runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scenario: %s: %s", e.Field, e.Reason)
}

// Validate checks every scenario field against the model's invariants.
// It returns a *ValidationError describing the first problem found.
func (s *CallScenario) Validate() error {
	required, ok := RequiredRoles(s.CallType)
	if !ok {
		return &ValidationError{Field: "call_type", Reason: fmt.Sprintf("unknown call type %q", s.CallType)}
	}

	if s.Prompt == "" && s.ScriptName == "" {
		return &ValidationError{Field: "prompt", Reason: "either a prompt or a preloaded script name is required"}
	}
	if s.Prompt != "" && s.ScriptName != "" {
		return &ValidationError{Field: "prompt", Reason: "prompt and script_name are mutually exclusive"}
	}
	if len(s.Prompt) > MaxPromptLength {
		return &ValidationError{Field: "prompt", Reason: fmt.Sprintf("must be %d characters or less", MaxPromptLength)}
	}

	if s.DurationSeconds < MinDurationSeconds || s.DurationSeconds > MaxDurationSeconds {
		return &ValidationError{
			Field:  "duration_seconds",
			Reason: fmt.Sprintf("must be between %d and %d", MinDurationSeconds, MaxDurationSeconds),
		}
	}

	if !s.Preloaded() {
		if !validEmotion(s.EmotionLevel) {
			return &ValidationError{Field: "emotion_level", Reason: fmt.Sprintf("unknown level %q", s.EmotionLevel)}
		}
		if !validErratic(s.ErraticLevel) {
			return &ValidationError{Field: "erratic_level", Reason: fmt.Sprintf("unknown level %q", s.ErraticLevel)}
		}
	}

	switch s.AudioFormat {
	case FormatMP3, FormatWAV:
	default:
		return &ValidationError{Field: "audio_format", Reason: "must be mp3 or wav"}
	}

	switch s.AudioQuality {
	case QualityHigh, QualityMedium, QualityLow, QualityVeryLow:
	default:
		return &ValidationError{Field: "audio_quality", Reason: fmt.Sprintf("unknown level %q", s.AudioQuality)}
	}

	if s.BackgroundNoise.Type != "" {
		switch s.BackgroundNoise.Level {
		case NoiseLow, NoiseMedium, NoiseHigh:
		default:
			return &ValidationError{Field: "background_noise.level", Reason: fmt.Sprintf("unknown level %q", s.BackgroundNoise.Level)}
		}
	}

	if s.CallType == EmergencyWithTranslator {
		if s.DispatcherLanguage == "" || s.CallerLanguage == "" {
			return &ValidationError{
				Field:  "language",
				Reason: "translator calls require dispatcher_language and caller_language",
			}
		}
	}

	// The voice assignment must cover exactly the required role set.
	if len(s.VoiceAssignment) != len(required) {
		return &ValidationError{
			Field:  "voice_assignment",
			Reason: fmt.Sprintf("must assign voices for exactly %s", roleList(required)),
		}
	}
	for _, role := range required {
		if s.VoiceAssignment[role] == "" {
			return &ValidationError{
				Field:  "voice_assignment",
				Reason: fmt.Sprintf("missing voice for role %q", role),
			}
		}
	}

	for role := range s.ProtocolQuestions {
		if !roleInSet(role, required) {
			return &ValidationError{
				Field:  "protocol_questions",
				Reason: fmt.Sprintf("role %q is not part of call type %q", role, s.CallType),
			}
		}
	}

	return nil
}

func validEmotion(l EmotionLevel) bool {
	for _, v := range EmotionLevels {
		if v == l {
			return true
		}
	}
	return false
}

func validErratic(l ErraticLevel) bool {
	for _, v := range ErraticLevels {
		if v == l {
			return true
		}
	}
	return false
}

func roleInSet(r Role, set []Role) bool {
	for _, v := range set {
		if v == r {
			return true
		}
	}
	return false
}

func roleList(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	sort.Strings(names)
	out := "{"
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out + "}"
}
