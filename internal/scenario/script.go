package scenario

import (
	"fmt"
	"regexp"
	"strings"
)

// Utterance is one line of dialogue with timing metadata.
type Utterance struct {
	Speaker Role `json:"speaker"`

	// Text is normalized speech: markdown stripped, "911" spelled out as
	// spoken digits.
	Text string `json:"text"`

	// PauseAfterMs is the silence inserted after this utterance on the
	// assembled timeline.
	PauseAfterMs int `json:"pause_after_ms"`

	// Language is the ISO-639-1 code for this line. It defaults to the
	// scenario language and differs only for translator-role utterances.
	Language string `json:"language,omitempty"`
}

// DialogueScript is an ordered utterance sequence bound to a call type.
// AI-composed scripts are mutable only inside the builder stage; Freeze
// seals them before they cross into synthesis.
type DialogueScript struct {
	CallType   CallType    `json:"call_type"`
	Utterances []Utterance `json:"utterances"`

	// Preloaded marks scripts loaded verbatim from a transcript file. These
	// bypass emotion, erratic, and protocol handling entirely.
	Preloaded bool `json:"preloaded"`

	frozen bool
}

// Append adds an utterance to an unfrozen script.
func (d *DialogueScript) Append(u Utterance) error {
	if d.frozen {
		return fmt.Errorf("script is frozen")
	}
	d.Utterances = append(d.Utterances, u)
	return nil
}

// Freeze seals the script against further mutation.
func (d *DialogueScript) Freeze() { d.frozen = true }

// Frozen reports whether the script has been sealed.
func (d *DialogueScript) Frozen() bool { return d.frozen }

// ScriptValidationError reports a structurally invalid dialogue script or an
// unusable preloaded transcript.
type ScriptValidationError struct {
	Index  int // utterance index, -1 if not tied to one
	Reason string
}

func (e *ScriptValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid script: utterance %d: %s", e.Index, e.Reason)
	}
	return "invalid script: " + e.Reason
}

// scriptState tracks call-flow progress while walking a script. The validator
// is a small state machine transitioning on speaker-role changes; it only
// checks an emitted script after the fact, it never steers generation.
type scriptState int

const (
	stateAwaitingTransfer scriptState = iota // dispatcher/caller exchange not yet complete
	stateInTransfer                          // third party may now speak
)

// ValidateScript checks the role-set and ordering invariants for the script's
// call type. Every violation is a *ScriptValidationError.
func ValidateScript(d *DialogueScript) error {
	required, ok := RequiredRoles(d.CallType)
	if !ok {
		return &ScriptValidationError{Index: -1, Reason: fmt.Sprintf("unknown call type %q", d.CallType)}
	}
	if len(d.Utterances) == 0 {
		return &ScriptValidationError{Index: -1, Reason: "script has no utterances"}
	}

	for i, u := range d.Utterances {
		if !roleInSet(u.Speaker, required) {
			return &ScriptValidationError{
				Index:  i,
				Reason: fmt.Sprintf("speaker %q is not in the role set for call type %q", u.Speaker, d.CallType),
			}
		}
		if strings.TrimSpace(u.Text) == "" {
			return &ScriptValidationError{Index: i, Reason: "empty utterance text"}
		}
		if u.PauseAfterMs < 0 {
			return &ScriptValidationError{Index: i, Reason: "negative pause_after_ms"}
		}
	}

	switch d.CallType {
	case WarmTransferNurse:
		return validateWarmTransfer(d)
	case EmergencyWithTranslator:
		return validateTranslation(d)
	}
	return nil
}

// validateWarmTransfer enforces that the nurse speaks only after at least one
// dispatcher/caller exchange — the call starts as a normal emergency call and
// the nurse joins once the transfer has occurred.
func validateWarmTransfer(d *DialogueScript) error {
	state := stateAwaitingTransfer
	seenDispatcher, seenCaller := false, false

	for i, u := range d.Utterances {
		switch u.Speaker {
		case RoleDispatcher:
			seenDispatcher = true
		case RoleCaller:
			seenCaller = true
		case RoleNurse:
			if state == stateAwaitingTransfer {
				return &ScriptValidationError{
					Index:  i,
					Reason: "nurse speaks before a dispatcher/caller exchange has occurred",
				}
			}
		}
		if seenDispatcher && seenCaller {
			state = stateInTransfer
		}
	}
	return nil
}

// validateTranslation enforces the bridging rule: consecutive utterances in
// different languages must involve the translator on at least one side.
func validateTranslation(d *DialogueScript) error {
	for i := 1; i < len(d.Utterances); i++ {
		prev, cur := d.Utterances[i-1], d.Utterances[i]
		if prev.Language == cur.Language {
			continue
		}
		if prev.Speaker != RoleTranslator && cur.Speaker != RoleTranslator {
			return &ScriptValidationError{
				Index:  i,
				Reason: fmt.Sprintf("language change %q -> %q is not bridged by the translator", prev.Language, cur.Language),
			}
		}
	}
	return nil
}

var (
	nineOneOneRe = regexp.MustCompile(`\b911\b`)
	emphasisRe   = regexp.MustCompile(`[*_~]+([^*_~]+)[*_~]+`)
	leftoverRe   = regexp.MustCompile(`[*_~]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// NormalizeText prepares a line for speech synthesis: "911" is rendered as
// spoken digits and markdown emphasis markers are stripped.
func NormalizeText(text string) string {
	out := nineOneOneRe.ReplaceAllString(text, "nine one one")
	out = emphasisRe.ReplaceAllString(out, "$1")
	out = leftoverRe.ReplaceAllString(out, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(out, " "))
}
