// Package dialogue turns a call scenario into a validated dialogue script,
// either by prompting a generation backend or by loading a preloaded
// transcript.
//
// The role-set and ordering rules live in the scenario package and are
// enforced here as a post-generation check, independent of how the script was
// produced. A generation attempt that cannot be coerced into a valid script
// gets exactly one repair re-request with a corrective instruction.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calldrill/calldrill/internal/scenario"
)

// RawUtterance is one dialogue line as returned by a generation backend,
// before coercion into the scenario model.
type RawUtterance struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	PauseAfter float64 `json:"pause_after"` // seconds
	Language   string  `json:"language,omitempty"`
}

// Metadata is the scenario classification a backend infers during generation.
type Metadata struct {
	ScenarioType string `json:"scenario_type,omitempty"`
	UrgencyLevel string `json:"urgency_level,omitempty"`
}

// RawScript is the parseable utterance-list structure a backend must return.
type RawScript struct {
	Dialogue []RawUtterance `json:"dialogue"`
	Metadata Metadata       `json:"metadata"`
}

// Generator is the interface for dialogue generation backends.
type Generator interface {
	// Name returns the backend identifier (e.g., "gemini").
	Name() string

	// Generate composes a raw script for the scenario. corrective is empty on
	// the first attempt; on a repair re-request it describes what was wrong
	// with the previous output.
	Generate(ctx context.Context, scn *scenario.CallScenario, corrective string) (*RawScript, error)

	// Close releases any resources held by the backend.
	Close() error
}

// GenerationError reports that the backend failed or produced output that
// could not be coerced into a valid script after the one repair attempt.
type GenerationError struct {
	Backend  string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("dialogue generation failed (%s, %d attempts): %v", e.Backend, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// minUtterances is the smallest script a generation backend may return.
const minUtterances = 4

// Builder produces dialogue scripts from scenarios.
type Builder struct {
	gen    Generator
	loader *Loader
}

// NewBuilder creates a Builder wired to the given backend and transcript loader.
func NewBuilder(gen Generator, loader *Loader) *Builder {
	return &Builder{gen: gen, loader: loader}
}

// Build returns the frozen dialogue script for the scenario, plus any
// generation metadata. Preloaded scenarios never touch the generation
// backend and ignore emotion, erratic, and protocol fields entirely.
func (b *Builder) Build(ctx context.Context, scn *scenario.CallScenario) (*scenario.DialogueScript, Metadata, error) {
	if scn.Preloaded() {
		script, err := b.loader.Load(scn.ScriptName, scn.CallType)
		if err != nil {
			return nil, Metadata{}, err
		}
		script.Freeze()
		return script, Metadata{ScenarioType: "preloaded", UrgencyLevel: "medium"}, nil
	}

	raw, err := b.gen.Generate(ctx, scn, "")
	var script *scenario.DialogueScript
	if err == nil {
		script, err = b.coerce(raw, scn)
	}

	if err != nil {
		// One bounded repair attempt: re-request with a corrective instruction.
		slog.Warn("dialogue generation invalid, repairing", "backend", b.gen.Name(), "error", err)
		corrective := fmt.Sprintf(
			"Your previous response was rejected: %v. Return ONLY valid JSON matching the requested structure, using only the allowed speaker roles.",
			err)
		raw, err = b.gen.Generate(ctx, scn, corrective)
		if err == nil {
			script, err = b.coerce(raw, scn)
		}
		if err != nil {
			return nil, Metadata{}, &GenerationError{Backend: b.gen.Name(), Attempts: 2, Err: err}
		}
	}

	script.Freeze()
	slog.Info("dialogue script built",
		"backend", b.gen.Name(),
		"call_type", scn.CallType,
		"utterances", len(script.Utterances))
	return script, raw.Metadata, nil
}

// coerce converts backend output into a validated DialogueScript.
func (b *Builder) coerce(raw *RawScript, scn *scenario.CallScenario) (*scenario.DialogueScript, error) {
	if raw == nil || len(raw.Dialogue) < minUtterances {
		return nil, fmt.Errorf("dialogue must have at least %d utterances", minUtterances)
	}

	required, _ := scenario.RequiredRoles(scn.CallType)
	script := &scenario.DialogueScript{CallType: scn.CallType}

	for i, item := range raw.Dialogue {
		role := scenario.Role(item.Speaker)
		pauseMs := int(item.PauseAfter * 1000)
		if pauseMs < 0 {
			pauseMs = 0
		}
		u := scenario.Utterance{
			Speaker:      role,
			Text:         scenario.NormalizeText(item.Text),
			PauseAfterMs: pauseMs,
			Language:     utteranceLanguage(raw.Dialogue, i, scn),
		}
		if err := script.Append(u); err != nil {
			return nil, err
		}
	}

	// Every required role must actually appear in an AI-composed script.
	for _, role := range required {
		if !scriptHasRole(script, role) {
			return nil, fmt.Errorf("required role %q never speaks", role)
		}
	}

	if err := scenario.ValidateScript(script); err != nil {
		return nil, err
	}
	return script, nil
}

// utteranceLanguage resolves the language for one raw utterance. Outside the
// translator variant everything uses the scenario language. For translator
// calls the dispatcher and caller keep their assigned languages and the
// translator alternates: a backend-provided language wins, otherwise the
// translator speaks the language of the party it addresses next.
func utteranceLanguage(dialogue []RawUtterance, i int, scn *scenario.CallScenario) string {
	if scn.CallType != scenario.EmergencyWithTranslator {
		return scn.PrimaryLanguage()
	}

	switch scenario.Role(dialogue[i].Speaker) {
	case scenario.RoleDispatcher:
		return scn.DispatcherLanguage
	case scenario.RoleCaller:
		return scn.CallerLanguage
	}

	if dialogue[i].Language != "" {
		return dialogue[i].Language
	}
	for j := i + 1; j < len(dialogue); j++ {
		switch scenario.Role(dialogue[j].Speaker) {
		case scenario.RoleDispatcher:
			return scn.DispatcherLanguage
		case scenario.RoleCaller:
			return scn.CallerLanguage
		}
	}
	return scn.DispatcherLanguage
}

func scriptHasRole(d *scenario.DialogueScript, role scenario.Role) bool {
	for _, u := range d.Utterances {
		if u.Speaker == role {
			return true
		}
	}
	return false
}
