// Package gemini implements the dialogue Generator interface using the
// Google Gemini REST API.
//
// The backend sends a structured scenario prompt with role-set constraints
// and expects a JSON utterance list back. Response parsing tolerates markdown
// code fences but nothing else; anything non-conforming is reported to the
// builder as a single correctable failure.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/calldrill/calldrill/internal/config"
	"github.com/calldrill/calldrill/internal/dialogue"
	"github.com/calldrill/calldrill/internal/scenario"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Generator calls the Gemini generateContent endpoint.
type Generator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a Gemini generator from config.
func New(cfg config.GeminiConfig) *Generator {
	return &Generator{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// Name returns the backend identifier.
func (g *Generator) Name() string { return "gemini" }

// Close is a no-op for the Gemini generator.
func (g *Generator) Close() error { return nil }

// Generate requests a dialogue script for the scenario.
func (g *Generator) Generate(ctx context.Context, scn *scenario.CallScenario, corrective string) (*dialogue.RawScript, error) {
	prompt := buildPrompt(scn)
	if corrective != "" {
		prompt += "\n\n" + corrective
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.9,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("gemini failed (status %d): %s", resp.StatusCode, respBody)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no candidates returned")
	}

	raw, err := parseScript(genResp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}

	slog.Debug("dialogue generated", "model", g.model, "utterances", len(raw.Dialogue))
	return raw, nil
}

// --- Internal types ---

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// parseScript extracts the JSON script from model output, stripping markdown
// code fences if present.
func parseScript(text string) (*dialogue.RawScript, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		parts := strings.Split(cleaned, "```")
		if len(parts) >= 3 {
			cleaned = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "json"))
		}
	}

	var raw dialogue.RawScript
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("could not parse model response as a dialogue script: %.200s", cleaned)
	}
	return &raw, nil
}

// exchangeRange suggests a dialogue length for the target duration. An
// average exchange runs five to six seconds of speech plus pause.
func exchangeRange(durationSeconds int) string {
	switch {
	case durationSeconds <= 30:
		return "4-6"
	case durationSeconds <= 60:
		return "8-12"
	case durationSeconds <= 90:
		return "12-16"
	case durationSeconds <= 120:
		return "16-20"
	default:
		return "24-30"
	}
}

var emotionDescriptions = map[scenario.EmotionLevel]string{
	scenario.EmotionCalm:       "calm and composed, speaking clearly with minimal emotion",
	scenario.EmotionConcerned:  "worried but coherent, with some stress in their voice",
	scenario.EmotionAnxious:    "nervous and stressed, speaking quickly with noticeable worry",
	scenario.EmotionPanicked:   "very distressed, speaking urgently with fear and anxiety",
	scenario.EmotionHysterical: "extremely emotional, potentially crying or screaming, very difficult to calm",
}

var erraticDescriptions = map[scenario.ErraticLevel]string{
	scenario.ErraticSlight:   "The caller occasionally goes on minor tangents or provides slightly unnecessary details, but stays mostly focused.",
	scenario.ErraticModerate: "The caller has some difficulty staying on topic, occasionally rambles, and may need to be redirected by the dispatcher.",
	scenario.ErraticHigh:     "The caller frequently interrupts, jumps between topics, rambles significantly, and is difficult to keep focused. The dispatcher must work hard to extract necessary information.",
	scenario.ErraticExtreme:  "The caller is highly erratic and incoherent, constantly interrupting, jumping wildly between unrelated topics, providing confusing or contradictory information, making it very challenging for the dispatcher to gather critical details.",
}

var languageNames = map[string]string{
	"en": "English", "es": "Spanish", "fr": "French", "de": "German",
	"it": "Italian", "pt": "Portuguese", "pl": "Polish", "hi": "Hindi",
	"ja": "Japanese", "ko": "Korean", "zh": "Chinese (Mandarin)", "ar": "Arabic",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

// buildPrompt renders the scenario into the call-type-specific prompt.
func buildPrompt(scn *scenario.CallScenario) string {
	var sb strings.Builder

	exchanges := exchangeRange(scn.DurationSeconds)
	emotion := emotionDescriptions[scn.EmotionLevel]

	switch scn.CallType {
	case scenario.DispatcherTransfer:
		sb.WriteString("You are an expert in creating realistic 911 dispatcher-to-dispatcher transfer scenarios for training purposes.\n\n")
		sb.WriteString("Generate a dialogue where one dispatcher transfers a call/incident to another dispatcher based on this scenario:\n")
		sb.WriteString(scn.Prompt + "\n\n")
		sb.WriteString("Requirements:\n")
		sb.WriteString("1. The transferring dispatcher (speaker \"dispatcher\") shares incident type, location, current status, units on scene, and special concerns\n")
		sb.WriteString("2. The receiving dispatcher (speaker \"dispatcher2\") asks clarifying questions and confirms details\n")
		fmt.Fprintf(&sb, "3. Include %s exchanges total (target duration: ~%d seconds)\n", exchanges, scn.DurationSeconds)
		sb.WriteString("4. Both speakers use professional radio/dispatch terminology\n")
		sb.WriteString("5. Allowed speakers: \"dispatcher\", \"dispatcher2\" — no other speakers may appear\n")
		writeProtocolSections(&sb, scn)
		writeLanguageInstruction(&sb, scn)
		sb.WriteString(jsonContract(`{"speaker": "dispatcher", "text": "Dispatch 4 to Dispatch 7, transferring a call", "pause_after": 0.5}`))
		sb.WriteString("\nRules for pauses:\n- Both dispatchers use short, professional pauses: 0.3-0.6 seconds\n- After questions: 0.5-0.8 seconds to allow response time\n")

	case scenario.WarmTransferNurse:
		sb.WriteString("You are an expert in creating realistic 911 warm transfer scenarios for medical triage training purposes.\n\n")
		sb.WriteString("Generate a dialogue where a 911 dispatcher takes an emergency call and then transfers the caller to a triage nurse. Speakers: \"dispatcher\", \"caller\", \"nurse\".\n\n")
		sb.WriteString("Scenario: " + scn.Prompt + "\n\n")
		sb.WriteString("Requirements:\n")
		sb.WriteString("1. The call STARTS as a normal 911 call: dispatcher and caller exchange at least two lines before any transfer\n")
		sb.WriteString("2. The dispatcher then announces the transfer (e.g. \"I'm going to connect you with our nurse now\") and the nurse joins\n")
		sb.WriteString("3. The nurse takes over, asking the caller assessment questions: chief complaint, symptoms, duration, medications, allergies\n")
		fmt.Fprintf(&sb, "4. Include %s exchanges total (target duration: ~%d seconds)\n", exchanges, scn.DurationSeconds)
		fmt.Fprintf(&sb, "5. Caller emotion level: %s\n", emotion)
		sb.WriteString("6. The nurse must NOT speak before the dispatcher/caller exchange has occurred\n")
		writeErraticNote(&sb, scn)
		writeProtocolSections(&sb, scn)
		writeLanguageInstruction(&sb, scn)
		sb.WriteString(jsonContract(`{"speaker": "dispatcher", "text": "Nine one one, what's your emergency?", "pause_after": 0.5}`))
		sb.WriteString("\nRules for pauses:\n- Dispatcher: 0.3-0.6 seconds (quick, professional)\n- Nurse: 0.4-0.7 seconds (calm, measured)\n- Caller: 0.6-1.2 seconds (emotional, varied based on urgency)\n- After questions: 0.7-1.0 seconds to allow thinking time\n")

	case scenario.EmergencyWithTranslator:
		dl := languageName(scn.DispatcherLanguage)
		cl := languageName(scn.CallerLanguage)
		sb.WriteString("You are an expert in creating realistic 911 call scenarios with language barriers for training purposes.\n\n")
		fmt.Fprintf(&sb, "Generate a dialogue where a 911 dispatcher communicates with a non-%s-speaking caller through a bilingual translator. Speakers: \"dispatcher\" (%s only), \"caller\" (%s only), \"translator\" (bilingual).\n\n", dl, dl, cl)
		sb.WriteString("Scenario: " + scn.Prompt + "\n\n")
		sb.WriteString("CRITICAL - Language Requirements:\n")
		fmt.Fprintf(&sb, "- The DISPATCHER speaks ONLY %s\n", dl)
		fmt.Fprintf(&sb, "- The CALLER speaks ONLY %s\n", cl)
		fmt.Fprintf(&sb, "- The TRANSLATOR alternates: %s when relaying to the caller, %s when relaying to the dispatcher. Include a \"language\" field (ISO-639-1 code) on every translator line.\n\n", cl, dl)
		sb.WriteString("Requirements:\n")
		fmt.Fprintf(&sb, "1. Start with the dispatcher greeting in %s; the caller responds in %s and the language barrier is evident\n", dl, cl)
		sb.WriteString("2. The dispatcher explicitly brings in the translator as a known resource (e.g. \"Let me get our language line on the call\")\n")
		sb.WriteString("3. The translator introduces themselves briefly in both languages, then relays each side faithfully\n")
		fmt.Fprintf(&sb, "4. Include %s exchanges total (target duration: ~%d seconds)\n", exchanges, scn.DurationSeconds)
		fmt.Fprintf(&sb, "5. Caller emotion level: %s\n", emotion)
		sb.WriteString("6. The dispatcher gathers location, emergency type, and injuries/hazards through the translator\n")
		writeErraticNote(&sb, scn)
		writeProtocolSections(&sb, scn)
		sb.WriteString(jsonContract(`{"speaker": "translator", "text": "Translator here, I can help.", "pause_after": 0.6, "language": "en"}`))
		sb.WriteString("\nRules for pauses:\n- Dispatcher: 0.3-0.6 seconds\n- Translator: 0.4-0.7 seconds\n- Caller: 0.6-1.2 seconds\n- After questions: 0.7-1.0 seconds to allow thinking time\n")

	default: // Emergency
		sb.WriteString("You are an expert in creating realistic 911 emergency call scenarios for training purposes.\n\n")
		sb.WriteString("Generate a dialogue between a 911 dispatcher and a caller based on this scenario:\n")
		sb.WriteString(scn.Prompt + "\n\n")
		sb.WriteString("Requirements:\n")
		sb.WriteString("1. The dispatcher is professional, calm, and asks relevant questions\n")
		fmt.Fprintf(&sb, "2. The caller is %s\n", emotion)
		fmt.Fprintf(&sb, "3. Include %s exchanges total (target duration: ~%d seconds)\n", exchanges, scn.DurationSeconds)
		sb.WriteString("4. The dispatcher collects key information: location, nature of the emergency, injuries, hazards\n")
		sb.WriteString("5. Allowed speakers: \"dispatcher\", \"caller\" — no other speakers may appear\n")
		writeErraticNote(&sb, scn)
		writeProtocolSections(&sb, scn)
		writeLanguageInstruction(&sb, scn)
		sb.WriteString(jsonContract(`{"speaker": "dispatcher", "text": "911, what's your emergency?", "pause_after": 0.5}`))
		sb.WriteString("\nRules for pauses:\n- Dispatcher pauses: 0.3-0.6 seconds (professional, quick responses)\n- Caller pauses: 0.5-1.2 seconds (more emotional, varied)\n- After questions: longer pauses (0.8-1.2 seconds) to allow thinking time\n")
	}

	sb.WriteString("\nReturn ONLY valid JSON, no additional text or explanation.")
	return sb.String()
}

func writeErraticNote(sb *strings.Builder, scn *scenario.CallScenario) {
	if desc, ok := erraticDescriptions[scn.ErraticLevel]; ok {
		sb.WriteString("\nIMPORTANT - Caller Behavior:\n" + desc + "\n")
	}
}

func writeProtocolSections(sb *strings.Builder, scn *scenario.CallScenario) {
	for _, role := range []scenario.Role{scenario.RoleDispatcher, scenario.RoleDispatcher2, scenario.RoleNurse} {
		questions := scn.ProtocolQuestions[role]
		if len(questions) == 0 {
			continue
		}
		fmt.Fprintf(sb, "\nIMPORTANT - %s protocol questions (integrate them naturally):\n", titleRole(role))
		for _, q := range questions {
			sb.WriteString("- " + q + "\n")
		}
	}
}

func writeLanguageInstruction(sb *strings.Builder, scn *scenario.CallScenario) {
	lang := scn.PrimaryLanguage()
	if lang == "en" {
		return
	}
	name := languageName(lang)
	fmt.Fprintf(sb, "\nCRITICAL - Language Requirement:\nGenerate ALL dialogue in %s, using natural, native %s phrasing appropriate for emergency services.\n", name, name)
}

func jsonContract(example string) string {
	return fmt.Sprintf(`
Format as JSON with this EXACT structure:

{
  "dialogue": [
    %s
  ],
  "metadata": {
    "scenario_type": "medical/fire/police/traffic",
    "urgency_level": "low/medium/high/critical"
  }
}
`, example)
}

func titleRole(r scenario.Role) string {
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}
