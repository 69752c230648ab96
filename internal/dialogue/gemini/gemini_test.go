package gemini

import (
	"strings"
	"testing"

	"github.com/calldrill/calldrill/internal/scenario"
)

func TestParseScript(t *testing.T) {
	payload := `{"dialogue":[{"speaker":"dispatcher","text":"911, what's your emergency?","pause_after":0.5}],"metadata":{"scenario_type":"fire","urgency_level":"high"}}`

	tests := []struct {
		name string
		in   string
	}{
		{"bare json", payload},
		{"fenced", "```\n" + payload + "\n```"},
		{"fenced with language tag", "```json\n" + payload + "\n```"},
		{"surrounding whitespace", "\n\n  " + payload + "  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := parseScript(tt.in)
			if err != nil {
				t.Fatalf("parseScript: %v", err)
			}
			if len(raw.Dialogue) != 1 || raw.Dialogue[0].Speaker != "dispatcher" {
				t.Errorf("dialogue = %+v", raw.Dialogue)
			}
			if raw.Metadata.ScenarioType != "fire" || raw.Metadata.UrgencyLevel != "high" {
				t.Errorf("metadata = %+v", raw.Metadata)
			}
		})
	}
}

func TestParseScriptRejectsProse(t *testing.T) {
	if _, err := parseScript("Here is your dialogue: it was a dark and stormy night"); err == nil {
		t.Fatal("prose should not parse")
	}
}

func TestExchangeRange(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{30, "4-6"},
		{45, "8-12"},
		{60, "8-12"},
		{90, "12-16"},
		{120, "16-20"},
		{180, "24-30"},
	}
	for _, tt := range tests {
		if got := exchangeRange(tt.seconds); got != tt.want {
			t.Errorf("exchangeRange(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestBuildPromptVariants(t *testing.T) {
	base := scenario.CallScenario{
		Prompt:          "apartment fire with people trapped",
		DurationSeconds: 60,
		EmotionLevel:    scenario.EmotionPanicked,
		ErraticLevel:    scenario.ErraticModerate,
	}

	t.Run("emergency", func(t *testing.T) {
		scn := base
		scn.CallType = scenario.Emergency

		p := buildPrompt(&scn)
		for _, want := range []string{
			base.Prompt,
			"8-12 exchanges",
			emotionDescriptions[scenario.EmotionPanicked],
			erraticDescriptions[scenario.ErraticModerate],
			`"dispatcher", "caller"`,
			"Return ONLY valid JSON",
		} {
			if !strings.Contains(p, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
	})

	t.Run("dispatcher transfer names both dispatchers", func(t *testing.T) {
		scn := base
		scn.CallType = scenario.DispatcherTransfer

		p := buildPrompt(&scn)
		if !strings.Contains(p, `"dispatcher2"`) {
			t.Error("prompt missing dispatcher2 speaker")
		}
		if strings.Contains(p, `"caller"`) {
			t.Error("transfer prompt should not mention a caller speaker")
		}
	})

	t.Run("warm transfer requires exchange before nurse", func(t *testing.T) {
		scn := base
		scn.CallType = scenario.WarmTransferNurse

		p := buildPrompt(&scn)
		if !strings.Contains(p, "must NOT speak before the dispatcher/caller exchange") {
			t.Error("prompt missing nurse ordering constraint")
		}
	})

	t.Run("translator variant demands language field", func(t *testing.T) {
		scn := base
		scn.CallType = scenario.EmergencyWithTranslator
		scn.DispatcherLanguage = "en"
		scn.CallerLanguage = "es"

		p := buildPrompt(&scn)
		for _, want := range []string{"English", "Spanish", `"language" field`} {
			if !strings.Contains(p, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
	})

	t.Run("protocol questions included per role", func(t *testing.T) {
		scn := base
		scn.CallType = scenario.Emergency
		scn.ProtocolQuestions = map[scenario.Role][]string{
			scenario.RoleDispatcher: {"Is anyone injured?", "Are you in a safe location?"},
		}

		p := buildPrompt(&scn)
		if !strings.Contains(p, "Is anyone injured?") || !strings.Contains(p, "Are you in a safe location?") {
			t.Error("prompt missing protocol questions")
		}
	})

	t.Run("non-english language instruction", func(t *testing.T) {
		scn := base
		scn.CallType = scenario.Emergency
		scn.Language = "de"

		p := buildPrompt(&scn)
		if !strings.Contains(p, "German") {
			t.Error("prompt missing language instruction")
		}
	})
}
