package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calldrill/calldrill/internal/config"
	"github.com/calldrill/calldrill/internal/scenario"
)

func candidateResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
}

func testGenerator(srv *httptest.Server) *Generator {
	g := New(config.GeminiConfig{APIKey: "test-key", Model: "gemini-2.5-flash"})
	g.baseURL = srv.URL
	g.client = srv.Client()
	return g
}

func testGenScenario() *scenario.CallScenario {
	return &scenario.CallScenario{
		CallType:        scenario.Emergency,
		Prompt:          "carbon monoxide alarm going off",
		DurationSeconds: 60,
		EmotionLevel:    scenario.EmotionConcerned,
	}
}

func TestGenerate(t *testing.T) {
	script := `{"dialogue":[{"speaker":"dispatcher","text":"911, what's your emergency?","pause_after":0.5},{"speaker":"caller","text":"My CO alarm won't stop.","pause_after":0.8}],"metadata":{"scenario_type":"fire","urgency_level":"medium"}}`

	var gotPath, gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		json.NewEncoder(w).Encode(candidateResponse("```json\n" + script + "\n```"))
	}))
	defer srv.Close()

	raw, err := testGenerator(srv).Generate(context.Background(), testGenScenario(), "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(raw.Dialogue) != 2 || raw.Metadata.UrgencyLevel != "medium" {
		t.Errorf("raw = %+v", raw)
	}
	if gotPath != "/gemini-2.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if !strings.Contains(gotPrompt, "carbon monoxide alarm") {
		t.Error("prompt missing the scenario description")
	}
}

func TestGenerateAppendsCorrective(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Contents[0].Parts[0].Text
		json.NewEncoder(w).Encode(candidateResponse(`{"dialogue":[],"metadata":{}}`))
	}))
	defer srv.Close()

	corrective := "Previous output used a disallowed speaker."
	if _, err := testGenerator(srv).Generate(context.Background(), testGenScenario(), corrective); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(strings.TrimSpace(gotPrompt), corrective) {
		t.Error("corrective instruction not appended to the prompt")
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
			},
		},
		{
			name: "prose instead of json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(candidateResponse("I'm sorry, I can't help with that."))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			if _, err := testGenerator(srv).Generate(context.Background(), testGenScenario(), ""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
