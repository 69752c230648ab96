package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calldrill/calldrill/internal/config"
	"github.com/calldrill/calldrill/internal/synth"
)

func testBackend(srv *httptest.Server) *Backend {
	b := New(config.ElevenLabsConfig{APIKey: "test-key"})
	b.baseURL = srv.URL
	b.client = srv.Client()
	return b
}

func TestSpeak(t *testing.T) {
	var got ttsRequest
	var gotPath, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		w.Write([]byte("mp3 bytes"))
	}))
	defer srv.Close()

	data, err := testBackend(srv).Speak(context.Background(), synth.Request{
		Text:              "Is anyone hurt?",
		VoiceID:           "voice-1",
		Stability:         0.7,
		StyleExaggeration: 0.05,
	})
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if string(data) != "mp3 bytes" {
		t.Errorf("data = %q", data)
	}
	if gotPath != "/text-to-speech/voice-1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if got.ModelID != monolingualModel {
		t.Errorf("model = %q, want %q", got.ModelID, monolingualModel)
	}
	if got.VoiceSettings.Stability != 0.7 || got.VoiceSettings.SimilarityBoost != similarityBoost {
		t.Errorf("voice settings = %+v", got.VoiceSettings)
	}
}

func TestSpeakMultilingualModel(t *testing.T) {
	var got ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := testBackend(srv).Speak(context.Background(), synth.Request{
		Text: "¿Está respirando?", VoiceID: "v", Multilingual: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.ModelID != multilingualModel {
		t.Errorf("model = %q, want %q", got.ModelID, multilingualModel)
	}
}

func TestSpeakQuotaExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testBackend(srv).Speak(context.Background(), synth.Request{Text: "x", VoiceID: "v"})
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("err = %v, want quota failure", err)
	}
}

func TestVoicesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	voices, err := testBackend(srv).Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != len(fallbackVoices()) {
		t.Errorf("len(voices) = %d, want fallback set of %d", len(voices), len(fallbackVoices()))
	}
}

func TestVoicesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"voices": []map[string]any{{
				"voice_id":    "abc",
				"name":        "Clara",
				"category":    "premade",
				"labels":      map[string]string{"gender": "female"},
				"preview_url": "https://example.com/clara.mp3",
			}},
		})
	}))
	defer srv.Close()

	voices, err := testBackend(srv).Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 1 {
		t.Fatalf("len(voices) = %d", len(voices))
	}
	if voices[0].ID != "abc" || voices[0].Gender != "female" {
		t.Errorf("voice = %+v", voices[0])
	}
}

func TestPreviewDefaultsText(t *testing.T) {
	var got ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if _, err := testBackend(srv).Preview(context.Background(), "v", ""); err != nil {
		t.Fatal(err)
	}
	if got.Text != defaultPreviewText {
		t.Errorf("text = %q, want default preview text", got.Text)
	}
}
