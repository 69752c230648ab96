// Package elevenlabs implements the synthesis Backend interface using the
// ElevenLabs REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/calldrill/calldrill/internal/config"
	"github.com/calldrill/calldrill/internal/synth"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

const (
	monolingualModel  = "eleven_monolingual_v1"
	multilingualModel = "eleven_multilingual_v2"
)

// similarityBoost is fixed; the scenario only varies stability and style.
const similarityBoost = 0.75

const defaultPreviewText = "Hello, this is a voice preview. How can I assist you today?"

// Backend calls the ElevenLabs text-to-speech API.
type Backend struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates an ElevenLabs backend from config.
func New(cfg config.ElevenLabsConfig) *Backend {
	return &Backend{
		apiKey:  cfg.APIKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "elevenlabs" }

// Close is a no-op for the ElevenLabs backend.
func (b *Backend) Close() error { return nil }

// Speak synthesizes one utterance and returns MP3 bytes.
func (b *Backend) Speak(ctx context.Context, req synth.Request) ([]byte, error) {
	model := monolingualModel
	if req.Multilingual {
		model = multilingualModel
	}

	body := ttsRequest{
		Text:    req.Text,
		ModelID: model,
		VoiceSettings: ttsVoiceSettings{
			Stability:       req.Stability,
			SimilarityBoost: similarityBoost,
			Style:           req.StyleExaggeration,
		},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling tts request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", b.baseURL, req.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating tts request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", b.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("synthesis quota exhausted (status 429)")
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("tts failed (status %d): %s", resp.StatusCode, respBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tts response: %w", err)
	}

	slog.Debug("elevenlabs speak", "model", model, "voice", req.VoiceID, "bytes", len(audio))
	return audio, nil
}

// Voices lists the account's available voices. On API failure it falls back
// to a static premade set so voice selection keeps working.
func (b *Backend) Voices(ctx context.Context) ([]synth.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("creating voices request: %w", err)
	}
	req.Header.Set("xi-api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		slog.Warn("voice listing failed, using fallback set", "error", err)
		return fallbackVoices(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("voice listing failed, using fallback set", "status", resp.StatusCode)
		return fallbackVoices(), nil
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("decoding voices response: %w", err)
	}

	voices := make([]synth.Voice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		voices = append(voices, synth.Voice{
			ID:          v.VoiceID,
			Name:        v.Name,
			Category:    v.Category,
			Description: v.Description,
			Gender:      v.Labels["gender"],
			PreviewURL:  v.PreviewURL,
		})
	}
	return voices, nil
}

// Preview synthesizes a short sample for a voice outside any call context.
func (b *Backend) Preview(ctx context.Context, voiceID, sampleText string) ([]byte, error) {
	if sampleText == "" {
		sampleText = defaultPreviewText
	}
	return b.Speak(ctx, synth.Request{
		Text:              sampleText,
		VoiceID:           voiceID,
		Language:          "en",
		Stability:         0.5,
		StyleExaggeration: 0.1,
	})
}

// --- Internal types ---

type ttsRequest struct {
	Text          string           `json:"text"`
	ModelID       string           `json:"model_id"`
	VoiceSettings ttsVoiceSettings `json:"voice_settings"`
}

type ttsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

type voicesResponse struct {
	Voices []struct {
		VoiceID     string            `json:"voice_id"`
		Name        string            `json:"name"`
		Category    string            `json:"category"`
		Description string            `json:"description"`
		Labels      map[string]string `json:"labels"`
		PreviewURL  string            `json:"preview_url"`
	} `json:"voices"`
}

// fallbackVoices is a static premade set used when the catalog is unreachable.
func fallbackVoices() []synth.Voice {
	return []synth.Voice{
		{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel (Professional Female)", Category: "premade", Description: "Clear, professional female voice", Gender: "female"},
		{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni (Calm Male)", Category: "premade", Description: "Well-rounded, calm male voice", Gender: "male"},
		{ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold (Authoritative Male)", Category: "premade", Description: "Crisp, authoritative male voice", Gender: "male"},
		{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam (Deep Male)", Category: "premade", Description: "Deep, resonant male voice", Gender: "male"},
		{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella (Expressive Female)", Category: "premade", Description: "Expressive, emotional female voice", Gender: "female"},
	}
}
