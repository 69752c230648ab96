// Package pipeline runs the per-call stage sequence: build the dialogue
// script, synthesize voices, assemble the audio, persist the artifact.
//
// One request is one goroutine. The stages are strictly sequential and any
// stage error aborts the run; concurrent requests share only the artifact
// store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calldrill/calldrill/internal/artifact"
	"github.com/calldrill/calldrill/internal/audio"
	"github.com/calldrill/calldrill/internal/dialogue"
	"github.com/calldrill/calldrill/internal/scenario"
	"github.com/calldrill/calldrill/internal/synth"
)

// Result summarizes a finished call for the API layer.
type Result struct {
	DownloadRef     string            `json:"download_ref"`
	TotalDurationMs int               `json:"total_duration_ms"`
	ExchangeCount   int               `json:"exchange_count"`
	Format          string            `json:"format"`
	Diarized        bool              `json:"diarized"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	builder      *dialogue.Builder
	orchestrator *synth.Orchestrator
	engine       *audio.Engine
	store        *artifact.Store
}

func New(builder *dialogue.Builder, orchestrator *synth.Orchestrator, engine *audio.Engine, store *artifact.Store) *Pipeline {
	return &Pipeline{
		builder:      builder,
		orchestrator: orchestrator,
		engine:       engine,
		store:        store,
	}
}

// Run executes the full pipeline for one validated scenario.
func (p *Pipeline) Run(ctx context.Context, scn *scenario.CallScenario) (*Result, error) {
	start := time.Now()
	slog.Info("call pipeline started",
		"call_type", scn.CallType,
		"duration_s", scn.DurationSeconds,
		"preloaded", scn.Preloaded())

	script, meta, err := p.builder.Build(ctx, scn)
	if err != nil {
		return nil, fmt.Errorf("building script: %w", err)
	}

	clips, err := p.orchestrator.Synthesize(ctx, script, scn)
	if err != nil {
		return nil, fmt.Errorf("synthesizing voices: %w", err)
	}

	art, err := p.engine.Assemble(ctx, clips, scn)
	if err != nil {
		return nil, fmt.Errorf("assembling audio: %w", err)
	}
	art.Metadata = map[string]string{
		"scenario_type": meta.ScenarioType,
		"urgency_level": meta.UrgencyLevel,
	}

	ref, err := p.store.Save(art)
	if err != nil {
		return nil, fmt.Errorf("saving artifact: %w", err)
	}

	slog.Info("call pipeline finished",
		"ref", ref,
		"duration_ms", art.TotalDurationMs,
		"exchanges", art.ExchangeCount,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		DownloadRef:     ref,
		TotalDurationMs: art.TotalDurationMs,
		ExchangeCount:   art.ExchangeCount,
		Format:          string(art.Format),
		Diarized:        art.Diarized,
		Metadata:        art.Metadata,
	}, nil
}
