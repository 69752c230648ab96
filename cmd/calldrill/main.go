// Calldrill is a simulated emergency-call generation service. It turns a
// structured call scenario into a finished audio artifact: an AI-composed or
// preloaded dialogue script, per-utterance voice synthesis, and audio
// assembly with pacing, diarization, quality degradation, and background
// noise.
//
// Usage:
//
//	calldrill [flags]
//	calldrill --config /path/to/calldrill.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/calldrill/calldrill/internal/api"
	"github.com/calldrill/calldrill/internal/artifact"
	"github.com/calldrill/calldrill/internal/audio"
	"github.com/calldrill/calldrill/internal/config"
	"github.com/calldrill/calldrill/internal/dialogue"
	geminidialogue "github.com/calldrill/calldrill/internal/dialogue/gemini"
	"github.com/calldrill/calldrill/internal/pipeline"
	"github.com/calldrill/calldrill/internal/synth"
	elevenlabssynth "github.com/calldrill/calldrill/internal/synth/elevenlabs"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/calldrill.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("calldrill %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("calldrill starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the dialogue generation backend.
	var generator dialogue.Generator
	switch cfg.Dialogue.Backend {
	case "gemini":
		generator = geminidialogue.New(cfg.Dialogue.Gemini)
		slog.Info("using Gemini dialogue generator", "model", cfg.Dialogue.Gemini.Model)
	default:
		slog.Error("unknown dialogue backend", "backend", cfg.Dialogue.Backend)
		os.Exit(1)
	}
	defer generator.Close()

	// Initialize the speech synthesis backend.
	var backend synth.Backend
	switch cfg.Synthesis.Backend {
	case "elevenlabs":
		backend = elevenlabssynth.New(cfg.Synthesis.ElevenLabs)
		slog.Info("using ElevenLabs synthesis backend")
	default:
		slog.Error("unknown synthesis backend", "backend", cfg.Synthesis.Backend)
		os.Exit(1)
	}
	defer backend.Close()

	// Artifact store with a background retention sweep.
	store, err := artifact.NewStore(cfg.Artifacts.Dir, cfg.Artifacts.Retention)
	if err != nil {
		slog.Error("failed to open artifact store", "error", err)
		os.Exit(1)
	}
	go store.SweepLoop(ctx, cfg.Artifacts.SweepInterval)

	// Assemble the per-request pipeline.
	loader := dialogue.NewLoader(cfg.Dialogue.ScriptsDir)
	builder := dialogue.NewBuilder(generator, loader)
	orchestrator := synth.NewOrchestrator(backend)
	engine := audio.NewEngine(audio.LoadNoiseBank(cfg.Audio.NoiseDir), cfg.Audio.FFmpegPath)
	p := pipeline.New(builder, orchestrator, engine, store)

	// Start the API server.
	server := api.New(cfg.Server.Port, p, store, backend, loader)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(ctx)
	}()

	server.SetReady(true)
	slog.Info("calldrill ready",
		"port", cfg.Server.Port,
		"artifacts_dir", cfg.Artifacts.Dir,
		"retention", cfg.Artifacts.Retention)

	// Block until shutdown signal or server failure.
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining...")
	case err := <-errCh:
		if err != nil {
			slog.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}

	if err := server.Close(); err != nil {
		slog.Error("api server close error", "error", err)
	}
	slog.Info("calldrill stopped")
}
