// Package config handles loading and validating the calldrill configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the calldrill service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Dialogue  DialogueConfig  `mapstructure:"dialogue"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DialogueConfig selects and configures the dialogue generation backend.
type DialogueConfig struct {
	Backend    string       `mapstructure:"backend"` // "gemini"
	Gemini     GeminiConfig `mapstructure:"gemini"`
	ScriptsDir string       `mapstructure:"scripts_dir"` // preloaded transcript directory
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// SynthesisConfig selects and configures the speech synthesis backend.
type SynthesisConfig struct {
	Backend    string           `mapstructure:"backend"` // "elevenlabs"
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
}

// ElevenLabsConfig holds ElevenLabs API settings.
type ElevenLabsConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// AudioConfig holds assembly engine settings.
type AudioConfig struct {
	// NoiseDir is the directory holding background noise bed WAV files,
	// one per noise type (e.g. traffic.wav, crowd.wav).
	NoiseDir string `mapstructure:"noise_dir"`

	// FFmpegPath overrides the ffmpeg binary used for MP3 export.
	FFmpegPath string `mapstructure:"ffmpeg_path"`
}

// ArtifactsConfig holds artifact storage and retention settings.
type ArtifactsConfig struct {
	Dir           string        `mapstructure:"dir"`
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./calldrill.yaml, ./configs/calldrill.yaml, /etc/calldrill/calldrill.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("dialogue.backend", "gemini")
	v.SetDefault("dialogue.gemini.model", "gemini-2.5-flash")
	v.SetDefault("dialogue.scripts_dir", "scripts")
	v.SetDefault("synthesis.backend", "elevenlabs")
	v.SetDefault("audio.noise_dir", "assets/noise")
	v.SetDefault("audio.ffmpeg_path", "ffmpeg")
	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("artifacts.retention", time.Hour)
	v.SetDefault("artifacts.sweep_interval", 10*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("calldrill")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/calldrill")
	}

	// Environment variables: CALLDRILL_SERVER_PORT, CALLDRILL_DIALOGUE_BACKEND, etc.
	v.SetEnvPrefix("CALLDRILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional — env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}")
	cfg.Dialogue.Gemini.APIKey = resolveEnvRef(cfg.Dialogue.Gemini.APIKey)
	cfg.Synthesis.ElevenLabs.APIKey = resolveEnvRef(cfg.Synthesis.ElevenLabs.APIKey)

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
