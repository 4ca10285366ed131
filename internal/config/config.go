// Package config provides the configuration structure shared by the
// voiceclone CLI and the voice service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/caarlos0/env/v11"
	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/encoder"
	"github.com/juanvolpe/voiceJuan/internal/preset"
	"github.com/juanvolpe/voiceJuan/internal/tts"
	"github.com/juanvolpe/voiceJuan/internal/tts/audio"
	"github.com/juanvolpe/voiceJuan/internal/tts/ttsutils"
	"github.com/pelletier/go-toml/v2"
)

// Synthesis backends.
const (
	BackendHTTP    = "http"
	BackendCommand = "command"
)

// Defaults applied to unset fields.
const (
	DefaultServiceURL       = "http://127.0.0.1:8000"
	DefaultInferenceBinary  = "tortoise-tts"
	DefaultVoiceDir         = "voices/juan"
	DefaultVoicesDir        = "voices"
	DefaultSourceDir        = "recordings"
	DefaultSourceFormat     = "m4a"
	DefaultOutputDir        = "."
	DefaultTimeoutSeconds   = 600
	DefaultWorkers          = 1
	DefaultDebounceMillis   = 500
	DefaultNATSURL          = "nats://127.0.0.1:4222"
	DefaultTextSubject      = "text.processed"
	DefaultAudioSubject     = "audio.chunk.created"
	DefaultAudioBucket      = "AUDIO_FILES"
	logsDirName             = "logs"
	errFmtInvalidConfig     = "%w: %s"
	errFmtInvalidConfigWrap = "%w: %w"
)

// ProjectFileName is the configuration file the configurator discovers.
const ProjectFileName = "project.toml"

var (
	// ErrInvalidConfig is returned when a loaded configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrProjectFileNotFound is returned when no project.toml exists in a
	// directory or any of its parents.
	ErrProjectFileNotFound = errors.New("project.toml not found")
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url" env:"NATS_URL"`
	TTSConsumerName          string `toml:"tts_consumer_name"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// TTSConfig selects and tunes the synthesis backend.
type TTSConfig struct {
	Backend    string `toml:"backend"`
	ServiceURL string `toml:"service_url" env:"VOICECLONE_SERVICE_URL"`
	Binary     string `toml:"binary"`
	// Token is only read from the environment.
	Token string `toml:"-" env:"HF_TOKEN"`

	Preset            string  `toml:"preset"`
	Language          string  `toml:"language"`
	Candidates        int     `toml:"candidates"`
	Temperature       float64 `toml:"temperature"`
	LengthPenalty     float64 `toml:"length_penalty"`
	TopP              float64 `toml:"top_p"`
	RepetitionPenalty float64 `toml:"repetition_penalty"`
	Seed              int     `toml:"seed"`
	OutputSampleRate  int     `toml:"output_sample_rate"`

	ChunkSize      int `toml:"chunk_size"`
	Workers        int `toml:"workers"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// VoiceConfig locates the speaker's samples.
type VoiceConfig struct {
	Dir            string `toml:"dir" env:"VOICECLONE_VOICE_DIR"`
	VoicesDir      string `toml:"voices_dir"`
	Watch          bool   `toml:"watch"`
	DebounceMillis int    `toml:"debounce_millis"`
}

// EncoderConfig drives batch conversion and sample resampling.
type EncoderConfig struct {
	Binary       string        `toml:"binary"`
	SourceDir    string        `toml:"source_dir"`
	TargetDir    string        `toml:"target_dir"`
	SourceFormat string        `toml:"source_format"`
	Prefix       string        `toml:"prefix"`
	Quality      audio.Quality `toml:"quality"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	OutputDir   string `toml:"output_dir"`
	CacheDir    string `toml:"cache_dir" env:"CACHE_DIR"`
}

// Config is the root configuration structure.
type Config struct {
	NATS    NATSConfig    `toml:"nats"`
	TTS     TTSConfig     `toml:"tts"`
	Voice   VoiceConfig   `toml:"voice"`
	Encoder EncoderConfig `toml:"encoder"`
	Paths   PathsConfig   `toml:"paths"`
}

// Load loads project.toml through the configurator, then applies
// environment overrides, defaults and validation.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finalize(&cfg)
}

// FindProjectFile returns the nearest project.toml in dir or its parents.
func FindProjectFile(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for {
		candidate := filepath.Join(current, ProjectFileName)

		info, statErr := os.Stat(candidate)
		if statErr == nil && !info.IsDir() {
			return candidate, nil
		}

		if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
			return "", fmt.Errorf("failed to check %s: %w", candidate, statErr)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w from %s", ErrProjectFileNotFound, dir)
		}

		current = parent
	}
}

// LoadFile loads the TOML file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes TOML data and finalizes it.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return finalize(&cfg)
}

// Default returns the configuration used when no file is available.
func Default() (*Config, error) {
	return finalize(&Config{})
}

// finalize applies environment overrides, then defaults, then validation.
func finalize(cfg *Config) (*Config, error) {
	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	cfg.ApplyDefaults()

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.applyTTSDefaults()
	c.applyVoiceDefaults()
	c.applyEncoderDefaults()

	setString(&c.NATS.URL, DefaultNATSURL)
	setString(&c.NATS.TextProcessedSubject, DefaultTextSubject)
	setString(&c.NATS.AudioChunkCreatedSubject, DefaultAudioSubject)
	setString(&c.NATS.AudioObjectStoreBucket, DefaultAudioBucket)

	setString(&c.Paths.CacheDir, ttsutils.GetCacheDir())
	setString(&c.Paths.BaseLogsDir, filepath.Join(c.Paths.CacheDir, logsDirName))
	setString(&c.Paths.OutputDir, DefaultOutputDir)
}

func (c *Config) applyTTSDefaults() {
	setString(&c.TTS.Backend, BackendHTTP)
	setString(&c.TTS.ServiceURL, DefaultServiceURL)
	setString(&c.TTS.Binary, DefaultInferenceBinary)
	setString(&c.TTS.Preset, preset.Fast)
	setString(&c.TTS.Language, tts.DefaultLanguage)

	if c.TTS.Candidates == 0 {
		c.TTS.Candidates = tts.DefaultCandidates
	}

	if c.TTS.Temperature == 0 {
		c.TTS.Temperature = tts.DefaultTemperature
	}

	if c.TTS.LengthPenalty == 0 {
		c.TTS.LengthPenalty = tts.DefaultLengthPenalty
	}

	if c.TTS.OutputSampleRate == 0 {
		c.TTS.OutputSampleRate = audio.OUTPUT_SAMPLE_RATE
	}

	if c.TTS.Workers == 0 {
		c.TTS.Workers = DefaultWorkers
	}

	if c.TTS.TimeoutSeconds == 0 {
		c.TTS.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

func (c *Config) applyVoiceDefaults() {
	setString(&c.Voice.Dir, DefaultVoiceDir)
	setString(&c.Voice.VoicesDir, DefaultVoicesDir)

	if c.Voice.DebounceMillis == 0 {
		c.Voice.DebounceMillis = DefaultDebounceMillis
	}
}

func (c *Config) applyEncoderDefaults() {
	setString(&c.Encoder.Binary, encoder.DefaultBinary)
	setString(&c.Encoder.SourceDir, DefaultSourceDir)
	setString(&c.Encoder.TargetDir, filepath.Join(c.Voice.Dir, "samples"))
	setString(&c.Encoder.SourceFormat, DefaultSourceFormat)
	setString(&c.Encoder.Prefix, encoder.DefaultPrefix)

	if c.Encoder.Quality == (audio.Quality{}) {
		c.Encoder.Quality = audio.NewDefaultQuality()
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.TTS.Backend {
	case BackendHTTP, BackendCommand:
	default:
		return fmt.Errorf(errFmtInvalidConfig, ErrInvalidConfig,
			"tts.backend must be \""+BackendHTTP+"\" or \""+BackendCommand+"\", got \""+c.TTS.Backend+"\"")
	}

	_, presetErr := preset.ByName(c.TTS.Preset)
	if presetErr != nil {
		return fmt.Errorf(errFmtInvalidConfigWrap, ErrInvalidConfig, presetErr)
	}

	if c.TTS.Workers < 1 || c.TTS.ChunkSize < 0 || c.TTS.TimeoutSeconds < 0 || c.TTS.Candidates < 1 {
		return fmt.Errorf(errFmtInvalidConfig, ErrInvalidConfig,
			"tts.workers and tts.candidates must be >= 1, chunk_size and timeout_seconds >= 0")
	}

	if c.TTS.TopP < 0 || c.TTS.TopP > 1 || c.TTS.Temperature < 0 {
		return fmt.Errorf(errFmtInvalidConfig, ErrInvalidConfig, "tts.top_p must be in [0,1] and temperature >= 0")
	}

	_, formatErr := audio.ParseFormat(c.Encoder.SourceFormat)
	if formatErr != nil {
		return fmt.Errorf(errFmtInvalidConfigWrap, ErrInvalidConfig, formatErr)
	}

	qualityErr := c.Encoder.Quality.Validate()
	if qualityErr != nil {
		return fmt.Errorf(errFmtInvalidConfigWrap, ErrInvalidConfig, qualityErr)
	}

	if strings.TrimSpace(c.Voice.Dir) == "" {
		return fmt.Errorf(errFmtInvalidConfig, ErrInvalidConfig, "voice.dir cannot be empty")
	}

	return nil
}

// Timeout is the per-request synthesis timeout.
func (c TTSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InferenceParams returns the sampling parameters sent with every request.
func (c TTSConfig) InferenceParams() core.InferenceParams {
	return core.InferenceParams{
		Candidates:        c.Candidates,
		Temperature:       c.Temperature,
		LengthPenalty:     c.LengthPenalty,
		TopP:              c.TopP,
		RepetitionPenalty: c.RepetitionPenalty,
		Seed:              c.Seed,
		OutputSampleRate:  c.OutputSampleRate,
	}
}

// EngineConfig returns the engine settings for output written to outputDir.
func (c *Config) EngineConfig() tts.EngineConfig {
	return tts.EngineConfig{
		Language:     c.TTS.Language,
		Params:       c.TTS.InferenceParams(),
		ChunkSize:    c.TTS.ChunkSize,
		Workers:      c.TTS.Workers,
		OutputDir:    c.Paths.OutputDir,
		ChunkTimeout: c.TTS.Timeout(),
	}
}

// Debounce is the watcher debounce interval.
func (c VoiceConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// NewSynthesizer builds the configured backend.
func (c *Config) NewSynthesizer(log *logger.Logger) (core.Synthesizer, error) {
	if c.TTS.Backend == BackendCommand {
		return tts.NewCommandSynthesizer(c.TTS.Binary, c.TTS.Token, log)
	}

	return tts.NewHTTPClient(c.TTS.ServiceURL, c.TTS.Token, c.TTS.Timeout()), nil
}

// NewEncoder builds the encoder runner.
func (c *Config) NewEncoder(log *logger.Logger) (*encoder.Runner, error) {
	return encoder.New(c.Encoder.Binary, c.Encoder.Quality, log)
}

func setString(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
