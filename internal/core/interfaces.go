// Package core defines the core business types and interfaces for the voice-cloning pipeline.
package core

import "context"

// ObjectStore is the blob store the service exchanges job text and audio through.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// VoiceSample is one decoded-and-validated reference recording of the target speaker.
// Audio holds a complete WAV file at the conditioning sample rate.
type VoiceSample struct {
	Name       string
	SampleRate int
	Channels   int
	Audio      []byte
}

// PresetParams is the named bundle of inference parameters forwarded to the model.
type PresetParams struct {
	Name                     string
	NumAutoregressiveSamples int
	DiffusionIterations      int
	CondFree                 bool
}

// InferenceParams holds the per-request sampling parameters forwarded verbatim to
// the model alongside the preset.
type InferenceParams struct {
	Candidates        int
	Temperature       float64
	LengthPenalty     float64
	TopP              float64
	RepetitionPenalty float64
	Seed              int
	OutputSampleRate  int
}

// SynthesisRequest is a single call into the wrapped TTS model.
type SynthesisRequest struct {
	Text     string
	Language string
	Preset   PresetParams
	Samples  []VoiceSample
	Params   InferenceParams
}

// Synthesizer turns text plus voice conditioning into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// HealthChecker reports whether a synthesis backend is ready to take work.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CacheChoice is the user's answer to "use the voice cache or reprocess samples".
type CacheChoice int

const (
	// CacheUse loads the cached voice conditioning.
	CacheUse CacheChoice = iota + 1
	// CacheReprocess reloads every sample from disk.
	CacheReprocess
)

// Prompter asks the operator for decisions the pipeline cannot make alone.
type Prompter interface {
	CacheChoice() (CacheChoice, error)
	Confirm(question string) (bool, error)
}
