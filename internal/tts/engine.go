package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/tts/text"
	"github.com/juanvolpe/voiceJuan/internal/tts/ttsutils"
	"github.com/juanvolpe/voiceJuan/internal/wav"
)

const (
	// HealthCheckTimeout defines the timeout for health check operations.
	HealthCheckTimeout = 10 * time.Second

	// File and directory permissions.
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Static errors.
var (
	ErrChunksPathEmpty = errors.New("chunks path cannot be empty")
	ErrOutputDirEmpty  = errors.New("output directory cannot be empty")
	ErrTextEmpty       = errors.New("text is empty after preprocessing")
	ErrNoChunksFound   = errors.New("no chunks found")
	ErrNoAudio         = errors.New("no chunk produced audio")
)

const (
	errFmtHealthCheckFailed     = "TTS backend health check failed: %w"
	errFmtChunkFailed           = "chunk %d failed: %w"
	logFmtBackendHealthy        = "TTS backend is healthy, processing %d chunks"
	logFmtGeneratedAudio        = "Generated audio: %s (%d bytes)"
	logFmtChunkProcessingFailed = "Failed to process chunk %d: %v"
	logFmtChunkProcessed        = "Processed chunk %d/%d"
	logFmtSpeaking              = "Generating speech for %d chars in %d chunks with preset %s"
	outputFileFormat            = "chunk_%04d.wav"
)

// SampleSource provides the voice conditioning for synthesis.
type SampleSource interface {
	Samples(ctx context.Context) ([]core.VoiceSample, error)
}

// EngineConfig controls how text is split and synthesized.
type EngineConfig struct {
	Language     string
	Params       core.InferenceParams
	ChunkSize    int // 0 sends the whole text in one request
	Workers      int
	OutputDir    string
	ChunkTimeout time.Duration
}

// SpeakRequest is one text-to-file synthesis.
type SpeakRequest struct {
	Text   string
	Preset core.PresetParams
	Output string
}

// Speech is synthesized audio for one text.
type Speech struct {
	Audio    []byte
	Chunks   int
	Failed   int
	LoadTime time.Duration
	GenTime  time.Duration
}

// Result describes a finished Speak call.
type Result struct {
	OutputPath string
	Chunks     int
	Failed     int
	Bytes      int
	Duration   time.Duration
	LoadTime   time.Duration
	GenTime    time.Duration
}

// Engine orchestrates preprocessing, chunking, parallel synthesis and
// concatenation on top of a core.Synthesizer.
type Engine struct {
	synth        core.Synthesizer
	voice        SampleSource
	preprocessor *text.Preprocessor
	config       EngineConfig
	logger       *logger.Logger
	now          func() time.Time
}

// NewEngine creates an engine. Workers below one are raised to one.
func NewEngine(synth core.Synthesizer, voice SampleSource, cfg EngineConfig, log *logger.Logger) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	return &Engine{
		synth:        synth,
		voice:        voice,
		preprocessor: text.NewPreprocessor(),
		config:       cfg,
		logger:       log,
		now:          time.Now,
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Preprocess returns input as it will be sent to the model.
func (e *Engine) Preprocess(input string) string {
	return e.preprocessor.PreprocessText(input)
}

// HealthCheck checks the backend when it supports health checks.
func (e *Engine) HealthCheck(ctx context.Context) error {
	checker, ok := e.synth.(core.HealthChecker)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	healthErr := checker.HealthCheck(ctx)
	if healthErr != nil {
		return fmt.Errorf(errFmtHealthCheckFailed, healthErr)
	}

	return nil
}

// Speak synthesizes req.Text and writes the WAV file.
func (e *Engine) Speak(ctx context.Context, req SpeakRequest) (Result, error) {
	speech, err := e.Synthesize(ctx, req.Text, req.Preset)
	if err != nil {
		return Result{}, err
	}

	outputPath := ttsutils.ResolveOutputPath(e.config.OutputDir, req.Output, e.now())

	writeErr := writeAudio(outputPath, speech.Audio)
	if writeErr != nil {
		return Result{}, writeErr
	}

	e.logger.Info(logFmtGeneratedAudio, outputPath, len(speech.Audio))

	result := Result{
		OutputPath: outputPath,
		Chunks:     speech.Chunks,
		Failed:     speech.Failed,
		Bytes:      len(speech.Audio),
		LoadTime:   speech.LoadTime,
		GenTime:    speech.GenTime,
	}

	info, _, parseErr := wav.Parse(speech.Audio)
	if parseErr == nil {
		result.Duration = info.Duration()
	}

	return result, nil
}

// Synthesize preprocesses and chunks input, synthesizes every chunk and
// joins the audio in order. Failed chunks are logged and left out.
func (e *Engine) Synthesize(ctx context.Context, input string, preset core.PresetParams) (Speech, error) {
	return e.SynthesizeWith(ctx, input, preset, e.config.Params)
}

// SynthesizeWith is Synthesize with explicit inference parameters.
func (e *Engine) SynthesizeWith(
	ctx context.Context,
	input string,
	preset core.PresetParams,
	params core.InferenceParams,
) (Speech, error) {
	cleaned := e.Preprocess(input)
	if cleaned == "" {
		return Speech{}, ErrTextEmpty
	}

	loadStart := time.Now()

	samples, err := e.voice.Samples(ctx)
	if err != nil {
		return Speech{}, fmt.Errorf("failed to load voice samples: %w", err)
	}

	loadTime := time.Since(loadStart)

	chunks := text.ChunkText(cleaned, e.config.ChunkSize)
	e.logger.Info(logFmtSpeaking, len(cleaned), len(chunks), preset.Name)

	genStart := time.Now()
	parts := e.synthesizeParallel(ctx, chunks, preset, params, samples)
	genTime := time.Since(genStart)

	var audio [][]byte

	for _, part := range parts {
		if part != nil {
			audio = append(audio, part)
		}
	}

	if len(audio) == 0 {
		if ctx.Err() != nil {
			return Speech{}, ctx.Err()
		}

		return Speech{}, ErrNoAudio
	}

	joined, err := wav.Concat(audio...)
	if err != nil {
		return Speech{}, fmt.Errorf("failed to join chunk audio: %w", err)
	}

	return Speech{
		Audio:    joined,
		Chunks:   len(chunks),
		Failed:   len(chunks) - len(audio),
		LoadTime: loadTime,
		GenTime:  genTime,
	}, nil
}

// ProcessChunks reads a JSON array of strings from chunksPath and writes
// one chunk_NNNN.wav per entry into outputDir.
func (e *Engine) ProcessChunks(ctx context.Context, chunksPath, outputDir string, preset core.PresetParams) error {
	if chunksPath == "" {
		return ErrChunksPathEmpty
	}

	if outputDir == "" {
		return ErrOutputDirEmpty
	}

	chunks, err := readChunksFile(chunksPath)
	if err != nil {
		return fmt.Errorf("failed to read chunks: %w", err)
	}

	dirErr := os.MkdirAll(outputDir, dirPermissions)
	if dirErr != nil {
		return fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	healthErr := e.HealthCheck(ctx)
	if healthErr != nil {
		return healthErr
	}

	e.logger.Info(logFmtBackendHealthy, len(chunks))

	samples, err := e.voice.Samples(ctx)
	if err != nil {
		return fmt.Errorf("failed to load voice samples: %w", err)
	}

	return e.processChunksParallel(ctx, chunks, outputDir, preset, samples)
}

func (e *Engine) request(
	chunk string,
	preset core.PresetParams,
	params core.InferenceParams,
	samples []core.VoiceSample,
) core.SynthesisRequest {
	return core.SynthesisRequest{
		Text:     chunk,
		Language: e.config.Language,
		Preset:   preset,
		Samples:  samples,
		Params:   params,
	}
}

func (e *Engine) synthesizeChunk(ctx context.Context, req core.SynthesisRequest) ([]byte, error) {
	if e.config.ChunkTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.config.ChunkTimeout)
		defer cancel()
	}

	return e.synth.Synthesize(ctx, req)
}

// synthesizeParallel returns one entry per chunk, nil for failed chunks.
func (e *Engine) synthesizeParallel(
	ctx context.Context,
	chunks []string,
	preset core.PresetParams,
	params core.InferenceParams,
	samples []core.VoiceSample,
) [][]byte {
	parts := make([][]byte, len(chunks))

	_ = e.forEachChunk(ctx, chunks, func(index int, chunk string) error {
		audio, err := e.synthesizeChunk(ctx, e.request(chunk, preset, params, samples))
		if err != nil {
			return err
		}

		parts[index] = audio

		return nil
	})

	return parts
}

func (e *Engine) processChunksParallel(
	ctx context.Context,
	chunks []string,
	outputDir string,
	preset core.PresetParams,
	samples []core.VoiceSample,
) error {
	return e.forEachChunk(ctx, chunks, func(index int, chunk string) error {
		cleaned := e.preprocessor.PreprocessText(chunk)
		if cleaned == "" {
			return ErrTextEmpty
		}

		audio, err := e.synthesizeChunk(ctx, e.request(cleaned, preset, e.config.Params, samples))
		if err != nil {
			return err
		}

		outputPath := filepath.Join(outputDir, fmt.Sprintf(outputFileFormat, index+1))

		writeErr := writeAudio(outputPath, audio)
		if writeErr != nil {
			return writeErr
		}

		e.logger.Info(logFmtGeneratedAudio, outputPath, len(audio))

		return nil
	})
}

// forEachChunk runs fn over chunks with at most Workers in flight. A failing
// chunk is logged and the others continue; the last failure is returned.
func (e *Engine) forEachChunk(ctx context.Context, chunks []string, fn func(index int, chunk string) error) error {
	var (
		waitGroup sync.WaitGroup
		mutex     sync.Mutex
		lastError error
	)

	workerPool := make(chan struct{}, e.config.Workers)

	for chunkIndex, chunk := range chunks {
		waitGroup.Add(1)

		go func(index int, chunkText string) {
			defer waitGroup.Done()

			select {
			case workerPool <- struct{}{}:
			case <-ctx.Done():
				mutex.Lock()
				lastError = fmt.Errorf(errFmtChunkFailed, index+1, ctx.Err())
				mutex.Unlock()

				return
			}

			defer func() { <-workerPool }()

			err := fn(index, chunkText)
			if err != nil {
				mutex.Lock()
				lastError = fmt.Errorf(errFmtChunkFailed, index+1, err)
				mutex.Unlock()

				e.logger.Error(logFmtChunkProcessingFailed, index+1, err)

				return
			}

			e.logger.Info(logFmtChunkProcessed, index+1, len(chunks))
		}(chunkIndex, chunk)
	}

	waitGroup.Wait()

	return lastError
}

func writeAudio(outputPath string, audio []byte) error {
	dirErr := os.MkdirAll(filepath.Dir(outputPath), dirPermissions)
	if dirErr != nil {
		return fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	writeErr := os.WriteFile(outputPath, audio, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	return nil
}
