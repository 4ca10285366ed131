package tts_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/tts"
	"github.com/juanvolpe/voiceJuan/internal/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSynthFailed = errors.New("model crashed")

// fakeSynth returns a tiny WAV per request, fills it with the text length,
// and fails for texts containing "falla".
type fakeSynth struct {
	mu        sync.Mutex
	texts     []string
	inFlight  int
	maxFlight int
	healthErr error
}

func (f *fakeSynth) Synthesize(_ context.Context, req core.SynthesisRequest) ([]byte, error) {
	f.mu.Lock()
	f.texts = append(f.texts, req.Text)
	f.inFlight++

	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if strings.Contains(req.Text, "falla") {
		return nil, errSynthFailed
	}

	if len(req.Samples) == 0 {
		return nil, tts.ErrNoVoiceSamples
	}

	return pcmWAV(2, byte(len(req.Text))), nil
}

func (f *fakeSynth) HealthCheck(context.Context) error {
	return f.healthErr
}

type staticSamples struct {
	samples []core.VoiceSample
	err     error
}

func (s staticSamples) Samples(context.Context) ([]core.VoiceSample, error) {
	return s.samples, s.err
}

func newTestEngine(t *testing.T, synth core.Synthesizer, cfg tts.EngineConfig) *tts.Engine {
	t.Helper()

	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}

	return tts.NewEngine(synth, staticSamples{samples: testSamples()}, cfg, createTestLogger(t))
}

func TestEngine_Speak(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{}
	engine := newTestEngine(t, synth, tts.EngineConfig{ChunkSize: 12, Workers: 3})

	result, err := engine.Speak(context.Background(), tts.SpeakRequest{
		Text:   "Hola   Sr. García, ¿cómo está?",
		Preset: fastPreset(t),
		Output: "saludo",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(engine.Config().OutputDir, "saludo.wav"), result.OutputPath)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, len(synth.texts), result.Chunks)
	assert.Greater(t, result.Chunks, 1)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, result.Bytes, len(data))

	info, pcm, err := wav.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 22050, info.SampleRate)
	assert.Len(t, pcm, result.Chunks*4)

	joined := strings.Join(synth.texts, " ")
	assert.Contains(t, joined, "Señor")
	assert.NotContains(t, joined, "Sr.")
}

func TestEngine_Speak_DefaultOutputName(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &fakeSynth{}, tts.EngineConfig{})

	result, err := engine.Speak(context.Background(), tts.SpeakRequest{Text: "hola", Preset: fastPreset(t)})
	require.NoError(t, err)

	name := filepath.Base(result.OutputPath)
	assert.True(t, strings.HasPrefix(name, "spanish_output_"), name)
	assert.True(t, strings.HasSuffix(name, ".wav"), name)
	assert.Equal(t, 1, result.Chunks)
}

func TestEngine_Speak_SkipsFailedChunks(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &fakeSynth{}, tts.EngineConfig{ChunkSize: 10, Workers: 2})

	result, err := engine.Speak(context.Background(), tts.SpeakRequest{
		Text:   "uno dos tres falla cuatro cinco",
		Preset: fastPreset(t),
		Output: "parcial.wav",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, result.Chunks-1, int(result.Bytes-44)/4)
}

func TestEngine_Speak_Errors(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &fakeSynth{}, tts.EngineConfig{})

	_, err := engine.Speak(context.Background(), tts.SpeakRequest{Text: " \n\t ", Preset: fastPreset(t)})
	require.ErrorIs(t, err, tts.ErrTextEmpty)

	_, err = engine.Speak(context.Background(), tts.SpeakRequest{Text: "todo falla", Preset: fastPreset(t)})
	require.ErrorIs(t, err, tts.ErrNoAudio)

	noVoice := tts.NewEngine(&fakeSynth{}, staticSamples{err: errSynthFailed},
		tts.EngineConfig{OutputDir: t.TempDir()}, createTestLogger(t))

	_, err = noVoice.Speak(context.Background(), tts.SpeakRequest{Text: "hola", Preset: fastPreset(t)})
	require.ErrorIs(t, err, errSynthFailed)
}

func TestEngine_WorkerBound(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{}
	engine := newTestEngine(t, synth, tts.EngineConfig{ChunkSize: 4, Workers: 2})

	_, err := engine.Synthesize(context.Background(), "aa bb cc dd ee ff gg hh ii jj", fastPreset(t))
	require.NoError(t, err)
	assert.LessOrEqual(t, synth.maxFlight, 2)
	assert.Len(t, synth.texts, 10)
}

func TestEngine_ProcessChunks(t *testing.T) {
	t.Parallel()

	chunksPath := filepath.Join(t.TempDir(), "chunks.json")
	require.NoError(t, os.WriteFile(chunksPath, []byte(`["Hola.", "Adiós."]`), 0o600))

	outputDir := filepath.Join(t.TempDir(), "chunks")
	engine := newTestEngine(t, &fakeSynth{}, tts.EngineConfig{Workers: 2})

	require.NoError(t, engine.ProcessChunks(context.Background(), chunksPath, outputDir, fastPreset(t)))

	for _, name := range []string{"chunk_0001.wav", "chunk_0002.wav"} {
		_, err := os.Stat(filepath.Join(outputDir, name))
		require.NoError(t, err, name)
	}
}

func TestEngine_ProcessChunks_PreprocessesEachChunk(t *testing.T) {
	t.Parallel()

	chunksPath := filepath.Join(t.TempDir(), "chunks.json")
	require.NoError(t, os.WriteFile(chunksPath, []byte(`["Hola Sr. García, ¿cómo está?", " \n "]`), 0o600))

	outputDir := filepath.Join(t.TempDir(), "chunks")
	synth := &fakeSynth{}
	engine := newTestEngine(t, synth, tts.EngineConfig{})

	err := engine.ProcessChunks(context.Background(), chunksPath, outputDir, fastPreset(t))
	require.ErrorIs(t, err, tts.ErrTextEmpty, "a blank chunk is reported")

	synth.mu.Lock()
	defer synth.mu.Unlock()

	assert.Equal(t, []string{"Hola Señor García , ¿ cómo está ?"}, synth.texts)
	assert.FileExists(t, filepath.Join(outputDir, "chunk_0001.wav"))
	assert.NoFileExists(t, filepath.Join(outputDir, "chunk_0002.wav"))
}

func TestEngine_ProcessChunks_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o600))

	valid := filepath.Join(dir, "valid.json")
	require.NoError(t, os.WriteFile(valid, []byte(`["hola"]`), 0o600))

	engine := newTestEngine(t, &fakeSynth{}, tts.EngineConfig{})

	require.ErrorIs(t, engine.ProcessChunks(context.Background(), "", dir, fastPreset(t)), tts.ErrChunksPathEmpty)
	require.ErrorIs(t, engine.ProcessChunks(context.Background(), valid, "", fastPreset(t)), tts.ErrOutputDirEmpty)
	require.ErrorIs(t, engine.ProcessChunks(context.Background(), empty, dir, fastPreset(t)), tts.ErrNoChunksFound)

	unhealthy := newTestEngine(t, &fakeSynth{healthErr: errors.New("down")}, tts.EngineConfig{})
	require.Error(t, unhealthy.ProcessChunks(context.Background(), valid, dir, fastPreset(t)))
}

func TestEngine_OverHTTP(t *testing.T) {
	t.Parallel()

	server := createMockTTSServer(t, map[string]http.HandlerFunc{
		"/health": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
		"/v1/generate/speech": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write(pcmWAV(3, 9))
		},
	})

	client := tts.NewHTTPClient(server.URL, "", 5*time.Second)
	engine := newTestEngine(t, client, tts.EngineConfig{ChunkSize: 20, Workers: 2})

	require.NoError(t, engine.HealthCheck(context.Background()))

	result, err := engine.Speak(context.Background(), tts.SpeakRequest{
		Text:   "El Dr. Pérez llegó. La Sra. López también.",
		Preset: fastPreset(t),
		Output: "http.wav",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 44+result.Chunks*6, result.Bytes)
}
