package tts_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/preset"
	"github.com/juanvolpe/voiceJuan/internal/wav"
	"github.com/stretchr/testify/require"
)

// createTestLogger creates a logger writing into the test's temp dir.
func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	lg, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = lg.Close() })

	return lg
}

// createMockTTSServer creates a mock HTTP server that simulates TTS service responses.
func createMockTTSServer(
	t *testing.T,
	responses map[string]http.HandlerFunc,
) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, exists := responses[r.URL.Path]
		if !exists {
			t.Errorf("Unexpected request path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)

			return
		}

		handler(w, r)
	}))

	t.Cleanup(server.Close)

	return server
}

// pcmWAV returns a 22050 Hz mono 16-bit WAV with frames frames of value fill.
func pcmWAV(frames int, fill byte) []byte {
	pcm := make([]byte, frames*2)
	for i := range pcm {
		pcm[i] = fill
	}

	data, err := wav.Encode(wav.Info{AudioFormat: wav.FormatPCM, Channels: 1, SampleRate: 22050, BitsPerSample: 16}, pcm)
	if err != nil {
		panic(err)
	}

	return data
}

func testSamples() []core.VoiceSample {
	return []core.VoiceSample{
		{Name: "juan_0.wav", SampleRate: 22050, Channels: 1, Audio: pcmWAV(4, 1)},
		{Name: "juan_1.wav", SampleRate: 22050, Channels: 1, Audio: pcmWAV(4, 2)},
	}
}

func fastPreset(t *testing.T) core.PresetParams {
	t.Helper()

	p, err := preset.ByName(preset.Fast)
	require.NoError(t, err)

	return p
}
