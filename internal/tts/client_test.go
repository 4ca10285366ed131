package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Synthesize_Success(t *testing.T) {
	t.Parallel()

	samples := testSamples()
	audio := pcmWAV(10, 7)

	requests := make(chan tts.SpeechRequest, 1)

	server := createMockTTSServer(t, map[string]http.HandlerFunc{
		"/v1/generate/speech": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "audio/wav", r.Header.Get("Accept"))
			assert.Equal(t, "Bearer hf_secret", r.Header.Get("Authorization"))

			var decoded tts.SpeechRequest

			assert.NoError(t, json.NewDecoder(r.Body).Decode(&decoded))
			requests <- decoded

			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write(audio)
		},
	})

	client := tts.NewHTTPClient(server.URL+"/", "hf_secret", 10*time.Second)

	got, err := client.Synthesize(context.Background(), core.SynthesisRequest{
		Text:    "Hola , Señor .",
		Preset:  fastPreset(t),
		Samples: samples,
		Params:  core.InferenceParams{Seed: 42},
	})
	require.NoError(t, err)
	assert.Equal(t, audio, got)

	received := <-requests
	assert.Equal(t, "Hola , Señor .", received.Text)
	assert.Equal(t, "es", received.Language)
	assert.Equal(t, tts.PresetPayload{
		Name: "fast", NumAutoregressiveSamples: 96, DiffusionIterations: 80, CondFree: true,
	}, received.Preset)
	assert.Equal(t, 2, received.Candidates)
	assert.InDelta(t, 0.8, received.Temperature, 1e-9)
	assert.InDelta(t, 1.0, received.LengthPenalty, 1e-9)
	assert.Equal(t, 42, received.Seed)

	require.Len(t, received.Samples, 2)
	decoded, err := base64.StdEncoding.DecodeString(received.Samples[1].Audio)
	require.NoError(t, err)
	assert.Equal(t, samples[1].Audio, decoded)
	assert.Equal(t, "juan_1.wav", received.Samples[1].Name)
}

func TestHTTPClient_Synthesize_NoTokenNoHeader(t *testing.T) {
	t.Parallel()

	server := createMockTTSServer(t, map[string]http.HandlerFunc{
		"/v1/generate/speech": func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "audio/wav; codec=pcm")
			_, _ = w.Write(pcmWAV(2, 0))
		},
	})

	client := tts.NewHTTPClient(server.URL, "", 10*time.Second)

	_, err := client.Synthesize(context.Background(), core.SynthesisRequest{
		Text: "hola", Preset: fastPreset(t), Samples: testSamples(),
	})
	require.NoError(t, err)
}

func TestHTTPClient_Synthesize_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantErr  error
		contains string
	}{
		{
			name: "structured error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"detail":"voice samples too short","error_code":"SAMPLES_TOO_SHORT"}`))
			},
			wantErr:  tts.ErrService,
			contains: "SAMPLES_TOO_SHORT",
		},
		{
			name: "plain text error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("CUDA out of memory"))
			},
			wantErr:  tts.ErrService,
			contains: "CUDA out of memory",
		},
		{
			name: "wrong content type",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{}`))
			},
			wantErr: tts.ErrUnexpectedContentType,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "audio/wav")
			},
			wantErr: tts.ErrEmptyAudio,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := createMockTTSServer(t, map[string]http.HandlerFunc{"/v1/generate/speech": testCase.handler})
			client := tts.NewHTTPClient(server.URL, "", 10*time.Second)

			_, err := client.Synthesize(context.Background(), core.SynthesisRequest{
				Text: "hola", Preset: fastPreset(t), Samples: testSamples(),
			})
			require.ErrorIs(t, err, testCase.wantErr)

			if testCase.contains != "" {
				assert.Contains(t, err.Error(), testCase.contains)
			}
		})
	}
}

func TestHTTPClient_Synthesize_InvalidRequest(t *testing.T) {
	t.Parallel()

	client := tts.NewHTTPClient("http://127.0.0.1:1", "", time.Second)

	_, err := client.Synthesize(context.Background(), core.SynthesisRequest{Text: "  ", Samples: testSamples()})
	require.ErrorIs(t, err, tts.ErrEmptyText)

	_, err = client.Synthesize(context.Background(), core.SynthesisRequest{Text: "hola"})
	require.ErrorIs(t, err, tts.ErrNoVoiceSamples)
}

func TestHTTPClient_HealthCheck(t *testing.T) {
	t.Parallel()

	var healthy atomic.Bool

	healthy.Store(true)

	server := createMockTTSServer(t, map[string]http.HandlerFunc{
		"/health": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)

			if !healthy.Load() {
				w.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			_ = json.NewEncoder(w).Encode(map[string]any{"status": "healthy", "model_loaded": true})
		},
	})

	client := tts.NewHTTPClient(server.URL, "", 5*time.Second)
	require.NoError(t, client.HealthCheck(context.Background()))

	healthy.Store(false)
	require.Error(t, client.HealthCheck(context.Background()))

	unreachable := tts.NewHTTPClient("http://127.0.0.1:1", "", time.Second)
	require.Error(t, unreachable.HealthCheck(context.Background()))
}
