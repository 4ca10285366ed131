// Package tts talks to the voice-cloning model and turns text into speech
// files.
//
// The model runs out of process. HTTPClient reaches it as an inference
// service and CommandSynthesizer runs it as a local command. Engine sits on
// top of either one.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juanvolpe/voiceJuan/internal/core"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
	contentTypeWAV      = "audio/wav"
	bearerPrefix        = "Bearer "
)

// Default values.
const (
	DefaultLanguage      = "es"
	DefaultCandidates    = 2
	DefaultTemperature   = 0.8
	DefaultLengthPenalty = 1.0
)

// Error messages.
const (
	errFmtUnexpectedContentType = "%w: expected audio/wav, got %s"
	errFmtServiceErrorWithCode  = "%w (%s): %s (code: %s)"
	errFmtServiceNonOKStatus    = "%w: status %s, body: %s"
)

var (
	// ErrEmptyText is returned when a synthesis request carries no text.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoVoiceSamples is returned when a synthesis request carries no samples.
	ErrNoVoiceSamples = errors.New("at least one voice sample is required")
	// ErrUnexpectedContentType is returned when the service does not answer with WAV.
	ErrUnexpectedContentType = errors.New("unexpected content type")
	// ErrEmptyAudio is returned when the service answers with an empty body.
	ErrEmptyAudio = errors.New("received empty audio data")
	// ErrService is returned when the service answers with a non-OK status.
	ErrService = errors.New("TTS service error")
)

// HTTPClient is a core.Synthesizer backed by a voice-cloning inference service.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// SpeechRequest is the JSON payload of POST /v1/generate/speech.
type SpeechRequest struct {
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Preset   PresetPayload   `json:"preset"`
	Samples  []SamplePayload `json:"voice_samples"`

	Candidates        int     `json:"k"`
	Temperature       float64 `json:"temperature"`
	LengthPenalty     float64 `json:"length_penalty"`
	TopP              float64 `json:"top_p,omitempty"`
	RepetitionPenalty float64 `json:"repetition_penalty,omitempty"`
	Seed              int     `json:"seed,omitempty"`
	OutputSampleRate  int     `json:"output_sample_rate,omitempty"`
}

// PresetPayload carries the preset's inference parameters.
type PresetPayload struct {
	Name                     string `json:"name"`
	NumAutoregressiveSamples int    `json:"num_autoregressive_samples"`
	DiffusionIterations      int    `json:"diffusion_iterations"`
	CondFree                 bool   `json:"cond_free"`
}

// SamplePayload is one voice sample, base64 encoded.
type SamplePayload struct {
	Name       string `json:"name"`
	SampleRate int    `json:"sample_rate"`
	Audio      string `json:"audio"`
}

// ErrorResponse is a structured error returned by the service.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient creates a client for the service at baseURL
// (e.g. "http://localhost:8000"). The token is sent as a bearer credential
// when non-empty.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewSpeechRequest converts a core request into the wire payload, filling
// defaults for unset parameters.
func NewSpeechRequest(req core.SynthesisRequest) SpeechRequest {
	params := withDefaults(req.Params)

	language := req.Language
	if language == "" {
		language = DefaultLanguage
	}

	samples := make([]SamplePayload, 0, len(req.Samples))
	for _, s := range req.Samples {
		samples = append(samples, SamplePayload{
			Name:       s.Name,
			SampleRate: s.SampleRate,
			Audio:      base64.StdEncoding.EncodeToString(s.Audio),
		})
	}

	return SpeechRequest{
		Text:     req.Text,
		Language: language,
		Preset: PresetPayload{
			Name:                     req.Preset.Name,
			NumAutoregressiveSamples: req.Preset.NumAutoregressiveSamples,
			DiffusionIterations:      req.Preset.DiffusionIterations,
			CondFree:                 req.Preset.CondFree,
		},
		Samples:           samples,
		Candidates:        params.Candidates,
		Temperature:       params.Temperature,
		LengthPenalty:     params.LengthPenalty,
		TopP:              params.TopP,
		RepetitionPenalty: params.RepetitionPenalty,
		Seed:              params.Seed,
		OutputSampleRate:  params.OutputSampleRate,
	}
}

// Synthesize sends the request to the service and returns the WAV body.
func (c *HTTPClient) Synthesize(ctx context.Context, req core.SynthesisRequest) ([]byte, error) {
	validateErr := validateRequest(req)
	if validateErr != nil {
		return nil, validateErr
	}

	requestBody, err := json.Marshal(NewSpeechRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiGenerateSpeech,
		bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if !strings.HasPrefix(contentType, contentTypeWAV) {
		return nil, fmt.Errorf(errFmtUnexpectedContentType, ErrUnexpectedContentType, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the service is running.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set(headerAuthorization, bearerPrefix+c.token)
	}
}

// parseErrorResponse decodes a structured JSON error, falling back to the raw body.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errorResp ErrorResponse

	err := json.Unmarshal(body, &errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode, ErrService, resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf(errFmtServiceNonOKStatus, ErrService, resp.Status, strings.TrimSpace(string(body)))
}

func validateRequest(req core.SynthesisRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrEmptyText
	}

	if len(req.Samples) == 0 {
		return ErrNoVoiceSamples
	}

	return nil
}

func withDefaults(params core.InferenceParams) core.InferenceParams {
	if params.Candidates <= 0 {
		params.Candidates = DefaultCandidates
	}

	if params.Temperature == 0 {
		params.Temperature = DefaultTemperature
	}

	if params.LengthPenalty == 0 {
		params.LengthPenalty = DefaultLengthPenalty
	}

	return params
}
