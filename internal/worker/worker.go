// Package worker provides a NATS worker that synthesizes text jobs in a cloned voice.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/nats-io/nats.go"
)

// DefaultJobTimeout bounds one job when Config.JobTimeout is unset.
const DefaultJobTimeout = 10 * time.Minute

const audioKeySuffix = ".wav"

var (
	// ErrTopPRange indicates that the TopP parameter is out of the valid range [0.0, 1.0].
	ErrTopPRange = errors.New("top_p must be between 0.0 and 1.0")
	// ErrRepetitionPenaltyRange indicates that the RepetitionPenalty parameter is out of the valid range [1.0, ...).
	ErrRepetitionPenaltyRange = errors.New("repetition penalty must be >= 1.0")
	// ErrTemperatureRange indicates that the Temperature parameter is out of the valid range [0.0, ...).
	ErrTemperatureRange = errors.New("temperature must be >= 0.0")
	// ErrEmptyText indicates that the downloaded job text is empty.
	ErrEmptyText = errors.New("job text is empty")
)

// Config holds the worker's subscription and synthesis settings.
type Config struct {
	Subject string
	Queue   string
	// AnnounceSubject, when set, also receives every AudioChunkCreatedEvent
	// after the requester has been answered.
	AnnounceSubject string
	Preset          core.PresetParams
	Params          core.InferenceParams
	JobTimeout      time.Duration
}

// NatsWorker listens for TextProcessedEvent jobs and replies with AudioChunkCreatedEvent.
type NatsWorker struct {
	natsConnection *nats.Conn
	config         Config
	store          core.ObjectStore
	voices         VoiceResolver
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	cfg Config,
	store core.ObjectStore,
	voices VoiceResolver,
	log *logger.Logger,
) *NatsWorker {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		config:         cfg,
		store:          store,
		voices:         voices,
		log:            log,
	}
}

// Run subscribes and handles jobs until ctx is done, then drains the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	var (
		sub *nats.Subscription
		err error
	)

	if w.config.Queue != "" {
		sub, err = w.natsConnection.QueueSubscribe(w.config.Subject, w.config.Queue, w.handleMessage)
	} else {
		sub, err = w.natsConnection.Subscribe(w.config.Subject, w.handleMessage)
	}

	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.config.Subject, err)
	}

	w.log.System("Listening for jobs on subject: %s", w.config.Subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.JobTimeout)
	defer cancel()

	event, err := parseEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse event: %v", err)

		return
	}

	audioKey, processErr := w.processJob(ctx, event)
	if processErr != nil {
		w.log.Error("Failed to process TTS job for workflow %s: %v", event.Header.WorkflowID, processErr)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		w.log.Error("Failed to marshal reply event for workflow %s: %v", event.Header.WorkflowID, err)

		return
	}

	err = msg.Respond(replyData)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)

		deleteErr := w.store.Delete(ctx, audioKey)
		if deleteErr != nil {
			w.log.Warn("Failed to delete orphaned audio %s: %v", audioKey, deleteErr)
		}

		return
	}

	if w.config.AnnounceSubject == "" {
		return
	}

	announceErr := w.natsConnection.Publish(w.config.AnnounceSubject, replyData)
	if announceErr != nil {
		w.log.Warn("Failed to announce audio %s on %s: %v", audioKey, w.config.AnnounceSubject, announceErr)
	}
}

// processJob downloads the text, synthesizes it in the requested voice and uploads the audio.
func (w *NatsWorker) processJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	params, err := w.jobParams(event)
	if err != nil {
		return "", err
	}

	synth, err := w.voices.Resolve(event.Voice)
	if err != nil {
		return "", err
	}

	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text data for key '%s': %w", event.TextKey, err)
	}

	if len(textData) == 0 {
		return "", fmt.Errorf("%w: key '%s'", ErrEmptyText, event.TextKey)
	}

	speech, err := synth.SynthesizeWith(ctx, string(textData), w.config.Preset, params)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize speech: %w", err)
	}

	if speech.Failed > 0 {
		w.log.Warn("Workflow %s: %d of %d chunks failed", event.Header.WorkflowID, speech.Failed, speech.Chunks)
	}

	audioKey := uuid.NewString() + audioKeySuffix

	err = w.store.Upload(ctx, audioKey, speech.Audio)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	w.log.Info("Workflow %s page %d: uploaded %s (%d bytes)", event.Header.WorkflowID, event.PageNumber, audioKey, len(speech.Audio))

	return audioKey, nil
}

// jobParams validates the event's sampling overrides and merges them into the
// configured parameters. Zero values keep the configured value.
func (w *NatsWorker) jobParams(event *events.TextProcessedEvent) (core.InferenceParams, error) {
	if event.TopP < 0.0 || event.TopP > 1.0 {
		return core.InferenceParams{}, fmt.Errorf("%w: got %f", ErrTopPRange, event.TopP)
	}

	if event.RepetitionPenalty != 0 && event.RepetitionPenalty < 1.0 {
		return core.InferenceParams{}, fmt.Errorf("%w: got %f", ErrRepetitionPenaltyRange, event.RepetitionPenalty)
	}

	if event.Temperature < 0.0 {
		return core.InferenceParams{}, fmt.Errorf("%w: got %f", ErrTemperatureRange, event.Temperature)
	}

	params := w.config.Params

	if event.TopP != 0 {
		params.TopP = event.TopP
	}

	if event.RepetitionPenalty != 0 {
		params.RepetitionPenalty = event.RepetitionPenalty
	}

	if event.Temperature != 0 {
		params.Temperature = event.Temperature
	}

	if event.Seed != 0 {
		params.Seed = event.Seed
	}

	return params, nil
}

// publishReplyEvent marshals and responds with the AudioChunkCreatedEvent.
func parseEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}
