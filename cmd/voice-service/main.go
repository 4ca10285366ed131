// main package for the voice-service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/config"
	"github.com/juanvolpe/voiceJuan/internal/objectstore"
	"github.com/juanvolpe/voiceJuan/internal/preset"
	"github.com/juanvolpe/voiceJuan/internal/voice"
	"github.com/juanvolpe/voiceJuan/internal/worker"
	"github.com/nats-io/nats.go"
)

const (
	bootstrapLogFile = "voice-service-bootstrap.log"
	serviceLogFile   = "voice-service.log"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

func run(ctx context.Context) error {
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(ctx, cfg, finalLog)
}

// serve connects to NATS, wires the voice library and runs the worker until ctx is done.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	conn, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer conn.Close()

	js, err := conn.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(js, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return err
	}

	library, err := newLibrary(cfg, log)
	if err != nil {
		return err
	}

	healthErr := library.HealthCheck(ctx)
	if healthErr != nil {
		// The backend may come up after the worker; jobs fail until it does.
		log.Warn("TTS backend not ready: %v", healthErr)
	}

	jobPreset, err := preset.ByName(cfg.TTS.Preset)
	if err != nil {
		return err
	}

	natsWorker := worker.NewNatsWorker(conn, worker.Config{
		Subject:         cfg.NATS.TextProcessedSubject,
		Queue:           cfg.NATS.TTSConsumerName,
		AnnounceSubject: cfg.NATS.AudioChunkCreatedSubject,
		Preset:          jobPreset,
		Params:          cfg.TTS.InferenceParams(),
		JobTimeout:      cfg.TTS.Timeout(),
	}, store, library, log)

	var watchers sync.WaitGroup

	if cfg.Voice.Watch {
		watchErr := watchVoices(ctx, &watchers, cfg, library, log)
		if watchErr != nil {
			return watchErr
		}
	}

	log.System("voice-service initialized. Listening for jobs on subject: %s", cfg.NATS.TextProcessedSubject)

	runErr := natsWorker.Run(ctx)

	watchers.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("worker stopped: %w", runErr)
	}

	return nil
}

func newLibrary(cfg *config.Config, log *logger.Logger) (*worker.Library, error) {
	synth, err := cfg.NewSynthesizer(log)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}

	var resampler voice.Resampler

	runner, err := cfg.NewEncoder(log)
	if err == nil {
		err = runner.Available()
	}

	if err != nil {
		log.Warn("Samples will not be resampled: %v", err)
	} else {
		resampler = runner
	}

	return worker.NewLibrary(cfg.Voice.VoicesDir, synth, cfg.EngineConfig(), resampler, log), nil
}

// watchVoices starts one watcher per voice; each resyncs its voice on change
// and stops when ctx is done.
func watchVoices(
	ctx context.Context,
	group *sync.WaitGroup,
	cfg *config.Config,
	library *worker.Library,
	log *logger.Logger,
) error {
	names, err := library.Voices()
	if err != nil {
		return err
	}

	for _, name := range names {
		dir, dirErr := library.Dir(name)
		if dirErr != nil {
			return dirErr
		}

		voiceName := name

		watcher, watchErr := voice.NewWatcher(dir, cfg.Voice.Debounce(), func() {
			_, resyncErr := library.Resync(voiceName)
			if resyncErr != nil {
				log.Error("Failed to resync voice '%s': %v", voiceName, resyncErr)
			}
		}, log)
		if watchErr != nil {
			return watchErr
		}

		group.Add(1)

		go func() {
			defer group.Done()
			defer func() { _ = watcher.Close() }()

			watcher.Run(ctx)
		}()

		log.Info("Watching samples of voice '%s'", voiceName)
	}

	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
