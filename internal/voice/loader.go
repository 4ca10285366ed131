package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/tts/audio"
	"github.com/juanvolpe/voiceJuan/internal/wav"
)

// ErrSampleFormat is returned when a sample is not at the conditioning layout
// and no resampler is available.
var ErrSampleFormat = errors.New("sample has unsupported format")

const (
	logFmtSampleMissing  = "Sample %s not found, skipping"
	logFmtSampleFailed   = "Error loading sample %s: %v"
	logFmtSampleLoaded   = "Loaded sample %s (%s, %.1fs)"
	logFmtSampleResample = "Resampling %s from %s"
)

// Resampler converts audio to the conditioning layout.
type Resampler interface {
	Resample(ctx context.Context, name string, data []byte) ([]byte, error)
}

// Loader reads the samples listed in metadata into memory.
type Loader struct {
	voiceDir   string
	sampleRate int
	channels   int
	resampler  Resampler
	log        *logger.Logger
}

// NewLoader creates a loader targeting 22050 Hz mono. The resampler may be nil.
func NewLoader(voiceDir string, resampler Resampler, log *logger.Logger) *Loader {
	return &Loader{
		voiceDir:   voiceDir,
		sampleRate: audio.DEFAULT_SAMPLE_RATE,
		channels:   audio.DEFAULT_CHANNELS,
		resampler:  resampler,
		log:        log,
	}
}

// Load reads every sample in m that exists on disk. Samples that are missing
// or cannot be decoded are logged and skipped. Only a cancelled context
// produces an error.
func (l *Loader) Load(ctx context.Context, m *Metadata) ([]core.VoiceSample, error) {
	samples := make([]core.VoiceSample, 0, len(m.Samples))

	for _, entry := range m.Samples {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		samplePath := filepath.Join(l.voiceDir, filepath.FromSlash(entry.File))
		name := filepath.Base(samplePath)

		data, readErr := os.ReadFile(samplePath)
		if readErr != nil {
			if errors.Is(readErr, os.ErrNotExist) {
				l.log.Warn(logFmtSampleMissing, name)
			} else {
				l.log.Error(logFmtSampleFailed, name, readErr)
			}

			continue
		}

		sample, err := l.decode(ctx, name, data)
		if err != nil {
			l.log.Error(logFmtSampleFailed, name, err)

			continue
		}

		samples = append(samples, sample)
	}

	return samples, nil
}

func (l *Loader) decode(ctx context.Context, name string, data []byte) (core.VoiceSample, error) {
	info, _, err := wav.Parse(data)
	if err != nil {
		return core.VoiceSample{}, err
	}

	if info.SampleRate != l.sampleRate || info.Channels != l.channels {
		if l.resampler == nil {
			return core.VoiceSample{}, fmt.Errorf("%w: %s, want %d Hz/%d ch",
				ErrSampleFormat, info, l.sampleRate, l.channels)
		}

		l.log.Info(logFmtSampleResample, name, info)

		data, err = l.resampler.Resample(ctx, name, data)
		if err != nil {
			return core.VoiceSample{}, err
		}

		info, _, err = wav.Parse(data)
		if err != nil {
			return core.VoiceSample{}, fmt.Errorf("resampled output: %w", err)
		}
	}

	l.log.Info(logFmtSampleLoaded, name, info, info.Duration().Seconds())

	return core.VoiceSample{
		Name:       name,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		Audio:      data,
	}, nil
}
