package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/core"
)

// ErrNoSamples is returned when no voice sample could be loaded.
var ErrNoSamples = errors.New("no voice samples could be loaded")

// ReprocessQuestion is asked when the cache was chosen but the samples changed.
const ReprocessQuestion = "Samples changed since metadata was written. Reprocess samples? (y/n)"

// CachePolicy selects how a session decides between the cache and the samples.
type CachePolicy int

const (
	// CacheAsk asks the prompter when a cache exists.
	CacheAsk CachePolicy = iota
	// CacheForceUse skips the cache menu. The prompter is still asked to
	// reprocess when the sample set changed.
	CacheForceUse
	// CacheForceReprocess always reloads samples from disk.
	CacheForceReprocess
)

// SessionConfig holds the inputs of OpenSession.
type SessionConfig struct {
	VoiceDir  string
	Policy    CachePolicy
	Prompter  core.Prompter
	Resampler Resampler
	Log       *logger.Logger
}

// Session resolves the voice conditioning for one voice directory, either
// from the cache blob or from the samples on disk.
type Session struct {
	mu       sync.Mutex
	voiceDir string
	metadata *Metadata
	diff     SampleDiff
	cache    *Cache
	loader   *Loader
	log      *logger.Logger
	useCache bool
	samples  []core.VoiceSample
}

// OpenSession loads (or creates) the metadata, syncs it with the samples on
// disk and decides whether the cache will be used.
func OpenSession(cfg SessionConfig) (*Session, error) {
	metadata, created, err := LoadOrCreateMetadata(cfg.VoiceDir)
	if err != nil {
		return nil, err
	}

	if created {
		cfg.Log.Info("Created %s with %d samples", MetadataFileName, len(metadata.Samples))
	}

	diff, err := SyncMetadata(cfg.VoiceDir, metadata)
	if err != nil {
		return nil, err
	}

	if diff.Changed() {
		cfg.Log.Info("Sample set changed: %d added, %d removed", len(diff.Added), len(diff.Removed))
	}

	session := &Session{
		voiceDir: cfg.VoiceDir,
		metadata: metadata,
		diff:     diff,
		cache:    NewCache(cfg.VoiceDir),
		loader:   NewLoader(cfg.VoiceDir, cfg.Resampler, cfg.Log),
		log:      cfg.Log,
	}

	useCache, err := decideCache(cfg, session.cache.Exists(), diff)
	if err != nil {
		return nil, err
	}

	session.useCache = useCache

	return session, nil
}

func decideCache(cfg SessionConfig, cacheExists bool, diff SampleDiff) (bool, error) {
	if !cacheExists {
		return false, nil
	}

	switch cfg.Policy {
	case CacheForceReprocess:
		return false, nil
	case CacheForceUse:
	case CacheAsk:
		if cfg.Prompter == nil {
			return true, nil
		}

		choice, err := cfg.Prompter.CacheChoice()
		if err != nil {
			return false, fmt.Errorf("cache choice: %w", err)
		}

		if choice != core.CacheUse {
			return false, nil
		}
	}

	// A forced cache still gets the reprocess question when samples changed.
	if !diff.Changed() || cfg.Prompter == nil {
		return true, nil
	}

	reprocess, err := cfg.Prompter.Confirm(ReprocessQuestion)
	if err != nil {
		return false, fmt.Errorf("reprocess confirmation: %w", err)
	}

	return !reprocess, nil
}

// UsingCache reports whether Samples will read the cache blob.
func (s *Session) UsingCache() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.useCache
}

// Metadata returns the synced metadata.
func (s *Session) Metadata() *Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.metadata
}

// Diff returns the sample changes found when the session was opened or last resynced.
func (s *Session) Diff() SampleDiff {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.diff
}

// Samples returns the voice conditioning, loading it on first use.
func (s *Session) Samples(ctx context.Context) ([]core.VoiceSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.samples != nil {
		return s.samples, nil
	}

	if s.useCache && s.cache.Exists() {
		cached, err := s.cache.Load()

		switch {
		case err != nil:
			s.log.Warn("Error loading cache %s, reprocessing samples: %v", s.cache.Path(), err)
		case len(cached) == 0:
			s.log.Warn("Cache %s is empty, reprocessing samples", s.cache.Path())
		default:
			s.log.Info("Loaded %d samples from cache %s", len(cached), s.cache.Path())
			s.samples = cached

			return s.samples, nil
		}
	}

	samples, err := s.loader.Load(ctx, s.metadata)
	if err != nil {
		return nil, err
	}

	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	saveErr := s.cache.Save(samples)
	if saveErr != nil {
		s.log.Warn("Could not save voice cache: %v", saveErr)
	} else {
		s.log.Info("Saved %d samples to cache %s", len(samples), s.cache.Path())
	}

	s.samples = samples

	return s.samples, nil
}

// Invalidate drops the in-memory samples and bypasses the cache, so the next
// Samples call reprocesses the samples on disk and rewrites the cache.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.useCache = false
	s.samples = nil
}

// Resync re-reads the samples directory and rewrites the metadata when the
// sample set changed. Loaded samples are kept until Invalidate is called.
func (s *Session) Resync() (SampleDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	diff, err := SyncMetadata(s.voiceDir, s.metadata)
	if err != nil {
		return SampleDiff{}, err
	}

	s.diff = diff

	return diff, nil
}
