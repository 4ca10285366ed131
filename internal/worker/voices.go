package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/tts"
	"github.com/juanvolpe/voiceJuan/internal/voice"
)

var (
	// ErrVoiceEmpty indicates that the voice is empty.
	ErrVoiceEmpty = errors.New("voice cannot be empty")
	// ErrUnsupportedVoice indicates that no voice directory matches the name.
	ErrUnsupportedVoice = errors.New("unsupported voice")
)

// Synthesizer turns job text into joined WAV audio for one voice.
type Synthesizer interface {
	SynthesizeWith(
		ctx context.Context,
		input string,
		preset core.PresetParams,
		params core.InferenceParams,
	) (tts.Speech, error)
}

// VoiceResolver maps the voice named in a job to its synthesizer.
type VoiceResolver interface {
	Resolve(name string) (Synthesizer, error)
}

// Library resolves voices to directories under a root, each holding a
// samples/ directory. Sessions and engines are opened on first use and kept.
type Library struct {
	root      string
	synth     core.Synthesizer
	engineCfg tts.EngineConfig
	resampler voice.Resampler
	log       *logger.Logger

	mu       sync.Mutex
	sessions map[string]*voice.Session
	engines  map[string]*tts.Engine
}

var _ VoiceResolver = (*Library)(nil)

// NewLibrary creates a voice library rooted at root.
func NewLibrary(
	root string,
	synth core.Synthesizer,
	engineCfg tts.EngineConfig,
	resampler voice.Resampler,
	log *logger.Logger,
) *Library {
	return &Library{
		root:      root,
		synth:     synth,
		engineCfg: engineCfg,
		resampler: resampler,
		log:       log,
		sessions:  make(map[string]*voice.Session),
		engines:   make(map[string]*tts.Engine),
	}
}

// Root returns the directory voices are resolved under.
func (l *Library) Root() string {
	return l.root
}

// Voices lists the voice names that have a samples directory, sorted.
func (l *Library) Voices() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices in %s: %w", l.root, err)
	}

	var names []string

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, statErr := os.Stat(filepath.Join(l.root, entry.Name(), voice.SamplesDirName))
		if statErr == nil && info.IsDir() {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

// Dir returns the directory of a known voice.
func (l *Library) Dir(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrVoiceEmpty
	}

	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedVoice, name)
	}

	dir := filepath.Join(l.root, name)

	info, err := os.Stat(filepath.Join(dir, voice.SamplesDirName))
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedVoice, name)
	}

	return dir, nil
}

// Resolve returns the engine for name, opening its session on first use.
func (l *Library) Resolve(name string) (Synthesizer, error) {
	return l.engine(name)
}

func (l *Library) engine(name string) (*tts.Engine, error) {
	dir, err := l.Dir(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if engine, ok := l.engines[name]; ok {
		return engine, nil
	}

	session, err := voice.OpenSession(voice.SessionConfig{
		VoiceDir:  dir,
		Policy:    voice.CacheForceUse,
		Prompter:  nil,
		Resampler: l.resampler,
		Log:       l.log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open voice '%s': %w", name, err)
	}

	engine := tts.NewEngine(l.synth, session, l.engineCfg, l.log)
	l.sessions[name] = session
	l.engines[name] = engine
	l.log.Info("Opened voice '%s' (cache: %t)", name, session.UsingCache())

	return engine, nil
}

// HealthCheck checks the shared synthesis backend.
func (l *Library) HealthCheck(ctx context.Context) error {
	return tts.NewEngine(l.synth, nil, l.engineCfg, l.log).HealthCheck(ctx)
}

// Resync re-reads an opened voice's samples and invalidates its session when
// the sample set changed. Voices not opened yet are synced when they are first
// resolved.
func (l *Library) Resync(name string) (voice.SampleDiff, error) {
	l.mu.Lock()
	session, ok := l.sessions[name]
	l.mu.Unlock()

	if !ok {
		return voice.SampleDiff{}, nil
	}

	diff, err := session.Resync()
	if err != nil {
		return voice.SampleDiff{}, fmt.Errorf("failed to resync voice '%s': %w", name, err)
	}

	if diff.Changed() {
		l.log.Info("Voice '%s' samples changed: %d added, %d removed", name, len(diff.Added), len(diff.Removed))
		session.Invalidate()
	}

	return diff, nil
}
