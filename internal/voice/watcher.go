package voice

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups bursts of file events into one callback.
const DefaultDebounce = 500 * time.Millisecond

const watchedOps = fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher calls onChange when .wav files are added, removed or renamed in
// <voiceDir>/samples.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	debounce time.Duration
	onChange func()
	log      *logger.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher starts watching the samples directory of voiceDir.
func NewWatcher(voiceDir string, debounce time.Duration, onChange func(), log *logger.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Join(voiceDir, SamplesDirName)

	addErr := fsw.Add(dir)
	if addErr != nil {
		_ = fsw.Close()

		return nil, fmt.Errorf("failed to watch %s: %w", dir, addErr)
	}

	return &Watcher{
		fsw:      fsw,
		dir:      dir,
		debounce: debounce,
		onChange: onChange,
		log:      log,
	}, nil
}

// Run dispatches events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()

			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if event.Op&watchedOps == 0 || !strings.HasSuffix(event.Name, SampleExtension) {
				continue
			}

			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			w.log.Error("Watcher error on %s: %v", w.dir, err)
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	w.stopTimer()

	return w.fsw.Close()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.log.Info("Samples changed in %s", w.dir)
		w.onChange()
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
}
