package wake

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

// PromptWatcher reloads Prompts when the override or layer file changes.
type PromptWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	prompts     *Prompts
	files       map[string]bool
	pending     time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewPromptWatcher creates a watcher for p's files.
func NewPromptWatcher(p *Prompts) (*PromptWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	files := map[string]bool{}
	for _, f := range []string{p.overridePath, p.layerPath} {
		if f != "" {
			files[filepath.Clean(f)] = true
		}
	}
	return &PromptWatcher{
		watcher:     w,
		prompts:     p,
		files:       files,
		debounceDur: 250 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start watches the parent directories of the prompt files. It does not
// block.
func (pw *PromptWatcher) Start(ctx context.Context) error {
	pw.mu.Lock()
	if pw.running {
		pw.mu.Unlock()
		return nil
	}
	pw.running = true
	pw.mu.Unlock()

	dirs := map[string]bool{}
	for f := range pw.files {
		dirs[filepath.Dir(f)] = true
	}
	watching := 0
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.WakeWarn("PromptWatcher: failed to create %s: %v", dir, err)
		}
		if err := pw.watcher.Add(dir); err != nil {
			logging.WakeWarn("PromptWatcher: watch %s failed: %v", dir, err)
			continue
		}
		watching++
		logging.WakeDebug("PromptWatcher: watching %s", dir)
	}

	// Unwatched prompts are reread on every System call instead.
	if watching > 0 {
		pw.prompts.setWatched(true)
	} else if len(dirs) > 0 {
		logging.WakeWarn("PromptWatcher: no prompt directory could be watched, prompts are reread each wake")
	}
	pw.prompts.Reload()
	go pw.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it.
func (pw *PromptWatcher) Stop() {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return
	}
	pw.running = false
	pw.mu.Unlock()

	close(pw.stopCh)
	<-pw.doneCh
	pw.prompts.setWatched(false)

	if err := pw.watcher.Close(); err != nil {
		logging.WakeError("PromptWatcher: error closing watcher: %v", err)
	}
}

// Run starts the watcher and blocks until ctx is cancelled.
func (pw *PromptWatcher) Run(ctx context.Context) error {
	if err := pw.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	pw.Stop()
	return nil
}

func (pw *PromptWatcher) run(ctx context.Context) {
	defer close(pw.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pw.stopCh:
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			pw.handleEvent(event)
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			logging.WakeError("PromptWatcher error: %v", err)
		case <-ticker.C:
			pw.flush()
		}
	}
}

func (pw *PromptWatcher) handleEvent(event fsnotify.Event) {
	if !pw.files[filepath.Clean(event.Name)] {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	logging.WakeDebug("PromptWatcher: %s %s", event.Op, event.Name)
	pw.mu.Lock()
	pw.pending = time.Now()
	pw.mu.Unlock()
}

func (pw *PromptWatcher) flush() {
	pw.mu.Lock()
	due := !pw.pending.IsZero() && time.Since(pw.pending) >= pw.debounceDur
	if due {
		pw.pending = time.Time{}
	}
	pw.mu.Unlock()
	if due {
		pw.prompts.Reload()
	}
}
