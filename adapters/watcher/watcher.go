// Package watcher watches an inbox directory and hands finished artifacts to
// a handler. Files are considered finished once no write event has been seen
// for a settle interval, which covers slow copies into the inbox.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Handler receives the path of a settled artifact.
type Handler func(ctx context.Context, path string)

var supportedExts = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
	".zip":  true,
}

// Watcher delivers inbox artifacts to a handler.
type Watcher struct {
	dir     string
	settle  time.Duration
	handler Handler
	logger  zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher for dir. A non-positive settle defaults to 2s.
func New(dir string, settle time.Duration, handler Handler, logger zerolog.Logger) *Watcher {
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		handler: handler,
		logger:  logger.With().Str("component", "watcher").Logger(),
		timers:  make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info().Str("dir", w.dir).Dur("settle", w.settle).Msg("watching inbox")

	for {
		select {
		case <-ctx.Done():
			w.drainTimers()
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !supportedExts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

// schedule arms (or re-arms) the settle timer for one path. Each write event
// pushes delivery out by the settle interval.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.logger.Info().Str("path", path).Msg("artifact settled")
		w.handler(ctx, path)
	})
}

func (w *Watcher) drainTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
