// Package watch re-runs the pipeline when source documents change.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mieubrisse/stacktrace"

	"github.com/odyssey/handoff/internal/config"
)

// DefaultDebounce is the delay after the last filesystem event before the
// pipeline runs. This batches editors that write a file several times.
const DefaultDebounce = 500 * time.Millisecond

// Func is invoked once per debounced burst of changes. Invocations never
// overlap.
type Func func(ctx context.Context, changed []string)

// Watcher watches a source directory for markdown changes.
type Watcher struct {
	sourceDirpath string
	debounce      time.Duration
	onChange      Func
	logger        *slog.Logger

	fsw     *fsnotify.Watcher
	trigger chan struct{}
	pending *pendingSet
}

// New creates a watcher on sourceDirpath. The directory must exist.
func New(sourceDirpath string, debounce time.Duration, onChange Func, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to create file watcher")
	}
	if err := fsw.Add(sourceDirpath); err != nil {
		fsw.Close()
		return nil, stacktrace.Propagate(err, "failed to watch '%s'", sourceDirpath)
	}

	return &Watcher{
		sourceDirpath: sourceDirpath,
		debounce:      debounce,
		onChange:      onChange,
		logger:        logger,
		fsw:           fsw,
		trigger:       make(chan struct{}, 1),
		pending:       newPendingSet(),
	}, nil
}

// Run blocks until ctx is cancelled or the underlying watcher fails. The
// watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	loopCtx, stopLoop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.runLoop(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-done
	}()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return stacktrace.NewError("file watcher closed unexpectedly")
			}
			if !isRelevant(event) {
				continue
			}
			w.pending.add(event.Name)

			// Reset debounce timer
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case w.trigger <- struct{}{}:
				default:
				}
			})

		case watchErr, ok := <-w.fsw.Errors:
			if !ok {
				return stacktrace.NewError("file watcher closed unexpectedly")
			}
			w.logger.Warn("fsnotify error", "error", watchErr)
		}
	}
}

// runLoop serializes callbacks. A burst that arrives while a callback runs
// is picked up by the next one.
func (w *Watcher) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.trigger:
			changed := w.pending.drain()
			if len(changed) == 0 {
				continue
			}
			w.logger.Info("source documents changed", "count", len(changed))
			w.onChange(ctx, changed)
		}
	}
}

// isRelevant filters to writes, creates, removes and renames of source
// markdown. Compact artifacts and the temp files of atomic writes are
// ignored so the pipeline never retriggers itself.
func isRelevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if !strings.HasSuffix(name, config.MarkdownExt) {
		return false
	}
	return !config.IsCompactFilename(name)
}
