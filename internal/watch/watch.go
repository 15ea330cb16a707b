// Package watch turns outside change signals into collection invalidations.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"folio/internal/logger"
)

// Invalidator drops cached state. source names the signal.
type Invalidator interface {
	Invalidate(source string)
}

const SourceFS = "fsnotify"

const DefaultDebounce = 200 * time.Millisecond

type Watcher struct {
	dir        string
	debounce   time.Duration
	extensions []string
	inv        Invalidator
	log        logger.Logger
	w          *fsnotify.Watcher
}

// NewWatcher watches dir for document changes. Bursts of events within
// debounce collapse into one invalidation. With extensions set, only files
// carrying one of them count.
func NewWatcher(dir string, debounce time.Duration, extensions []string, inv Invalidator, log logger.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:        dir,
		debounce:   debounce,
		extensions: extensions,
		inv:        inv,
		log:        log.With(logger.String("component", "watch"), logger.String("dir", dir)),
		w:          fw,
	}, nil
}

// Run blocks until ctx is done, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.w.Close()
	w.log.Info("watching for document changes")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("document change", logger.String("path", ev.Name), logger.String("op", ev.Op.String()))
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", logger.Error(err))
		case <-timer.C:
			pending = false
			w.inv.Invalidate(SourceFS)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range w.extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
