package recipe

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher invalidates recipe state when files in a recipe directory change.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(path string)
	log      zerolog.Logger
	started  atomic.Bool
	done     chan struct{}
}

// NewWatcher watches dir and calls onChange for every create, write, remove or rename.
func NewWatcher(dir string, onChange func(path string), log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create recipe watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch recipe directory %s: %w", dir, err)
	}

	return &Watcher{
		watcher:  fw,
		onChange: onChange,
		log:      log.With().Str("component", "recipe_watcher").Str("dir", dir).Logger(),
		done:     make(chan struct{}),
	}, nil
}

// Start runs the event loop until ctx is cancelled or Close is called. Only the first
// call starts a loop.
func (w *Watcher) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					w.log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Recipe directory changed")
					w.onChange(event.Name)
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn().Err(err).Msg("Recipe watcher error")
			}
		}
	}()
}

// Close stops watching. It waits for the event loop when Start was called, so it must
// not be called from onChange.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if w.started.Load() {
		<-w.done
	}
	return err
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
