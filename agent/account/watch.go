package account

import (
	"context"
	"errors"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher hot-reloads fixture files while someone edits them locally. Only
// meaningful when the source runs on a data directory.
type Watcher struct {
	src *MockSource
	fsw *fsnotify.Watcher
}

func NewWatcher(src *MockSource) (*Watcher, error) {
	if src == nil {
		return nil, errors.New("nil source")
	}
	if src.DataDir() == "" {
		return nil, errors.New("source has no data directory to watch")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(src.DataDir()); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{src: src, fsw: fsw}, nil
}

// Run blocks until ctx is done, reloading fixtures on write/create events.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if err := w.src.ReloadFile(ev.Name); err != nil {
				log.Warn().Err(err).Str("file", ev.Name).Msg("fixture reload failed")
				continue
			}
			log.Info().Str("file", ev.Name).Msg("fixture reloaded")
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("fixture watcher error")
		}
	}
}
