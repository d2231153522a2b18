package webstorage

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watcher calls onChange whenever the area file is replaced or written.
type watcher struct {
	fsw      *fsnotify.Watcher
	file     string
	onChange func()
	done     chan struct{}
	stopped  chan struct{}
	logger   *slog.Logger
}

func newWatcher(path string, onChange func(), logger *slog.Logger) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: writers replace the file by rename.
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &watcher{
		fsw:      fsw,
		file:     filepath.Clean(path),
		onChange: onChange,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   logger,
	}, nil
}

func (w *watcher) startAsync() {
	go w.run()
}

func (w *watcher) run() {
	defer close(w.stopped)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("storage file changed", "op", event.Op.String())
				w.onChange()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("storage file watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *watcher) stop() error {
	close(w.done)
	err := w.fsw.Close()
	<-w.stopped
	return err
}
