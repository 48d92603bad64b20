package datasource

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDevDir is where serial device nodes appear on Unix systems.
const DefaultDevDir = "/dev"

// Watcher signals when serial device nodes appear in or vanish from a
// directory.
type Watcher struct {
	fs      *fsnotify.Watcher
	dir     string
	settle  time.Duration
	changes chan struct{}
	done    chan struct{}
}

// NewWatcher watches dir for serial port hot-plug.
func NewWatcher(dir string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{
		fs:      fs,
		dir:     dir,
		settle:  250 * time.Millisecond,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes receives one signal per burst of hot-plug events. It is closed
// once the watcher stops.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

// relevant reports whether ev adds, removes or renames a serial node.
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return IsSerialName(filepath.Base(ev.Name))
}

func (w *Watcher) loop() {
	defer close(w.changes)

	// Plugging a device creates several nodes in quick succession; wait for
	// the directory to settle before signalling.
	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if relevant(ev) {
				timer.Reset(w.settle)
			}
		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("datasource: watch %s: %v", w.dir, err)
		}
	}
}
