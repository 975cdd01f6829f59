package assets

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/supermodel/internal/logger"
)

// Watcher reports asset documents that change on disk.
type Watcher struct {
	manager  *Manager
	watcher  *fsnotify.Watcher
	onChange func(name string)
	debounce time.Duration

	roots   []string
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher that calls onChange with the resource name of
// every modified document under the given directory sources. Bursts of
// events for one name within debounce collapse into a single call.
func NewWatcher(m *Manager, onChange func(name string), debounce time.Duration, sources ...*DirSource) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}

	w := &Watcher{
		manager:  m,
		watcher:  fw,
		onChange: onChange,
		debounce: debounce,
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}

	for _, src := range sources {
		if err := w.addTree(src.Root()); err != nil {
			fw.Close()
			return nil, err
		}
		w.roots = append(w.roots, src.Root())
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(p); err != nil {
				return errors.Wrapf(err, "watching %s", p)
			}
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("asset watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		// New directories need their own watch.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logger.Warn("asset watcher cannot follow directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	name := w.resourceName(event.Name)
	if name == "" {
		return
	}
	w.manager.Invalidate(name)
	w.schedule(name)
}

// resourceName maps an absolute event path to a resource name.
func (w *Watcher) resourceName(p string) string {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if name := w.manager.NameFromPath(filepath.ToSlash(rel)); name != "" {
			return name
		}
	}
	return ""
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[name]; ok {
		t.Reset(w.debounce)
		return
	}
	if w.closed {
		return
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		if w.closed {
			w.mu.Unlock()
			return
		}
		// Close waits for callbacks that got past this point.
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		logger.Debug("asset changed", zap.String("name", name))
		w.onChange(name)
	})
}

// Close stops the watcher and drops pending notifications. It returns after
// any notification already running has finished.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
