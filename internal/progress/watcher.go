package progress

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Handler receives the ID of an agent whose report log grew.
type Handler func(agentID string)

// Watcher notices report log appends as workers make them.
type Watcher struct {
	handler Handler

	mu   sync.Mutex
	dirs map[string]string // dir -> agent ID

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher starts an fsnotify watcher that calls handler on each change.
func NewWatcher(handler Handler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	w := &Watcher{
		handler: handler,
		dirs:    make(map[string]string),
		watcher: fw,
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Add starts watching an agent's directory.
func (w *Watcher) Add(agentID, dir string) error {
	dir = filepath.Clean(dir)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.mu.Lock()
	w.dirs[dir] = agentID
	w.mu.Unlock()
	return nil
}

// Remove stops watching an agent's directory.
func (w *Watcher) Remove(dir string) {
	dir = filepath.Clean(dir)
	w.mu.Lock()
	delete(w.dirs, dir)
	w.mu.Unlock()
	_ = w.watcher.Remove(dir)
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != LogFileName {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			dir := filepath.Dir(event.Name)
			w.mu.Lock()
			agentID, known := w.dirs[dir]
			w.mu.Unlock()
			if !known {
				continue
			}
			w.handler(agentID)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[progress] watcher error: %v", err)
		}
	}
}
