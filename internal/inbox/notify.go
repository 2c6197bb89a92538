package inbox

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notify returns a channel that receives a value whenever the inbox in dir
// may have new messages. It also ticks every poll interval so a missed
// filesystem event only delays delivery. The channel closes when ctx ends.
func Notify(ctx context.Context, dir string, poll time.Duration) <-chan struct{} {
	ch := make(chan struct{}, 1)
	signal := func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	var events chan fsnotify.Event
	var errs chan error
	var closeWatcher func()
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		if err := watcher.Add(dir); err == nil {
			events = watcher.Events
			errs = watcher.Errors
			closeWatcher = func() { watcher.Close() }
		} else {
			watcher.Close()
		}
	}

	go func() {
		defer close(ch)
		if closeWatcher != nil {
			defer closeWatcher()
		}
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		// Pick up anything written before we started.
		signal()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				signal()
			case event, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if filepath.Base(event.Name) == FileName && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					signal()
				}
			case _, ok := <-errs:
				if !ok {
					errs = nil
				}
			}
		}
	}()
	return ch
}
