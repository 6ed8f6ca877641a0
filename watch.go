// config hot reload via fsnotify.
//
// watches the config file's directory rather than the file itself, since
// editors usually save by rename and a file watch would go stale.

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

type configWatcher struct {
	path     string
	onChange func(config)
	watcher  *fsnotify.Watcher
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// newConfigWatcher watches path and calls onChange with the reloaded config
// after writes settle. onChange runs on the watcher goroutine.
func newConfigWatcher(path string, onChange func(config)) (*configWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is nil: %w", os.ErrInvalid)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &configWatcher{
		path:     path,
		onChange: onChange,
		watcher:  fsw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (w *configWatcher) start() {
	go w.loop()
}

func (w *configWatcher) close() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.watcher.Close()
	})
}

func (w *configWatcher) loop() {
	defer close(w.done)
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerCh = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher error: %v", err)

		case <-timerCh:
			timerCh = nil
			cfg, err := loadConfig(w.path)
			if err != nil {
				log.Printf("config reload: %v", err)
				continue
			}
			w.onChange(cfg)
		}
	}
}
