package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/regulogio/regulog/pkg/eventtype"
)

// WatchEventTypes re-reads and recompiles the EventType registry whenever
// any file in paths changes. onReload is called with the freshly loaded
// registry, or with the error if reloading failed — the previous registry
// keeps running in that case.
func WatchEventTypes(paths []string, onReload func(*eventtype.Registry, error)) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("regulog: creating event-type watcher: %w", err)
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			w.Close()
			return nil, fmt.Errorf("regulog: watching %s: %w", p, err)
		}
	}

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reg, err := eventtype.LoadRegistryXMLFiles(paths)
				onReload(reg, err)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return w, nil
}
