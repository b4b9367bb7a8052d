package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// reloadDebounce coalesces the burst of events editors emit for one save.
const reloadDebounce = 250 * time.Millisecond

// Watch reloads the config file whenever it changes and passes each valid result to onChange.
// Invalid edits are logged and ignored. Watch returns once the watcher is running.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, errNew := fsnotify.NewWatcher()
	if errNew != nil {
		return fmt.Errorf("config: watcher: %w", errNew)
	}
	dir := filepath.Dir(path)
	if errAdd := watcher.Add(dir); errAdd != nil {
		_ = watcher.Close()
		return fmt.Errorf("config: watch %s: %w", dir, errAdd)
	}
	target := filepath.Clean(path)

	go func() {
		defer func() { _ = watcher.Close() }()
		var timer *time.Timer
		reload := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target || !evt.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			case <-reload:
				cfg, errLoad := Load(path)
				if errLoad != nil {
					log.WithError(errLoad).Warn("config: reload rejected")
					continue
				}
				log.Infof("config: reloaded %s", path)
				onChange(cfg)
			case errWatch, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(errWatch).Warn("config: watcher error")
			}
		}
	}()
	return nil
}
