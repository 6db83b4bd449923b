// CLASSIFICATION: COMMUNITY
// Filename: watch.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"

	"wolfgym/internal/logging"
)

// hotKeys may change while the server runs.
var hotKeys = map[string]bool{
	"pause_interval": true,
	"step_timeout":   true,
	"log_level":      true,
}

// settle absorbs the burst of events an editor produces for one save.
const settle = 50 * time.Millisecond

// Diff lists the JSON keys that differ between old and next, split into
// those that apply at runtime and those that need a restart.
func Diff(old, next Config) (hot, cold []string) {
	ov, nv := reflect.ValueOf(old), reflect.ValueOf(next)
	t := ov.Type()
	for i := 0; i < t.NumField(); i++ {
		if reflect.DeepEqual(ov.Field(i).Interface(), nv.Field(i).Interface()) {
			continue
		}
		key := t.Field(i).Tag.Get("json")
		if hotKeys[key] {
			hot = append(hot, key)
		} else {
			cold = append(cold, key)
		}
	}
	return hot, cold
}

// Watch reloads the config file at path whenever it changes and hands each
// valid result to fn. Invalid edits are logged and skipped. The parent
// directory is watched so editors that replace the file are seen.
func Watch(ctx context.Context, path string, log *logging.Logger, fn func(Config)) error {
	if log == nil {
		log = logging.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(settle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("config watcher: %v", err)
		case <-pending:
			pending = nil
			cfg, err := Load(path)
			if err != nil {
				log.Warnf("config reload ignored: %v", err)
				continue
			}
			fn(cfg)
		}
	}
}
