package config

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the provider whenever the config file is rewritten.
// Opt-in (run.watch_config); explicit Reload stays the primary mechanism.
// A failed reload logs a warning and keeps the previous snapshot.
func (p *Provider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				log.Println("shutdown signal received -> stop watching config file")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				sameFile := filepath.Clean(event.Name) == filepath.Clean(p.path)
				isChange := event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)

				if sameFile && isChange {
					if err := p.Reload(); err != nil {
						log.Printf("⚠️ config reload ignored: %v", err)
					} else {
						log.Printf("🔁 config reloaded from %s", p.path)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Println("config watcher error: ", err)
			}
		}
	}()

	// watch the directory: editors replace the file on save
	return watcher.Add(filepath.Dir(p.path))
}
