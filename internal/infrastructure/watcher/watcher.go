// Package watcher auto-ingests files dropped into a configured directory.
package watcher

import (
	"context"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/unimind/uniquery/internal/core/ports"
)

// settleDelay gives the writing process time to finish before the file is
// read; fsnotify reports creation, not completion.
const settleDelay = 500 * time.Millisecond

type Watcher struct {
	ingestor   ports.DocumentIngestor
	dir        string
	extensions []string
	fs         *fsnotify.Watcher
}

func New(ingestor ports.DocumentIngestor, dir string, extensions []string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		extensions = []string{".txt", ".md", ".png", ".jpg", ".wav", ".mp3"}
	}
	return &Watcher{
		ingestor:   ingestor,
		dir:        dir,
		extensions: extensions,
		fs:         fs,
	}, nil
}

// Run watches the drop directory until ctx is cancelled. Per-file failures
// are logged and skipped; the watcher itself keeps running.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.fs.Add(w.dir); err != nil {
		return err
	}
	slog.Info("watching drop directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return w.fs.Close()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !w.watchedExtension(event.Name) {
				continue
			}
			time.Sleep(settleDelay)
			w.upload(ctx, event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) upload(ctx context.Context, path string) {
	file, err := os.Open(path)
	if err != nil {
		slog.Warn("skip dropped file", "path", path, "error", err)
		return
	}
	defer file.Close()

	filename := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := w.ingestor.Upload(ctx, filename, contentType, file, "watcher", "")
	if err != nil {
		slog.Warn("auto-ingest failed", "path", path, "error", err)
		return
	}
	slog.Info("auto-ingested dropped file", "path", path, "document_id", doc.ID)
}

func (w *Watcher) watchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
