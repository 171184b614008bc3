package worklist

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback receives source directory changes. kind is one of
// "created", "removed", "renamed", "updated".
type ChangeCallback func(kind, filename string)

// Watch observes dir until ctx is cancelled and reports changes to image
// files. It never alters a resolved worklist; callers use it to tell the
// operator that a new resolve would see a different set.
func (r *Resolver) Watch(ctx context.Context, dir string, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	r.logger.Debug("worklist: watching source", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !r.Matches(name) {
				continue
			}

			var kind string
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = "created"
			case ev.Op&fsnotify.Remove != 0:
				kind = "removed"
			case ev.Op&fsnotify.Rename != 0:
				kind = "renamed"
			case ev.Op&fsnotify.Write != 0:
				kind = "updated"
			default:
				continue
			}
			r.logger.Warn("worklist: source changed during session; restart to pick it up",
				slog.String("filename", name),
				slog.String("op", kind))
			if cb != nil {
				cb(kind, name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("worklist: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
