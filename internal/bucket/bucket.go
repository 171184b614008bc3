// Package bucket materializes labeled images into per-label directories.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/models"
	"github.com/starford/catdog/internal/storage"
)

// Materializer copies source items into the directory of their label and
// removes those copies again. It keeps no state between calls.
type Materializer struct {
	dirs    map[models.Label]storage.Provider
	retries uint64
	logger  *slog.Logger
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithRetries sets how many times a failed copy or removal is retried.
func WithRetries(n uint64) Option {
	return func(m *Materializer) { m.retries = n }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Materializer) { m.logger = l }
}

// New opens one directory per label, creating missing ones. Every label in
// models.Labels must be mapped.
func New(dirs map[models.Label]string, opts ...Option) (*Materializer, error) {
	m := &Materializer{
		dirs:    make(map[models.Label]storage.Provider, len(dirs)),
		retries: 2,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	for _, l := range models.Labels() {
		dir, ok := dirs[l]
		if !ok || dir == "" {
			return nil, fmt.Errorf("bucket: no directory for label %q", l)
		}
		fs, err := storage.NewFS(dir)
		if err != nil {
			return nil, fmt.Errorf("bucket: %s: %w", l, err)
		}
		m.dirs[l] = fs
	}
	return m, nil
}

// NewFromProviders builds a Materializer over existing providers.
func NewFromProviders(dirs map[models.Label]storage.Provider, opts ...Option) (*Materializer, error) {
	m := &Materializer{dirs: dirs, retries: 2, logger: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	for _, l := range models.Labels() {
		if m.dirs[l] == nil {
			return nil, fmt.Errorf("bucket: no provider for label %q", l)
		}
	}
	return m, nil
}

// Place copies item into the bucket for label, replacing an existing copy.
func (m *Materializer) Place(ctx context.Context, item models.Item, label models.Label) error {
	dst, err := m.provider(label)
	if err != nil {
		return err
	}
	err = m.retry(ctx, "place", item.Name, func() error {
		if err := dst.Import(item.Path, item.Name); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: bucket: place %s in %s: %w", apperr.ErrDurability, item.Name, label, err)
	}
	return nil
}

// Remove deletes the copy of filename from the bucket for label. A missing
// copy is not an error.
func (m *Materializer) Remove(ctx context.Context, filename string, label models.Label) error {
	dst, err := m.provider(label)
	if err != nil {
		return err
	}
	if err := m.retry(ctx, "remove", filename, func() error {
		return dst.Delete(filename)
	}); err != nil {
		return fmt.Errorf("%w: bucket: remove %s from %s: %w", apperr.ErrDurability, filename, label, err)
	}
	return nil
}

// RemoveAll deletes filename from every bucket.
func (m *Materializer) RemoveAll(ctx context.Context, filename string) error {
	var errs []error
	for _, l := range models.Labels() {
		if err := m.Remove(ctx, filename, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Has reports whether a copy of filename exists in the bucket for label.
func (m *Materializer) Has(filename string, label models.Label) (bool, error) {
	dst, err := m.provider(label)
	if err != nil {
		return false, err
	}
	return dst.Exists(filename)
}

// Path returns where the copy of filename lives for label.
func (m *Materializer) Path(filename string, label models.Label) (string, error) {
	dst, err := m.provider(label)
	if err != nil {
		return "", err
	}
	return dst.Path(filename)
}

// List returns the files currently held in the bucket for label.
func (m *Materializer) List(label models.Label) ([]storage.FileInfo, error) {
	dst, err := m.provider(label)
	if err != nil {
		return nil, err
	}
	return dst.List()
}

// Dir returns the directory backing label.
func (m *Materializer) Dir(label models.Label) string {
	if p, ok := m.dirs[label]; ok {
		return p.Root()
	}
	return ""
}

func (m *Materializer) provider(label models.Label) (storage.Provider, error) {
	p, ok := m.dirs[label]
	if !ok {
		return nil, fmt.Errorf("bucket: unknown label %q", label)
	}
	return p, nil
}

func (m *Materializer) retry(ctx context.Context, op, name string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second

	return backoff.RetryNotify(fn,
		backoff.WithContext(backoff.WithMaxRetries(bo, m.retries), ctx),
		func(err error, wait time.Duration) {
			m.logger.Warn("bucket: retrying",
				slog.String("op", op),
				slog.String("filename", name),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()))
		})
}
