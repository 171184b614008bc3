// Package worklist builds the ordered list of images still awaiting a label.
package worklist

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/catdog/internal/apperr"
	"github.com/starford/catdog/internal/models"
)

// DefaultExtensions are the image extensions picked up from the source dir.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// Labeled reports whether a filename already has a live ledger entry.
// *ledger.Snapshot satisfies it.
type Labeled interface {
	Has(filename string) bool
}

// Resolver enumerates candidate images.
type Resolver struct {
	exts   map[string]struct{}
	logger *slog.Logger
}

// NewResolver returns a Resolver for the given extensions (case-insensitive,
// leading dot optional). An empty list selects DefaultExtensions.
func NewResolver(exts []string, logger *slog.Logger) *Resolver {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{exts: make(map[string]struct{}, len(exts)), logger: logger}
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.exts[e] = struct{}{}
	}
	return r
}

// Matches reports whether name carries one of the configured extensions.
func (r *Resolver) Matches(name string) bool {
	_, ok := r.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Candidates lists matching files directly under dir, deduplicated and
// sorted by filename. Subdirectories are not descended into.
func (r *Resolver) Candidates(dir string) ([]models.Item, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: input directory %s: %w", apperr.ErrPrecondition, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: input %s is not a directory", apperr.ErrPrecondition, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("worklist: read %s: %w", dir, err)
	}

	seen := make(map[string]struct{}, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !r.Matches(name) {
			continue
		}
		if !e.Type().IsRegular() && !isFileSymlink(dir, e) {
			continue
		}
		if strings.ContainsAny(name, "\r\n") {
			r.logger.Warn("worklist: skipping file with line break in name", slog.String("filename", name))
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	slices.Sort(names)

	items := make([]models.Item, len(names))
	for i, n := range names {
		items[i] = models.NewItem(dir, n)
	}
	return items, nil
}

// Resolve returns the candidates in dir that have no live entry in labeled.
// The result is stable for a given directory listing and ledger, which is
// what lets an interrupted session resume without a stored cursor.
func (r *Resolver) Resolve(dir string, labeled Labeled) ([]models.Item, error) {
	all, err := r.Candidates(dir)
	if err != nil {
		return nil, err
	}
	pending := all[:0]
	for _, it := range all {
		if labeled != nil && labeled.Has(it.Name) {
			continue
		}
		pending = append(pending, it)
	}
	r.logger.Debug("worklist: resolved",
		slog.String("dir", dir),
		slog.Int("candidates", len(all)),
		slog.Int("pending", len(pending)))
	return slices.Clip(pending), nil
}

func isFileSymlink(dir string, e os.DirEntry) bool {
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}
