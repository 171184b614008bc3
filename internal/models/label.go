// Package models defines the domain types for catdog.
package models

import (
	"fmt"
	"path/filepath"
	"time"
)

// Label is one of the two fixed classification categories.
type Label string

const (
	LabelCat Label = "cat"
	LabelDog Label = "dog"
)

// Labels returns every supported label in category-id order.
func Labels() []Label {
	return []Label{LabelCat, LabelDog}
}

// ParseLabel converts s into a Label. Matching is exact.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case LabelCat, LabelDog:
		return Label(s), nil
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// CategoryID returns the stable numeric id used by exports (cat=0, dog=1).
func (l Label) CategoryID() int {
	if l == LabelDog {
		return 1
	}
	return 0
}

func (l Label) String() string { return string(l) }

// Item is a reviewable source image. Name is unique within the input directory.
type Item struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// NewItem builds an Item for a file inside dir.
func NewItem(dir, name string) Item {
	return Item{Name: name, Path: filepath.Join(dir, name)}
}

// TimestampLayout is the ledger timestamp format (local time).
const TimestampLayout = "2006-01-02 15:04:05"

// LedgerEntry is one labeling decision persisted in the ledger.
type LedgerEntry struct {
	Filename  string    `json:"filename"`
	Label     Label     `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatTimestamp renders the entry timestamp in ledger format.
func (e LedgerEntry) FormatTimestamp() string {
	return e.Timestamp.Local().Format(TimestampLayout)
}
