// Package checksum compares image copies by content.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// File returns the hex-encoded SHA-256 digest of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Same reports whether the files at a and b have identical content.
// Files of different size are not hashed.
func Same(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("checksum: stat %s: %w", a, err)
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, fmt.Errorf("checksum: stat %s: %w", b, err)
	}
	if ai.Size() != bi.Size() {
		return false, nil
	}
	ha, err := File(a)
	if err != nil {
		return false, err
	}
	hb, err := File(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}
