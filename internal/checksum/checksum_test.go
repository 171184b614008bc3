package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFileDigest(t *testing.T) {
	p := write(t, t.TempDir(), "a.jpg", "abc")
	got, err := File(p)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("File = %q, want %q", got, want)
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSame(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.jpg", "meow")
	b := write(t, dir, "b.jpg", "meow")
	c := write(t, dir, "c.jpg", "woof")
	d := write(t, dir, "d.jpg", "woof!")

	cases := []struct {
		x, y string
		want bool
	}{
		{a, b, true},
		{a, c, false},
		{c, d, false},
	}
	for _, tc := range cases {
		got, err := Same(tc.x, tc.y)
		if err != nil {
			t.Fatalf("Same(%s, %s): %v", tc.x, tc.y, err)
		}
		if got != tc.want {
			t.Errorf("Same(%s, %s) = %v, want %v", filepath.Base(tc.x), filepath.Base(tc.y), got, tc.want)
		}
	}
	if _, err := Same(a, filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
