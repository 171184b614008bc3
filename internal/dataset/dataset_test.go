package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/catdog/internal/ledger"
	"github.com/starford/catdog/internal/models"
)

func entries(cats, dogs int) []models.LedgerEntry {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)
	var out []models.LedgerEntry
	for i := 0; i < cats; i++ {
		out = append(out, models.LedgerEntry{Filename: fmt.Sprintf("cat%03d.jpg", i), Label: models.LabelCat, Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	for i := 0; i < dogs; i++ {
		out = append(out, models.LedgerEntry{Filename: fmt.Sprintf("dog%03d.jpg", i), Label: models.LabelDog, Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}
	return out
}

func TestComputeStats(t *testing.T) {
	st := ComputeStats(entries(2, 1))
	if st.Total != 3 {
		t.Fatalf("total = %d", st.Total)
	}
	if len(st.Labels) != 2 || st.Labels[0].Percentage != 66.7 || st.Labels[1].Percentage != 33.3 {
		t.Errorf("labels = %+v", st.Labels)
	}
	if len(st.ByDate) != 1 || st.ByDate[0] != (DateCount{Date: "2025-06-01", Count: 3}) {
		t.Errorf("by date = %+v", st.ByDate)
	}

	var buf bytes.Buffer
	st.Print(&buf)
	if !strings.Contains(buf.String(), "cat: 2 (66.7%)") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil)
	if st.Total != 0 || len(st.Labels) != 0 {
		t.Errorf("stats = %+v", st)
	}
	var buf bytes.Buffer
	st.Print(&buf)
	if !strings.Contains(buf.String(), "no labeled images") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestExport_IDsFollowLedgerOrder(t *testing.T) {
	doc := Export(entries(1, 1))
	if len(doc.Categories) != 2 || doc.Categories[1] != (Category{ID: 1, Name: "dog"}) {
		t.Errorf("categories = %+v", doc.Categories)
	}
	if doc.Images[1].FileName != "dog000.jpg" || doc.Images[1].ID != 1 {
		t.Errorf("images = %+v", doc.Images)
	}
	if doc.Annotations[1].CategoryID != 1 || doc.Annotations[0].CategoryID != 0 {
		t.Errorf("annotations = %+v", doc.Annotations)
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteJSON(path, doc); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, k := range []string{"info", "categories", "images", "annotations"} {
		if _, ok := back[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
}

func TestRatiosValidate(t *testing.T) {
	cases := []struct {
		r  Ratios
		ok bool
	}{
		{DefaultRatios, true},
		{Ratios{Train: 1}, true},
		{Ratios{Train: 0.7, Val: 0.4}, false},
		{Ratios{Train: -0.1, Val: 0.1}, false},
		{Ratios{Train: 0.5, Val: 1.5}, false},
	}
	for _, tc := range cases {
		if err := tc.r.Validate(); (err == nil) != tc.ok {
			t.Errorf("Validate(%+v) = %v", tc.r, err)
		}
	}
}

func TestSplit_StratifiedDisjointComplete(t *testing.T) {
	all := entries(80, 20)
	s, err := Split(all, Ratios{Train: 0.8, Val: 0.1}, NewRand(42))
	if err != nil {
		t.Fatal(err)
	}

	want := map[string][2]int{"train": {64, 16}, "val": {8, 2}, "test": {8, 2}}
	seen := make(map[string]string)
	for _, sp := range s.Named() {
		st := ComputeStats(sp.Entries)
		got := [2]int{st.Count(models.LabelCat), st.Count(models.LabelDog)}
		if got != want[sp.Name] {
			t.Errorf("%s counts = %v, want %v", sp.Name, got, want[sp.Name])
		}
		for _, e := range sp.Entries {
			if prev, dup := seen[e.Filename]; dup {
				t.Errorf("%s in both %s and %s", e.Filename, prev, sp.Name)
			}
			seen[e.Filename] = sp.Name
		}
	}
	if len(seen) != len(all) {
		t.Errorf("union = %d entries, want %d", len(seen), len(all))
	}
}

func TestSplit_SeedIsReproducible(t *testing.T) {
	a, _ := Split(entries(10, 10), DefaultRatios, NewRand(7))
	b, _ := Split(entries(10, 10), DefaultRatios, NewRand(7))
	for i := range a.Train {
		if a.Train[i].Filename != b.Train[i].Filename {
			t.Fatalf("train[%d] differs: %s vs %s", i, a.Train[i].Filename, b.Train[i].Filename)
		}
	}
}

func TestSplit_RejectsBadRatios(t *testing.T) {
	if _, err := Split(entries(1, 1), Ratios{Train: 0.9, Val: 0.2}, NewRand(1)); err == nil {
		t.Error("expected ratio error")
	}
}

func TestWriteSplits(t *testing.T) {
	dir := t.TempDir()
	s, _ := Split(entries(10, 10), DefaultRatios, NewRand(3))
	var buf bytes.Buffer
	if err := WriteSplits(dir, s, &buf); err != nil {
		t.Fatal(err)
	}
	snap, err := ledger.NewStore(filepath.Join(dir, "train.csv"), nil).Load()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Len() != 16 {
		t.Errorf("train rows = %d, want 16", snap.Len())
	}
	if !strings.Contains(buf.String(), "train: 16 (cat: 8, dog: 8)") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestBuildReport(t *testing.T) {
	rep := BuildReport(entries(3, 1))
	if rep.Overall.TotalImages != 4 || rep.Overall.Categories != 2 {
		t.Errorf("overall = %+v", rep.Overall)
	}
	if rep.Distribution[models.LabelCat].Percentage != 75 {
		t.Errorf("distribution = %+v", rep.Distribution)
	}
	if rep.Overall.TimeSpan.First != "2025-06-01 09:00:00" || rep.Overall.TimeSpan.Last != "2025-06-01 11:00:00" {
		t.Errorf("time span = %+v", rep.Overall.TimeSpan)
	}
	var buf bytes.Buffer
	rep.PrintSummary(&buf)
	if !strings.Contains(buf.String(), "cat(3) dog(1)") {
		t.Errorf("summary = %q", buf.String())
	}
}
