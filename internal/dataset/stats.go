// Package dataset derives statistics, exports and train/val/test splits
// from a finished ledger.
package dataset

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/starford/catdog/internal/models"
)

// LabelCount is the share of one label.
type LabelCount struct {
	Label      models.Label `json:"label"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"` // one decimal
}

// DateCount is the number of labels recorded on one day.
type DateCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Stats summarises a ledger.
type Stats struct {
	Total  int          `json:"total"`
	Labels []LabelCount `json:"labels"`
	ByDate []DateCount  `json:"by_date"`
	First  time.Time    `json:"first,omitzero"`
	Last   time.Time    `json:"last,omitzero"`
}

// ComputeStats counts entries per label and per day. Labels are reported
// in category order and only when present.
func ComputeStats(entries []models.LedgerEntry) Stats {
	s := Stats{Total: len(entries)}
	counts := make(map[models.Label]int)
	days := make(map[string]int)
	for _, e := range entries {
		counts[e.Label]++
		days[e.Timestamp.Local().Format(time.DateOnly)]++
		if s.First.IsZero() || e.Timestamp.Before(s.First) {
			s.First = e.Timestamp
		}
		if e.Timestamp.After(s.Last) {
			s.Last = e.Timestamp
		}
	}
	for _, l := range models.Labels() {
		if n := counts[l]; n > 0 {
			s.Labels = append(s.Labels, LabelCount{Label: l, Count: n, Percentage: percent(n, s.Total)})
		}
	}
	for d, n := range days {
		s.ByDate = append(s.ByDate, DateCount{Date: d, Count: n})
	}
	sort.Slice(s.ByDate, func(i, j int) bool { return s.ByDate[i].Date < s.ByDate[j].Date })
	return s
}

// Count returns the number of entries carrying label.
func (s Stats) Count(label models.Label) int {
	for _, lc := range s.Labels {
		if lc.Label == label {
			return lc.Count
		}
	}
	return 0
}

// Print writes a human-readable summary.
func (s Stats) Print(w io.Writer) {
	if s.Total == 0 {
		fmt.Fprintln(w, "no labeled images")
		return
	}
	fmt.Fprintln(w, "=== Label statistics ===")
	fmt.Fprintf(w, "total images: %d\n", s.Total)
	for _, lc := range s.Labels {
		fmt.Fprintf(w, "%s: %d (%.1f%%)\n", lc.Label, lc.Count, lc.Percentage)
	}
	if len(s.ByDate) > 0 {
		fmt.Fprintln(w, "\n=== Progress by date ===")
		for _, dc := range s.ByDate {
			fmt.Fprintf(w, "%s: %d\n", dc.Date, dc.Count)
		}
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*1000/float64(total)) / 10
}
