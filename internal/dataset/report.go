package dataset

import (
	"fmt"
	"io"

	"github.com/starford/catdog/internal/models"
)

// Report is the detailed annotation report.
type Report struct {
	Overall      Overall                       `json:"overall"`
	Distribution map[models.Label]Distribution `json:"distribution"`
}

type Overall struct {
	TotalImages int      `json:"total_images"`
	Categories  int      `json:"categories"`
	TimeSpan    TimeSpan `json:"time_span"`
}

type TimeSpan struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
}

type Distribution struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// BuildReport derives the report from entries.
func BuildReport(entries []models.LedgerEntry) Report {
	st := ComputeStats(entries)
	rep := Report{
		Overall: Overall{
			TotalImages: st.Total,
			Categories:  len(st.Labels),
		},
		Distribution: make(map[models.Label]Distribution, len(st.Labels)),
	}
	if st.Total > 0 {
		rep.Overall.TimeSpan = TimeSpan{
			First: models.LedgerEntry{Timestamp: st.First}.FormatTimestamp(),
			Last:  models.LedgerEntry{Timestamp: st.Last}.FormatTimestamp(),
		}
	}
	for _, lc := range st.Labels {
		rep.Distribution[lc.Label] = Distribution{Count: lc.Count, Percentage: lc.Percentage}
	}
	return rep
}

// PrintSummary writes the short project summary shown after a report.
func (r Report) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "labeled: %d images\n", r.Overall.TotalImages)
	fmt.Fprint(w, "distribution:")
	for _, l := range models.Labels() {
		if d, ok := r.Distribution[l]; ok {
			fmt.Fprintf(w, " %s(%d)", l, d.Count)
		}
	}
	fmt.Fprintln(w)
}
