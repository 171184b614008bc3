package dataset

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/catdog/internal/ledger"
	"github.com/starford/catdog/internal/models"
)

// Ratios are the train and validation fractions; test gets the rest.
type Ratios struct {
	Train float64
	Val   float64
}

// DefaultRatios is an 80/10/10 split.
var DefaultRatios = Ratios{Train: 0.8, Val: 0.1}

// Validate checks that both ratios lie in [0,1] and sum to at most 1.
func (r Ratios) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Train, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&r.Val, validation.Min(0.0), validation.Max(1.0)),
	); err != nil {
		return err
	}
	if r.Train+r.Val > 1 {
		return errors.New("train and val ratios must not sum to more than 1")
	}
	return nil
}

// Splits holds three disjoint subsets of a ledger.
type Splits struct {
	Train []models.LedgerEntry
	Val   []models.LedgerEntry
	Test  []models.LedgerEntry
}

// Named returns the splits keyed by their file stem, in a fixed order.
func (s Splits) Named() []struct {
	Name    string
	Entries []models.LedgerEntry
} {
	return []struct {
		Name    string
		Entries []models.LedgerEntry
	}{
		{"train", s.Train},
		{"val", s.Val},
		{"test", s.Test},
	}
}

// NewRand returns a generator for seed. Seed 0 draws from the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Split shuffles each label independently, cuts floor(n*train) and
// floor(n*val) items off the front and leaves the rest for test. Each
// merged subset is shuffled again.
func Split(entries []models.LedgerEntry, r Ratios, rng *rand.Rand) (Splits, error) {
	if err := r.Validate(); err != nil {
		return Splits{}, fmt.Errorf("dataset: ratios: %w", err)
	}
	var out Splits
	for _, l := range models.Labels() {
		var group []models.LedgerEntry
		for _, e := range entries {
			if e.Label == l {
				group = append(group, e)
			}
		}
		shuffle(rng, group)
		n := len(group)
		trainN := int(float64(n) * r.Train)
		valN := int(float64(n) * r.Val)
		out.Train = append(out.Train, group[:trainN]...)
		out.Val = append(out.Val, group[trainN:trainN+valN]...)
		out.Test = append(out.Test, group[trainN+valN:]...)
	}
	shuffle(rng, out.Train)
	shuffle(rng, out.Val)
	shuffle(rng, out.Test)
	return out, nil
}

func shuffle(rng *rand.Rand, s []models.LedgerEntry) {
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// WriteSplits writes train.csv, val.csv and test.csv into dir in ledger
// format and prints per-split counts to w.
func WriteSplits(dir string, s Splits, w io.Writer) error {
	for _, sp := range s.Named() {
		path := filepath.Join(dir, sp.Name+".csv")
		if err := ledger.WriteFile(path, sp.Entries); err != nil {
			return fmt.Errorf("dataset: split %s: %w", sp.Name, err)
		}
		st := ComputeStats(sp.Entries)
		fmt.Fprintf(w, "%s: %d (cat: %d, dog: %d)\n",
			sp.Name, st.Total, st.Count(models.LabelCat), st.Count(models.LabelDog))
	}
	return nil
}
