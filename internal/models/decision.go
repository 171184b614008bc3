package models

import "fmt"

// Decision is the token a presentation surface returns for the current item.
type Decision string

const (
	DecisionCat  Decision = "cat"
	DecisionDog  Decision = "dog"
	DecisionSkip Decision = "skip"
	DecisionUndo Decision = "undo"
	DecisionQuit Decision = "quit"
)

// ParseDecision validates a decision token.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionCat, DecisionDog, DecisionSkip, DecisionUndo, DecisionQuit:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

// Label reports the label carried by a labeling decision.
func (d Decision) Label() (Label, bool) {
	switch d {
	case DecisionCat:
		return LabelCat, true
	case DecisionDog:
		return LabelDog, true
	}
	return "", false
}
