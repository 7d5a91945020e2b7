// Package nlp defines the named-entity recognizer boundary and its backends.
package nlp

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRecognitionUnavailable means the recognizer could not be reached or
// loaded. It is fatal at start-up.
var ErrRecognitionUnavailable = errors.New("entity recognizer unavailable")

// Label is a coarse entity type as emitted by the recognizer.
type Label string

const (
	LabelPerson    Label = "PERSON"
	LabelNORP      Label = "NORP"
	LabelFacility  Label = "FAC"
	LabelOrg       Label = "ORG"
	LabelGPE       Label = "GPE"
	LabelLocation  Label = "LOC"
	LabelProduct   Label = "PRODUCT"
	LabelEvent     Label = "EVENT"
	LabelWorkOfArt Label = "WORK_OF_ART"
	LabelLaw       Label = "LAW"
	LabelLanguage  Label = "LANGUAGE"
	LabelDate      Label = "DATE"
	LabelTime      Label = "TIME"
	LabelPercent   Label = "PERCENT"
	LabelMoney     Label = "MONEY"
	LabelQuantity  Label = "QUANTITY"
	LabelOrdinal   Label = "ORDINAL"
	LabelCardinal  Label = "CARDINAL"
)

// Labels is the closed set of labels any recognizer may emit, in the order
// used for documentation and completeness checks.
var Labels = []Label{
	LabelPerson, LabelNORP, LabelFacility, LabelOrg, LabelGPE, LabelLocation,
	LabelProduct, LabelEvent, LabelWorkOfArt, LabelLaw, LabelLanguage,
	LabelDate, LabelTime, LabelPercent, LabelMoney, LabelQuantity,
	LabelOrdinal, LabelCardinal,
}

// ParseLabel normalizes a recognizer label. ok is false for labels outside
// the closed set.
func ParseLabel(s string) (Label, bool) {
	l := Label(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Labels {
		if l == known {
			return l, true
		}
	}
	return l, false
}

// Mention is a recognized span of text with its coarse type.
type Mention struct {
	Text  string `json:"text"`
	Label Label  `json:"label"`
}

// Recognizer segments text into mentions, in order of appearance.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Mention, error)
}

// Probe runs the recognizer once so a broken backend fails at start-up rather
// than on the first question.
func Probe(ctx context.Context, r Recognizer) error {
	if r == nil {
		return fmt.Errorf("%w: no recognizer configured", ErrRecognitionUnavailable)
	}
	if _, err := r.Recognize(ctx, "Paris is the capital of France."); err != nil {
		return fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err)
	}
	return nil
}
