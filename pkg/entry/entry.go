// Package entry defines the unit of graph ingestion: two labeled entities, the
// relation between them and the sentence the fact was taken from.
package entry

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator"

	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
)

// Label is the closed set of node labels a graph may contain.
type Label string

const (
	LabelSpecies   Label = "Species"
	LabelDisease   Label = "Disease"
	LabelChemicals Label = "Chemicals"
)

// Labels lists every valid Label in declaration order.
var Labels = []Label{LabelSpecies, LabelDisease, LabelChemicals}

// Valid reports whether l is a member of the closed label set.
func (l Label) Valid() bool {
	switch l {
	case LabelSpecies, LabelDisease, LabelChemicals:
		return true
	}
	return false
}

// Relation is the closed set of relationship types.
type Relation string

const (
	RelationPositive Relation = "positive"
	RelationNegative Relation = "negative"
	RelationNeutral  Relation = "neutral"
)

// Relations lists every valid Relation in declaration order.
var Relations = []Relation{RelationPositive, RelationNegative, RelationNeutral}

// Valid reports whether r is a member of the closed relation set.
func (r Relation) Valid() bool {
	switch r {
	case RelationPositive, RelationNegative, RelationNeutral:
		return true
	}
	return false
}

// Entry is one validated ingestion fact. It is never persisted as such; only
// the nodes and the relationship it merges into the graph store remain.
type Entry struct {
	Label1        Label    `json:"label1" validate:"required,oneof=Species Disease Chemicals"`
	Label2        Label    `json:"label2" validate:"required,oneof=Species Disease Chemicals"`
	Relation      Relation `json:"relation" validate:"required,oneof=positive negative neutral"`
	Entity1       string   `json:"entity1" validate:"required"`
	Entity2       string   `json:"entity2" validate:"required"`
	Score         float64  `json:"score"`
	SourceID      string   `json:"PMC_ID" validate:"required"`
	SentenceIndex int      `json:"sent_id" validate:"gte=0"`
	Sentence      string   `json:"sentence" validate:"required"`
}

var validate = validator.New()

// Validate checks e against the entry schema and returns a BadInput error
// naming the first offending field.
func Validate(e Entry) error {
	if err := validate.Struct(e); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.BadInput("field %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return apperr.WrapBadInput(err, "invalid entry")
	}
	if math.IsNaN(e.Score) || math.IsInf(e.Score, 0) {
		return apperr.BadInput("field Score must be a finite number")
	}
	return nil
}

// ParseLabels normalizes query-string label filters. Values may arrive as
// repeated parameters or comma separated; duplicates are dropped keeping the
// first occurrence.
func ParseLabels(raw []string) ([]Label, error) {
	var out []Label
	seen := make(map[Label]struct{})
	for _, v := range splitValues(raw) {
		l := Label(v)
		if !l.Valid() {
			return nil, apperr.BadInput("unknown label %q", v)
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}

// ParseRelations is ParseLabels for relation types.
func ParseRelations(raw []string) ([]Relation, error) {
	var out []Relation
	seen := make(map[Relation]struct{})
	for _, v := range splitValues(raw) {
		r := Relation(v)
		if !r.Valid() {
			return nil, apperr.BadInput("unknown relation %q", v)
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for part := range strings.SplitSeq(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// String renders the entry in CSV column order, used in error messages.
func (e Entry) String() string {
	return fmt.Sprintf("%s,%s,%s,%q,%q,%g,%q,%d,%q",
		e.Label1, e.Label2, e.Relation, e.Entity1, e.Entity2,
		e.Score, e.SourceID, e.SentenceIndex, e.Sentence)
}
