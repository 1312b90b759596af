// Package cypher builds the parameterized Cypher statements used to load and
// read knowledge graphs.
//
// Cypher cannot bind labels or relationship types as parameters, so those are
// written into the statement text. Only values of the closed entry.Label and
// entry.Relation sets that pass Valid are ever interpolated; every other value
// (names, scores, sentences, ids) is passed as a parameter.
package cypher

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
	"github.com/OFFIS-RIT/graphvis/pkg/entry"
)

// Property keys stored on relationships and nodes.
const (
	PropName          = "name"
	PropScore         = "score"
	PropSourceID      = "PMC_ID"
	PropSentenceIndex = "sent_id"
	PropSentence      = "sentence"
)

// WipeNamespace removes every node and relationship of the current database.
const WipeNamespace = "MATCH (n) DETACH DELETE n"

// Statement is a statement text with its parameters.
type Statement struct {
	Text   string
	Params map[string]any
}

// Filter is one named equality constraint. A nil Value, a nil pointer or an
// empty string means the filter is absent.
type Filter struct {
	Key   string
	Value any
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LabelExpr returns the label restriction for a node pattern: "" when labels
// is empty, otherwise ":A|B" in the given order.
func LabelExpr(labels []entry.Label) (string, error) {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		if !l.Valid() {
			return "", apperr.BadInput("unknown label %q", string(l))
		}
		parts = append(parts, string(l))
	}
	return joinExpr(parts), nil
}

// TypeExpr returns the type restriction for a relationship pattern with the
// same rules as LabelExpr.
func TypeExpr(relations []entry.Relation) (string, error) {
	parts := make([]string, 0, len(relations))
	for _, r := range relations {
		if !r.Valid() {
			return "", apperr.BadInput("unknown relation %q", string(r))
		}
		parts = append(parts, string(r))
	}
	return joinExpr(parts), nil
}

func joinExpr(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return ":" + strings.Join(parts, "|")
}

// Properties builds an inline property map such as "{name: $name}" from the
// filters that are present, in argument order, together with the matching
// parameters. It returns "" and an empty map when no filter is present.
func Properties(filters ...Filter) (string, map[string]any, error) {
	params := make(map[string]any, len(filters))
	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		if !identRe.MatchString(f.Key) {
			return "", nil, fmt.Errorf("invalid property key %q", f.Key)
		}
		v, ok := present(f.Value)
		if !ok {
			continue
		}
		if _, dup := params[f.Key]; dup {
			return "", nil, fmt.Errorf("duplicate property key %q", f.Key)
		}
		params[f.Key] = v
		clauses = append(clauses, f.Key+": $"+f.Key)
	}
	if len(clauses) == 0 {
		return "", params, nil
	}
	return "{" + strings.Join(clauses, ", ") + "}", params, nil
}

// present dereferences pointers and reports whether v carries a value.
func present(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String && rv.Len() == 0 {
		return nil, false
	}
	return rv.Interface(), true
}

// SubgraphFilter selects part of a graph. The zero value selects everything.
type SubgraphFilter struct {
	Labels        []entry.Label
	Relations     []entry.Relation
	Node          string
	SourceID      string
	SentenceIndex *int
}

// Subgraph builds the read statement for f. It matches every relationship
// between two nodes carrying one of the requested labels and returns the
// distinct start nodes, end nodes and relationships as the columns "sources",
// "targets" and "relations".
func Subgraph(f SubgraphFilter) (Statement, error) {
	labels, err := LabelExpr(f.Labels)
	if err != nil {
		return Statement{}, err
	}
	types, err := TypeExpr(f.Relations)
	if err != nil {
		return Statement{}, err
	}
	nodeProps, nodeParams, err := Properties(Filter{Key: PropName, Value: f.Node})
	if err != nil {
		return Statement{}, err
	}
	relProps, relParams, err := Properties(
		Filter{Key: PropSourceID, Value: f.SourceID},
		Filter{Key: PropSentenceIndex, Value: f.SentenceIndex},
	)
	if err != nil {
		return Statement{}, err
	}

	params := make(map[string]any, len(nodeParams)+len(relParams))
	for k, v := range nodeParams {
		params[k] = v
	}
	for k, v := range relParams {
		params[k] = v
	}

	var b strings.Builder
	b.WriteString("MATCH (")
	b.WriteString(pattern("a", labels, nodeProps))
	b.WriteString(")-[")
	b.WriteString(pattern("r", types, relProps))
	b.WriteString("]-(")
	b.WriteString(pattern("b", labels, ""))
	b.WriteString(")\n")
	b.WriteString("RETURN collect(DISTINCT a) AS sources, collect(DISTINCT b) AS targets, collect(DISTINCT r) AS relations")

	return Statement{Text: b.String(), Params: params}, nil
}

func pattern(variable, expr, props string) string {
	if props == "" {
		return variable + expr
	}
	return variable + expr + " " + props
}

// MergeEntry builds the idempotent statement that merges both entities of e
// and the relationship between them. Nodes are keyed by label and name, the
// relationship by type, endpoints and all per-fact properties.
func MergeEntry(e entry.Entry) (Statement, error) {
	for _, l := range []entry.Label{e.Label1, e.Label2} {
		if !l.Valid() {
			return Statement{}, apperr.BadInput("unknown label %q", string(l))
		}
	}
	if !e.Relation.Valid() {
		return Statement{}, apperr.BadInput("unknown relation %q", string(e.Relation))
	}

	text := fmt.Sprintf(
		"MERGE (e1:%s {name: $entity1})\n"+
			"MERGE (e2:%s {name: $entity2})\n"+
			"MERGE (e1)-[r:%s {score: $score, PMC_ID: $PMC_ID, sent_id: $sent_id, sentence: $sentence}]->(e2)",
		e.Label1, e.Label2, e.Relation,
	)
	return Statement{
		Text: text,
		Params: map[string]any{
			"entity1":         e.Entity1,
			"entity2":         e.Entity2,
			PropScore:         e.Score,
			PropSourceID:      e.SourceID,
			PropSentenceIndex: int64(e.SentenceIndex),
			PropSentence:      e.Sentence,
		},
	}, nil
}
