package graphdb

import (
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestNamespaceName(t *testing.T) {
	got, err := NamespaceName("G3f2a9c1e0b7d4a5f8e6c2b1a0d9e8f7")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != "g3f2a9c1e0b7d4a5f8e6c2b1a0d9e8f7" {
		t.Fatalf("expected lower-cased name, got %q", got)
	}
}

func TestNamespaceName_Rejects(t *testing.T) {
	for _, id := range []string{"", "ab", "1graph", "system", "neo4j", "g1 DESTROY DATA", "g`x`"} {
		if _, err := NamespaceName(id); !errors.Is(err, ErrInvalidNamespace) {
			t.Fatalf("expected %q to be rejected, got %v", id, err)
		}
	}
}

func TestRecord_Get(t *testing.T) {
	r := Record{Keys: []string{"a", "b"}, Values: []any{1, "x"}}
	if v, ok := r.Get("b"); !ok || v != "x" {
		t.Fatalf("expected x, got %v (%v)", v, ok)
	}
	if _, ok := r.Get("c"); ok {
		t.Fatal("expected missing key")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{codeDatabaseNotFound, ErrNamespaceNotFound},
		{codeParameterMissing, ErrInvalidStatement},
		{codeSemanticError, ErrInvalidStatement},
	}
	for _, tc := range cases {
		err := classify(&neo4j.Neo4jError{Code: tc.code, Msg: "boom"})
		if !errors.Is(err, tc.want) {
			t.Fatalf("expected %v for %s, got %v", tc.want, tc.code, err)
		}
		var neoErr *neo4j.Neo4jError
		if !errors.As(err, &neoErr) {
			t.Fatalf("expected driver error to stay in chain for %s", tc.code)
		}
	}
}

func TestClassify_Passthrough(t *testing.T) {
	if classify(nil) != nil {
		t.Fatal("expected nil")
	}
	plain := errors.New("network down")
	if got := classify(plain); got != plain {
		t.Fatalf("expected unchanged error, got %v", got)
	}
	other := &neo4j.Neo4jError{Code: "Neo.TransientError.General.DatabaseUnavailable"}
	if got := classify(other); errors.Is(got, ErrNamespaceNotFound) || errors.Is(got, ErrInvalidStatement) {
		t.Fatalf("expected unclassified error, got %v", got)
	}
}

func TestConvertValue(t *testing.T) {
	in := []any{
		neo4j.Node{ElementId: "4:x:1", Labels: []string{"Disease"}, Props: map[string]any{"name": "flu"}},
		neo4j.Relationship{ElementId: "5:x:2", StartElementId: "4:x:1", EndElementId: "4:x:3", Type: "positive"},
		int64(3),
	}
	out, ok := convertValue(in).([]any)
	if !ok || len(out) != 3 {
		t.Fatalf("expected 3 converted values, got %#v", out)
	}
	n, ok := out[0].(Node)
	if !ok || n.ElementID != "4:x:1" || n.Properties["name"] != "flu" {
		t.Fatalf("unexpected node %#v", out[0])
	}
	r, ok := out[1].(Relationship)
	if !ok || r.Type != "positive" || r.StartNodeElementID != "4:x:1" || r.EndNodeElementID != "4:x:3" {
		t.Fatalf("unexpected relationship %#v", out[1])
	}
	if out[2] != int64(3) {
		t.Fatalf("expected scalar passthrough, got %#v", out[2])
	}
}
