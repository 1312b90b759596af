// Package graphdb is the boundary between the graph service and the graph
// database. Each knowledge graph lives in its own namespace (a separate
// database keyed by the graph id); sessions are opened against one namespace
// and all work happens inside explicit transactions.
package graphdb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// AccessMode selects a read or write session.
type AccessMode int

const (
	Read AccessMode = iota
	Write
)

var (
	// ErrNamespaceNotFound is returned when a read targets a namespace that
	// was never written to.
	ErrNamespaceNotFound = errors.New("graph namespace not found")
	// ErrInvalidStatement marks statements the engine rejected because of a
	// missing parameter or a semantic error.
	ErrInvalidStatement = errors.New("invalid graph statement")
	// ErrInvalidNamespace is returned for ids that cannot name a namespace.
	ErrInvalidNamespace = errors.New("invalid graph namespace name")
)

// Driver opens sessions and manages namespace lifecycle.
type Driver interface {
	// OpenSession opens a session bound to namespace. Write sessions create
	// the namespace if it does not exist yet.
	OpenSession(ctx context.Context, namespace string, mode AccessMode) (Session, error)
	// DestroyNamespace drops namespace and its data. Dropping a namespace
	// that does not exist is not an error.
	DestroyNamespace(ctx context.Context, namespace string) error
	Close(ctx context.Context) error
}

// Session is a unit of work against one namespace. Close must always be
// called, also after failures.
type Session interface {
	BeginTransaction(ctx context.Context) (Transaction, error)
	Close(ctx context.Context) error
}

// Transaction is an explicit transaction. It must end with exactly one of
// Commit or Rollback.
type Transaction interface {
	Run(ctx context.Context, text string, params map[string]any) ([]Record, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Record is one result row.
type Record struct {
	Keys   []string
	Values []any
}

// Get returns the value of column key.
func (r Record) Get(key string) (any, bool) {
	for i, k := range r.Keys {
		if k == key && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Node is a graph node as returned to API callers.
type Node struct {
	ElementID  string         `json:"elementId"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// Relationship is a graph relationship as returned to API callers.
type Relationship struct {
	ElementID          string         `json:"elementId"`
	Type               string         `json:"type"`
	StartNodeElementID string         `json:"startNodeElementId"`
	EndNodeElementID   string         `json:"endNodeElementId"`
	Properties         map[string]any `json:"properties"`
}

var namespaceRe = regexp.MustCompile(`^[a-z][a-z0-9.\-]{2,62}$`)

// NamespaceName maps a graph id to its database name. Database names are
// case-insensitive, so the id is lower-cased.
func NamespaceName(graphID string) (string, error) {
	name := strings.ToLower(graphID)
	if !namespaceRe.MatchString(name) || name == "neo4j" || strings.HasPrefix(name, "system") {
		return "", fmt.Errorf("%w: %q", ErrInvalidNamespace, graphID)
	}
	return name, nil
}
