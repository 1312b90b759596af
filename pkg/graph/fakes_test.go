package graph

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/OFFIS-RIT/graphvis/pkg/cypher"
	"github.com/OFFIS-RIT/graphvis/pkg/graphdb"
)

var (
	mergeRe    = regexp.MustCompile(`^MERGE \(e1:(\w+) [^\n]*\nMERGE \(e2:(\w+) [^\n]*\nMERGE \(e1\)-\[r:(\w+) `)
	subgraphRe = regexp.MustCompile(`^MATCH \(a((?::[\w|]+)?)[^)]*\)-\[r((?::[\w|]+)?)`)
)

type fakeNode struct {
	id    string
	label string
	name  string
}

type fakeRel struct {
	id    string
	typ   string
	from  string
	to    string
	props map[string]any
}

type fakeNamespace struct {
	nodes []fakeNode
	rels  []fakeRel
	seq   int
}

func (ns *fakeNamespace) clone() *fakeNamespace {
	c := &fakeNamespace{seq: ns.seq}
	c.nodes = slices.Clone(ns.nodes)
	for _, r := range ns.rels {
		r.props = maps.Clone(r.props)
		c.rels = append(c.rels, r)
	}
	return c
}

func (ns *fakeNamespace) node(id string) fakeNode {
	for _, n := range ns.nodes {
		if n.id == id {
			return n
		}
	}
	return fakeNode{}
}

func (ns *fakeNamespace) mergeNode(label, name string) string {
	for _, n := range ns.nodes {
		if n.label == label && n.name == name {
			return n.id
		}
	}
	ns.seq++
	id := fmt.Sprintf("n%d", ns.seq)
	ns.nodes = append(ns.nodes, fakeNode{id: id, label: label, name: name})
	return id
}

func (ns *fakeNamespace) mergeRel(typ, from, to string, props map[string]any) {
	for _, r := range ns.rels {
		if r.typ == typ && r.from == from && r.to == to && maps.Equal(r.props, props) {
			return
		}
	}
	ns.seq++
	ns.rels = append(ns.rels, fakeRel{id: fmt.Sprintf("r%d", ns.seq), typ: typ, from: from, to: to, props: props})
}

func (ns *fakeNamespace) toNode(n fakeNode) graphdb.Node {
	return graphdb.Node{ElementID: n.id, Labels: []string{n.label}, Properties: map[string]any{"name": n.name}}
}

// fakeDriver is an in-memory graph database that understands the statements
// built by package cypher.
type fakeDriver struct {
	mu         sync.Mutex
	namespaces map[string]*fakeNamespace
	calls      int
	runs       int
	failRunAt  int
	runErr     error
	destroyErr map[string]error
	open       int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{namespaces: map[string]*fakeNamespace{}, destroyErr: map[string]error{}}
}

func (d *fakeDriver) OpenSession(_ context.Context, ns string, mode graphdb.AccessMode) (graphdb.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if mode == graphdb.Write {
		if _, ok := d.namespaces[ns]; !ok {
			d.namespaces[ns] = &fakeNamespace{}
		}
	}
	d.open++
	return &fakeSession{driver: d, ns: ns}, nil
}

func (d *fakeDriver) DestroyNamespace(ctx context.Context, ns string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.destroyErr[ns]; err != nil {
		return err
	}
	delete(d.namespaces, ns)
	return nil
}

func (d *fakeDriver) Close(context.Context) error { return nil }

func (d *fakeDriver) namespace(ns string) (*fakeNamespace, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.namespaces[ns]
	return n, ok
}

func (d *fakeDriver) openSessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

type fakeSession struct {
	driver *fakeDriver
	ns     string
	closed bool
}

func (s *fakeSession) BeginTransaction(context.Context) (graphdb.Transaction, error) {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	var work *fakeNamespace
	if ns, ok := s.driver.namespaces[s.ns]; ok {
		work = ns.clone()
	}
	return &fakeTx{session: s, work: work}, nil
}

func (s *fakeSession) Close(context.Context) error {
	if !s.closed {
		s.closed = true
		s.driver.mu.Lock()
		s.driver.open--
		s.driver.mu.Unlock()
	}
	return nil
}

type fakeTx struct {
	session *fakeSession
	work    *fakeNamespace
	done    bool
}

func (t *fakeTx) Run(_ context.Context, text string, params map[string]any) ([]graphdb.Record, error) {
	d := t.session.driver
	d.mu.Lock()
	d.runs++
	fail := d.failRunAt > 0 && d.runs == d.failRunAt
	d.mu.Unlock()
	if fail {
		return nil, d.runErr
	}
	if t.work == nil {
		return nil, fmt.Errorf("%w: %s", graphdb.ErrNamespaceNotFound, t.session.ns)
	}

	switch {
	case text == cypher.WipeNamespace:
		t.work.nodes = nil
		t.work.rels = nil
		return nil, nil
	case strings.HasPrefix(text, "MERGE"):
		m := mergeRe.FindStringSubmatch(text)
		if m == nil {
			return nil, fmt.Errorf("%w: unexpected merge %q", graphdb.ErrInvalidStatement, text)
		}
		from := t.work.mergeNode(m[1], params["entity1"].(string))
		to := t.work.mergeNode(m[2], params["entity2"].(string))
		t.work.mergeRel(m[3], from, to, map[string]any{
			cypher.PropScore:         params[cypher.PropScore],
			cypher.PropSourceID:      params[cypher.PropSourceID],
			cypher.PropSentenceIndex: params[cypher.PropSentenceIndex],
			cypher.PropSentence:      params[cypher.PropSentence],
		})
		return nil, nil
	case strings.HasPrefix(text, "MATCH"):
		return t.subgraph(text, params)
	}
	return nil, fmt.Errorf("%w: %q", graphdb.ErrInvalidStatement, text)
}

func (t *fakeTx) subgraph(text string, params map[string]any) ([]graphdb.Record, error) {
	m := subgraphRe.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: unexpected match %q", graphdb.ErrInvalidStatement, text)
	}
	labels := splitExpr(m[1])
	types := splitExpr(m[2])

	var sources, targets, relations []any
	for _, r := range t.work.rels {
		if len(types) > 0 && !slices.Contains(types, r.typ) {
			continue
		}
		if v, ok := params[cypher.PropSourceID]; ok && r.props[cypher.PropSourceID] != v {
			continue
		}
		if v, ok := params[cypher.PropSentenceIndex]; ok && r.props[cypher.PropSentenceIndex] != int64(v.(int)) {
			continue
		}
		matched := false
		for _, ends := range [][2]string{{r.from, r.to}, {r.to, r.from}} {
			a, b := t.work.node(ends[0]), t.work.node(ends[1])
			if len(labels) > 0 && (!slices.Contains(labels, a.label) || !slices.Contains(labels, b.label)) {
				continue
			}
			if v, ok := params[cypher.PropName]; ok && a.name != v {
				continue
			}
			sources = append(sources, t.work.toNode(a))
			targets = append(targets, t.work.toNode(b))
			matched = true
		}
		if matched {
			relations = append(relations, graphdb.Relationship{
				ElementID:          r.id,
				Type:               r.typ,
				StartNodeElementID: r.from,
				EndNodeElementID:   r.to,
				Properties:         maps.Clone(r.props),
			})
		}
	}

	return []graphdb.Record{{
		Keys:   []string{"sources", "targets", "relations"},
		Values: []any{sources, targets, relations},
	}}, nil
}

func splitExpr(expr string) []string {
	expr = strings.TrimPrefix(expr, ":")
	if expr == "" {
		return nil
	}
	return strings.Split(expr, "|")
}

func (t *fakeTx) Commit(context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	d := t.session.driver
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.work != nil {
		d.namespaces[t.session.ns] = t.work
	}
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	return nil
}

// fakeMetadata is an in-memory relational store.
type fakeMetadata struct {
	mu     sync.Mutex
	graphs map[string]Graph
	calls  int
	// afterDelete runs once DeleteGraphs has committed.
	afterDelete func()
}

func newFakeMetadata(ids ...string) *fakeMetadata {
	m := &fakeMetadata{graphs: map[string]Graph{}}
	for i, id := range ids {
		m.graphs[id] = Graph{
			ID:        id,
			Title:     "graph " + id,
			IsVisible: true,
			CreatedAt: time.Unix(int64(i), 0),
		}
	}
	return m
}

func (m *fakeMetadata) GraphExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	_, ok := m.graphs[id]
	return ok, nil
}

func (m *fakeMetadata) GetGraph(_ context.Context, id string) (*Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	g, ok := m.graphs[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *fakeMetadata) CreateGraph(_ context.Context, g Graph) (Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	m.graphs[g.ID] = g
	return g, nil
}

func (m *fakeMetadata) UpdateGraph(_ context.Context, id string, patch Patch) (*Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	g, ok := m.graphs[id]
	if !ok {
		return nil, nil
	}
	if patch.Title != nil {
		g.Title = *patch.Title
	}
	if patch.Description != nil {
		g.Description = *patch.Description
	}
	if patch.IsVisible != nil {
		g.IsVisible = *patch.IsVisible
	}
	m.graphs[id] = g
	return &g, nil
}

func (m *fakeMetadata) ListGraphs(_ context.Context, params ListParams) ([]Graph, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var all []Graph
	for _, g := range m.graphs {
		if !g.IsVisible && !params.IncludeHidden {
			continue
		}
		search := strings.ToLower(params.Search)
		if search != "" && !strings.Contains(strings.ToLower(g.Title), search) &&
			!strings.Contains(strings.ToLower(g.Description), search) {
			continue
		}
		all = append(all, g)
	}
	slices.SortFunc(all, func(a, b Graph) int { return b.CreatedAt.Compare(a.CreatedAt) })

	start := min(params.Offset(), len(all))
	end := min(start+params.Size, len(all))
	return all[start:end], len(all), nil
}

func (m *fakeMetadata) DeleteGraphs(_ context.Context, ids []string, check func(int) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	affected := 0
	for _, id := range ids {
		if _, ok := m.graphs[id]; ok {
			affected++
		}
	}
	if err := check(affected); err != nil {
		return err
	}
	for _, id := range ids {
		delete(m.graphs, id)
	}
	if m.afterDelete != nil {
		m.afterDelete()
	}
	return nil
}

func (m *fakeMetadata) exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.graphs[id]
	return ok
}

type fakeQueue struct {
	ids []string
	err error
}

func (q *fakeQueue) EnqueueCleanup(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, ids...)
	return nil
}
