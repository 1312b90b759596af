package graph

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
	"github.com/OFFIS-RIT/graphvis/pkg/cypher"
	"github.com/OFFIS-RIT/graphvis/pkg/graphdb"
	"github.com/OFFIS-RIT/graphvis/pkg/logger"
)

const readTimeout = 30 * time.Second

// Subgraph is a graph's metadata together with the part of its content
// selected by a filter.
type Subgraph struct {
	Graph
	Nodes     []graphdb.Node         `json:"nodes"`
	Relations []graphdb.Relationship `json:"relations"`
}

// Find returns the relationships of graph id matching filter together with
// their endpoint nodes. A graph that was never ingested has no nodes.
//
// Identical concurrent reads share one database round trip. Each caller gets
// its own Nodes and Relations slices; the property maps inside are shared and
// must not be modified.
func (s *Service) Find(ctx context.Context, id string, filter cypher.SubgraphFilter) (*Subgraph, error) {
	stmt, err := cypher.Subgraph(filter)
	if err != nil {
		return nil, err
	}

	key, err := json.Marshal(struct {
		ID     string
		Filter cypher.SubgraphFilter
	}{id, filter})
	if err != nil {
		return nil, apperr.WrapBadInput(err, "encode filter")
	}

	v, err, _ := s.reads.Do(string(key), func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readTimeout)
		defer cancel()
		return s.find(readCtx, id, stmt)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Subgraph).clone(), nil
}

func (sg *Subgraph) clone() *Subgraph {
	c := *sg
	c.Nodes = slices.Clone(sg.Nodes)
	c.Relations = slices.Clone(sg.Relations)
	return &c
}

func (s *Service) find(ctx context.Context, id string, stmt cypher.Statement) (*Subgraph, error) {
	g, err := s.meta.GetGraph(ctx, id)
	if err != nil {
		return nil, apperr.WrapStore(err, "get graph %s", id)
	}
	if g == nil {
		return nil, apperr.NotFound("graph %s not found", id)
	}

	result := &Subgraph{
		Graph:     *g,
		Nodes:     []graphdb.Node{},
		Relations: []graphdb.Relationship{},
	}

	records, err := s.readRecords(ctx, id, stmt)
	if errors.Is(err, graphdb.ErrNamespaceNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	addNodes := func(v any) {
		list, _ := v.([]any)
		for _, item := range list {
			n, ok := item.(graphdb.Node)
			if !ok {
				continue
			}
			if _, dup := seen[n.ElementID]; dup {
				continue
			}
			seen[n.ElementID] = struct{}{}
			result.Nodes = append(result.Nodes, n)
		}
	}

	for _, r := range records {
		sources, _ := r.Get("sources")
		targets, _ := r.Get("targets")
		addNodes(sources)
		addNodes(targets)

		relations, _ := r.Get("relations")
		list, _ := relations.([]any)
		for _, item := range list {
			if rel, ok := item.(graphdb.Relationship); ok {
				result.Relations = append(result.Relations, rel)
			}
		}
	}

	return result, nil
}

func (s *Service) readRecords(ctx context.Context, id string, stmt cypher.Statement) ([]graphdb.Record, error) {
	session, err := s.driver.OpenSession(ctx, id, graphdb.Read)
	if err != nil {
		return nil, graphErr(err, "open session for graph %s", id)
	}
	defer func() {
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to close graph session", "graph", id, "err", err)
		}
	}()

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return nil, graphErr(err, "begin read for graph %s", id)
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			logger.Debug("Read transaction rollback failed", "graph", id, "err", err)
		}
	}()

	records, err := tx.Run(ctx, stmt.Text, stmt.Params)
	if err != nil {
		return nil, graphErr(err, "read graph %s", id)
	}
	return records, nil
}
