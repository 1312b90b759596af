package graph

import (
	"context"

	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
	"github.com/OFFIS-RIT/graphvis/pkg/csvparse"
	"github.com/OFFIS-RIT/graphvis/pkg/cypher"
	"github.com/OFFIS-RIT/graphvis/pkg/graphdb"
	"github.com/OFFIS-RIT/graphvis/pkg/logger"
)

// Ingest replaces the contents of graph id with the entries of the CSV
// document data and returns the number of entries merged.
//
// The wipe and all merges run in one transaction: either the whole document
// is stored or the previous contents stay untouched. The first invalid row
// aborts the ingestion with a bad input error naming the row.
func (s *Service) Ingest(ctx context.Context, id string, data []byte) (int, error) {
	exists, err := s.meta.GraphExists(ctx, id)
	if err != nil {
		return 0, apperr.WrapStore(err, "check graph %s", id)
	}
	if !exists {
		return 0, apperr.NotFound("graph %s not found", id)
	}

	session, err := s.driver.OpenSession(ctx, id, graphdb.Write)
	if err != nil {
		return 0, graphErr(err, "open session for graph %s", id)
	}
	defer func() {
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to close graph session", "graph", id, "err", err)
		}
	}()

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return 0, graphErr(err, "begin transaction for graph %s", id)
	}

	count, err := mergeAll(ctx, tx, data)
	if err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.Error("Failed to roll back ingestion", "graph", id, "err", rbErr)
		}
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, graphErr(err, "commit ingestion for graph %s", id)
	}

	logger.Info("Ingested graph", "graph", id, "entries", count)
	return count, nil
}

func mergeAll(ctx context.Context, tx graphdb.Transaction, data []byte) (int, error) {
	if _, err := tx.Run(ctx, cypher.WipeNamespace, nil); err != nil {
		return 0, graphErr(err, "wipe graph")
	}

	count := 0
	for e, err := range csvparse.Entries(data) {
		if err != nil {
			return 0, err
		}
		stmt, err := cypher.MergeEntry(e)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Run(ctx, stmt.Text, stmt.Params); err != nil {
			return 0, graphErr(err, "merge entry %d", count+1)
		}
		count++
	}
	return count, nil
}
