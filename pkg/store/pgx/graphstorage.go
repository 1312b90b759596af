package pgx

import (
	"context"
	"errors"
	"fmt"

	pgdb "github.com/OFFIS-RIT/graphvis/pkg/db/pgx"
	"github.com/OFFIS-RIT/graphvis/pkg/graph"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphMetadataStorage implements graph.Metadata on PostgreSQL.
type GraphMetadataStorage struct {
	conn pgxIConn
}

func NewGraphMetadataStorage(conn pgxIConn) *GraphMetadataStorage {
	return &GraphMetadataStorage{conn: conn}
}

func (s *GraphMetadataStorage) GraphExists(ctx context.Context, id string) (bool, error) {
	return pgdb.New(s.conn).GraphExists(ctx, id)
}

func (s *GraphMetadataStorage) GetGraph(ctx context.Context, id string) (*graph.Graph, error) {
	row, err := pgdb.New(s.conn).GetGraph(ctx, id)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g := toGraph(row)
	return &g, nil
}

func (s *GraphMetadataStorage) CreateGraph(ctx context.Context, g graph.Graph) (graph.Graph, error) {
	row, err := pgdb.New(s.conn).CreateGraph(ctx, pgdb.CreateGraphParams{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		IsVisible:   g.IsVisible,
	})
	if err != nil {
		return graph.Graph{}, err
	}
	return toGraph(row), nil
}

func (s *GraphMetadataStorage) UpdateGraph(ctx context.Context, id string, patch graph.Patch) (*graph.Graph, error) {
	params := pgdb.UpdateGraphParams{ID: id}
	if patch.Title != nil {
		params.Title = pgtype.Text{String: *patch.Title, Valid: true}
	}
	if patch.Description != nil {
		params.Description = pgtype.Text{String: *patch.Description, Valid: true}
	}
	if patch.IsVisible != nil {
		params.IsVisible = pgtype.Bool{Bool: *patch.IsVisible, Valid: true}
	}

	row, err := pgdb.New(s.conn).UpdateGraph(ctx, params)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g := toGraph(row)
	return &g, nil
}

func (s *GraphMetadataStorage) ListGraphs(ctx context.Context, params graph.ListParams) ([]graph.Graph, int, error) {
	q := pgdb.New(s.conn)

	count, err := q.CountGraphs(ctx, pgdb.CountGraphsParams{
		IncludeHidden: params.IncludeHidden,
		Search:        params.Search,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count graphs: %w", err)
	}

	rows, err := q.ListGraphs(ctx, pgdb.ListGraphsParams{
		IncludeHidden: params.IncludeHidden,
		Search:        params.Search,
		Limit:         int32(params.Size),
		Offset:        int32(params.Offset()),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list graphs: %w", err)
	}

	items := make([]graph.Graph, 0, len(rows))
	for _, row := range rows {
		items = append(items, toGraph(row))
	}
	return items, int(count), nil
}

func (s *GraphMetadataStorage) DeleteGraphs(ctx context.Context, ids []string, check func(affected int) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	affected, err := pgdb.New(s.conn).WithTx(tx).DeleteGraphs(ctx, ids)
	if err != nil {
		return err
	}
	if err := check(int(affected)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func toGraph(row pgdb.Graph) graph.Graph {
	return graph.Graph{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		IsVisible:   row.IsVisible,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}
