package graph

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
	"github.com/OFFIS-RIT/graphvis/pkg/common"
	"github.com/OFFIS-RIT/graphvis/pkg/graphdb"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const defaultDeleteParallel = 4

// Graph is the relational metadata row of a knowledge graph. The graph's
// nodes and relationships live in the graph database namespace named by ID.
type Graph struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsVisible   bool      `json:"isVisible"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Patch carries the fields of an update. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	IsVisible   *bool
}

// ListParams filters a graph listing.
type ListParams struct {
	common.PageRequest
	Search        string
	IncludeHidden bool
}

// Metadata is the relational side of a graph.
type Metadata interface {
	GraphExists(ctx context.Context, id string) (bool, error)
	// GetGraph returns nil without error when the graph does not exist.
	GetGraph(ctx context.Context, id string) (*Graph, error)
	CreateGraph(ctx context.Context, g Graph) (Graph, error)
	// UpdateGraph returns nil without error when the graph does not exist.
	UpdateGraph(ctx context.Context, id string, patch Patch) (*Graph, error)
	ListGraphs(ctx context.Context, params ListParams) ([]Graph, int, error)
	// DeleteGraphs deletes the rows in one transaction. check is called with
	// the number of affected rows before commit; a non-nil result rolls the
	// transaction back and is returned unchanged.
	DeleteGraphs(ctx context.Context, ids []string, check func(affected int) error) error
}

// CleanupQueue hands namespaces that could not be destroyed to a background
// worker.
type CleanupQueue interface {
	EnqueueCleanup(ctx context.Context, ids []string) error
}

// Options configures a Service.
type Options struct {
	// DeleteParallel bounds concurrent namespace destructions.
	DeleteParallel int
	// Cleanup receives namespaces whose destruction failed. Optional.
	Cleanup CleanupQueue
}

// Service coordinates the relational metadata store and the graph database.
//
// A Service is safe for concurrent use. Concurrent ingestions into the same
// graph must be serialized by the caller.
type Service struct {
	meta     Metadata
	driver   graphdb.Driver
	cleanup  CleanupQueue
	parallel int

	reads singleflight.Group
}

func NewService(meta Metadata, driver graphdb.Driver, opts Options) *Service {
	parallel := opts.DeleteParallel
	if parallel <= 0 {
		parallel = defaultDeleteParallel
	}
	return &Service{
		meta:     meta,
		driver:   driver,
		cleanup:  opts.Cleanup,
		parallel: parallel,
	}
}

// NewID returns a fresh graph id: "G" followed by 31 hex characters. The id
// doubles as the graph's database name.
func NewID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "G" + hex[1:]
}

// Create stores a new visible graph.
func (s *Service) Create(ctx context.Context, title, description string) (Graph, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Graph{}, apperr.BadInput("title must not be empty")
	}

	g, err := s.meta.CreateGraph(ctx, Graph{
		ID:          NewID(),
		Title:       title,
		Description: strings.TrimSpace(description),
		IsVisible:   true,
	})
	if err != nil {
		return Graph{}, apperr.WrapStore(err, "create graph")
	}
	return g, nil
}

// Update applies patch to graph id.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Graph, error) {
	if patch.Title == nil && patch.Description == nil && patch.IsVisible == nil {
		return Graph{}, apperr.BadInput("nothing to update for graph %s", id)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return Graph{}, apperr.BadInput("title must not be empty")
		}
		patch.Title = &title
	}

	g, err := s.meta.UpdateGraph(ctx, id, patch)
	if err != nil {
		return Graph{}, apperr.WrapStore(err, "update graph %s", id)
	}
	if g == nil {
		return Graph{}, apperr.NotFound("graph %s not found", id)
	}
	return *g, nil
}

// Get returns the metadata of graph id.
func (s *Service) Get(ctx context.Context, id string) (Graph, error) {
	g, err := s.meta.GetGraph(ctx, id)
	if err != nil {
		return Graph{}, apperr.WrapStore(err, "get graph %s", id)
	}
	if g == nil {
		return Graph{}, apperr.NotFound("graph %s not found", id)
	}
	return *g, nil
}

// List returns one page of graphs ordered by creation time, newest first.
func (s *Service) List(ctx context.Context, params ListParams) (common.Page[Graph], error) {
	params.PageRequest = params.PageRequest.Normalize()
	params.Search = strings.TrimSpace(params.Search)

	items, count, err := s.meta.ListGraphs(ctx, params)
	if err != nil {
		return common.Page[Graph]{}, apperr.WrapStore(err, "list graphs")
	}
	return common.NewPage(items, params.PageRequest, count), nil
}

// graphErr classifies a graph database error.
func graphErr(err error, format string, args ...any) error {
	if errors.Is(err, graphdb.ErrInvalidStatement) || errors.Is(err, graphdb.ErrInvalidNamespace) {
		return apperr.WrapBadInput(err, format, args...)
	}
	return apperr.WrapStore(err, format, args...)
}
