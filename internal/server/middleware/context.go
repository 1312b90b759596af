package middleware

import (
	"context"
	"time"

	"github.com/OFFIS-RIT/graphvis/pkg/common"
	"github.com/OFFIS-RIT/graphvis/pkg/cypher"
	pgdb "github.com/OFFIS-RIT/graphvis/pkg/db/pgx"
	"github.com/OFFIS-RIT/graphvis/pkg/graph"
	"github.com/OFFIS-RIT/graphvis/pkg/leaselock"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// Database is the relational connection handlers run queries on.
type Database interface {
	pgdb.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Locker serializes work on a resource key.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// GraphService is the graph API the handlers call.
type GraphService interface {
	Create(ctx context.Context, title, description string) (graph.Graph, error)
	Update(ctx context.Context, id string, patch graph.Patch) (graph.Graph, error)
	Get(ctx context.Context, id string) (graph.Graph, error)
	List(ctx context.Context, params graph.ListParams) (common.Page[graph.Graph], error)
	Find(ctx context.Context, id string, filter cypher.SubgraphFilter) (*graph.Subgraph, error)
	Ingest(ctx context.Context, id string, data []byte) (int, error)
	Delete(ctx context.Context, ids []string) error
}

type AppUser struct {
	UserID      string
	Email       string
	Role        string
	Permissions []string
}

type App struct {
	DB     Database
	Graphs GraphService
	Locks  Locker
	// S3 is nil when upload archiving is disabled.
	S3 *s3.Client
	// Key verifies tokens from an external issuer. When nil, tokens are
	// verified with JWTSecret.
	Key          *keyfunc.Keyfunc
	JWTSecret    []byte
	JWTExpire    time.Duration
	MasterAPIKey string
	UploadLimit  int64
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
