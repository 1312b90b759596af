package routes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"

	"github.com/OFFIS-RIT/graphvis/internal/server/middleware"
	"github.com/OFFIS-RIT/graphvis/pkg/common"
	"github.com/OFFIS-RIT/graphvis/pkg/cypher"
	pgdb "github.com/OFFIS-RIT/graphvis/pkg/db/pgx"
	"github.com/OFFIS-RIT/graphvis/pkg/graph"
	"github.com/OFFIS-RIT/graphvis/pkg/leaselock"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"
)

type testValidator struct {
	v *validator.Validate
}

func (tv testValidator) Validate(i any) error {
	return tv.v.Struct(i)
}

// newTestServer registers the handlers on a fresh echo instance. Every request
// runs as u, or anonymously when u is nil.
func newTestServer(app *middleware.App, u *middleware.AppUser) *echo.Echo {
	v := validator.New()
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}

	e := echo.New()
	e.Validator = testValidator{v: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&middleware.AppContext{Context: c, App: app, User: u})
		}
	})

	e.POST("/api/auth/signup", SignUpHandler)
	e.POST("/api/auth/login", LoginHandler)

	e.GET("/api/graphs", GetGraphsHandler)
	e.GET("/api/graphs/all", GetAllGraphsHandler)
	e.GET("/api/graphs/:id", GetGraphHandler)
	e.POST("/api/graphs", CreateGraphHandler)
	e.POST("/api/graphs/:id", UploadGraphHandler)
	e.PUT("/api/graphs/:id", UpdateGraphHandler)
	e.DELETE("/api/graphs/:id", DeleteGraphHandler)
	e.DELETE("/api/graphs", DeleteGraphsHandler)
	e.GET("/api/graphs/:id/uploads", GetGraphUploadsHandler)

	e.GET("/api/users/current", GetCurrentUserHandler)
	e.PUT("/api/users/password", UpdatePasswordHandler)
	e.PUT("/api/users", UpdateCurrentUserHandler)
	e.PUT("/api/users/block/:id", BlockUserHandler)
	e.DELETE("/api/users", DeleteUsersHandler)
	return e
}

func do(e *echo.Echo, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	return do(e, method, target, bytes.NewBufferString(body), echo.MIMEApplicationJSON)
}

// multipartFile builds a form with one "file" part of the given media type.
func multipartFile(name, mediaType string, data []byte) (*bytes.Buffer, string) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", mediaType)
	part, _ := w.CreatePart(h)
	_, _ = part.Write(data)
	_ = w.Close()
	return buf, w.FormDataContentType()
}

type fakeGraphs struct {
	filter    cypher.SubgraphFilter
	findCalls int
	findErr   error

	listParams graph.ListParams

	ingested  []byte
	ingestN   int
	ingestErr error

	deleted   []string
	deleteErr error

	created graph.Graph
	patch   graph.Patch
	getErr  error
}

func (f *fakeGraphs) Create(_ context.Context, title, description string) (graph.Graph, error) {
	f.created = graph.Graph{ID: "G1", Title: title, Description: description, IsVisible: true}
	return f.created, nil
}

func (f *fakeGraphs) Update(_ context.Context, id string, patch graph.Patch) (graph.Graph, error) {
	f.patch = patch
	return graph.Graph{ID: id}, nil
}

func (f *fakeGraphs) Get(_ context.Context, id string) (graph.Graph, error) {
	if f.getErr != nil {
		return graph.Graph{}, f.getErr
	}
	return graph.Graph{ID: id}, nil
}

func (f *fakeGraphs) List(_ context.Context, params graph.ListParams) (common.Page[graph.Graph], error) {
	f.listParams = params
	return common.NewPage([]graph.Graph{{ID: "G1"}}, params.PageRequest, 1), nil
}

func (f *fakeGraphs) Find(_ context.Context, id string, filter cypher.SubgraphFilter) (*graph.Subgraph, error) {
	f.findCalls++
	f.filter = filter
	if f.findErr != nil {
		return nil, f.findErr
	}
	return &graph.Subgraph{Graph: graph.Graph{ID: id}}, nil
}

func (f *fakeGraphs) Ingest(_ context.Context, _ string, data []byte) (int, error) {
	f.ingested = data
	return f.ingestN, f.ingestErr
}

func (f *fakeGraphs) Delete(_ context.Context, ids []string) error {
	f.deleted = ids
	return f.deleteErr
}

type fakeLocker struct {
	keys []string
	err  error
}

func (l *fakeLocker) WithLease(ctx context.Context, key string, _ leaselock.Options, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: expected %d targets, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *pgtype.UUID:
			*p = r.values[i].(pgtype.UUID)
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		case *int64:
			*p = r.values[i].(int64)
		case *pgtype.Timestamptz:
			*p = r.values[i].(pgtype.Timestamptz)
		default:
			return fmt.Errorf("scan: unsupported target %T", d)
		}
	}
	return nil
}

func userRow(u pgdb.User) fakeRow {
	return fakeRow{values: []any{u.ID, u.Firstname, u.Lastname, u.Email, u.Password, u.Role, u.Blocked, u.CreatedAt, u.UpdatedAt}}
}

// fakeDB answers every QueryRow with row and every Exec with affected rows.
type fakeDB struct {
	row      fakeRow
	args     []any
	affected int64
	tx       *fakeTx
	// ctxErr is the context error seen by the last QueryRow.
	ctxErr error
}

func (d *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	d.args = args
	return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", d.affected)), nil
}

func (d *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeDB) QueryRow(ctx context.Context, _ string, args ...any) pgx.Row {
	d.args = args
	d.ctxErr = ctx.Err()
	return d.row
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.tx = &fakeTx{db: d}
	return d.tx, nil
}

type fakeTx struct {
	pgx.Tx
	db         *fakeDB
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

var _ middleware.Database = (*fakeDB)(nil)
