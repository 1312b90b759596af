package routes

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/OFFIS-RIT/graphvis/internal/server/middleware"
	"github.com/OFFIS-RIT/graphvis/internal/storage"
	"github.com/OFFIS-RIT/graphvis/internal/util"
	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
	"github.com/OFFIS-RIT/graphvis/pkg/cypher"
	pgdb "github.com/OFFIS-RIT/graphvis/pkg/db/pgx"
	"github.com/OFFIS-RIT/graphvis/pkg/entry"
	"github.com/OFFIS-RIT/graphvis/pkg/graph"
	"github.com/OFFIS-RIT/graphvis/pkg/leaselock"
	"github.com/OFFIS-RIT/graphvis/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	csvMediaType   = "text/csv"
	archiveTimeout = time.Minute
)

func CreateGraphHandler(c echo.Context) error {
	type createGraphBody struct {
		Title       string `json:"title" validate:"required"`
		Description string `json:"description"`
	}

	data := new(createGraphBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	g, err := app.Graphs.Create(c.Request().Context(), data.Title, data.Description)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, g)
}

func UpdateGraphHandler(c echo.Context) error {
	type updateGraphBody struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		IsVisible   *bool   `json:"isVisible"`
	}

	data := new(updateGraphBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	g, err := app.Graphs.Update(c.Request().Context(), c.Param("id"), graph.Patch{
		Title:       data.Title,
		Description: data.Description,
		IsVisible:   data.IsVisible,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, g)
}

// GetGraphsHandler lists visible graphs.
func GetGraphsHandler(c echo.Context) error {
	return listGraphs(c, false)
}

// GetAllGraphsHandler lists every graph, hidden ones included.
func GetAllGraphsHandler(c echo.Context) error {
	return listGraphs(c, true)
}

func listGraphs(c echo.Context, includeHidden bool) error {
	app := c.(*middleware.AppContext).App
	page, err := app.Graphs.List(c.Request().Context(), graph.ListParams{
		PageRequest:   pageRequest(c),
		Search:        strings.TrimSpace(c.QueryParam("search")),
		IncludeHidden: includeHidden,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetGraphHandler returns a graph with the nodes and relationships selected
// by the labels, relations, node, pmcid and sentenceid query parameters.
func GetGraphHandler(c echo.Context) error {
	filter, err := subgraphFilter(c)
	if err != nil {
		return errorResponse(c, err)
	}

	app := c.(*middleware.AppContext).App
	sub, err := app.Graphs.Find(c.Request().Context(), c.Param("id"), filter)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

func subgraphFilter(c echo.Context) (cypher.SubgraphFilter, error) {
	q := c.QueryParams()

	labels, err := entry.ParseLabels(q["labels"])
	if err != nil {
		return cypher.SubgraphFilter{}, err
	}
	relations, err := entry.ParseRelations(q["relations"])
	if err != nil {
		return cypher.SubgraphFilter{}, err
	}

	filter := cypher.SubgraphFilter{
		Labels:    labels,
		Relations: relations,
		Node:      strings.TrimSpace(q.Get("node")),
		SourceID:  strings.TrimSpace(q.Get("pmcid")),
	}

	if raw := strings.TrimSpace(q.Get("sentenceid")); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			return cypher.SubgraphFilter{}, apperr.BadInput("sentenceid must be a non-negative integer, got %q", raw)
		}
		if filter.SourceID == "" {
			return cypher.SubgraphFilter{}, apperr.BadInput("sentenceid requires pmcid")
		}
		filter.SentenceIndex = &idx
	}

	return filter, nil
}

// UploadGraphHandler replaces the content of a graph with the entries of an
// uploaded CSV file. Only one upload per graph runs at a time.
func UploadGraphHandler(c echo.Context) error {
	type uploadResponse struct {
		Message string `json:"message"`
		Entries int    `json:"entries"`
	}

	cc := c.(*middleware.AppContext)
	app := cc.App
	id := c.Param("id")

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Missing file"})
	}
	if app.UploadLimit > 0 && fh.Size > app.UploadLimit {
		return c.JSON(http.StatusRequestEntityTooLarge, messageResponse{Message: "File too large"})
	}
	mediaType, _, err := mime.ParseMediaType(fh.Header.Get(echo.HeaderContentType))
	if err != nil || mediaType != csvMediaType {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "File must be of type " + csvMediaType})
	}

	f, err := fh.Open()
	if err != nil {
		return errorResponse(c, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return errorResponse(c, err)
	}

	ctx := c.Request().Context()
	var entries int
	err = app.Locks.WithLease(ctx, leaselock.Key("graph", id), leaselock.Options{}, func(ctx context.Context) error {
		var err error
		entries, err = app.Graphs.Ingest(ctx, id, data)
		return err
	})
	if errors.Is(err, leaselock.ErrBusy) {
		return c.JSON(http.StatusConflict, messageResponse{Message: "Graph " + id + " is already being imported"})
	}
	if err != nil {
		return errorResponse(c, err)
	}

	archiveUpload(ctx, app, id, fh.Filename, data, entries)

	return c.JSON(http.StatusOK, uploadResponse{
		Message: "Graph imported successfully",
		Entries: entries,
	})
}

// archiveUpload stores an ingested file in S3 and records it. Failures are
// logged only; the graph content is already committed, so the work does not
// stop when the client goes away.
func archiveUpload(ctx context.Context, app *middleware.App, graphID, fileName string, data []byte, entries int) {
	if app.S3 == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	uploadID, err := util.NewObjectID()
	if err != nil {
		logger.Error("Failed to generate upload id", "graph", graphID, "err", err)
		return
	}
	key := storage.UploadKey(graphID, uploadID)
	if err := storage.PutFile(ctx, app.S3, key, csvMediaType, data); err != nil {
		logger.Error("Failed to archive upload", "graph", graphID, "key", key, "err", err)
		return
	}

	_, err = pgdb.New(app.DB).CreateGraphUpload(ctx, pgdb.CreateGraphUploadParams{
		GraphID:  graphID,
		FileKey:  key,
		FileName: util.SanitizePostgresText(fileName),
		Entries:  int32(entries),
	})
	if err != nil {
		logger.Error("Failed to record upload", "graph", graphID, "key", key, "err", err)
	}
}

func GetGraphUploadsHandler(c echo.Context) error {
	type upload struct {
		ID        int64     `json:"id"`
		FileName  string    `json:"fileName"`
		Entries   int32     `json:"entries"`
		URL       string    `json:"url,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	id := c.Param("id")

	if _, err := app.Graphs.Get(ctx, id); err != nil {
		return errorResponse(c, err)
	}
	rows, err := pgdb.New(app.DB).ListGraphUploads(ctx, id)
	if err != nil {
		return errorResponse(c, err)
	}

	uploads := make([]upload, 0, len(rows))
	for _, r := range rows {
		u := upload{
			ID:        r.ID,
			FileName:  r.FileName,
			Entries:   r.Entries,
			CreatedAt: r.CreatedAt.Time,
		}
		if app.S3 != nil {
			link, err := storage.GenerateDownloadLink(ctx, app.S3, r.FileKey)
			if err != nil {
				logger.Warn("Failed to sign upload link", "graph", id, "key", r.FileKey, "err", err)
			}
			u.URL = link
		}
		uploads = append(uploads, u)
	}

	return c.JSON(http.StatusOK, uploads)
}

func DeleteGraphHandler(c echo.Context) error {
	return deleteGraphs(c, []string{c.Param("id")})
}

func DeleteGraphsHandler(c echo.Context) error {
	type deleteGraphsBody struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}

	data := new(deleteGraphsBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	return deleteGraphs(c, data.IDs)
}

func deleteGraphs(c echo.Context, ids []string) error {
	type cleanupResponse struct {
		Message string   `json:"message"`
		Failed  []string `json:"failed"`
		Queued  bool     `json:"queued"`
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	err := app.Graphs.Delete(ctx, ids)
	var cerr *graph.CleanupError
	if err != nil && !errors.As(err, &cerr) {
		return errorResponse(c, err)
	}

	if app.S3 != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if err := storage.DeleteFolder(ctx, app.S3, storage.GraphPrefix(id)); err != nil {
				logger.Warn("Failed to delete graph files", "graph", id, "err", err)
			}
		}
	}

	if cerr != nil {
		logger.Error("Graph namespace cleanup incomplete", "err", cerr)
		return c.JSON(http.StatusInternalServerError, cleanupResponse{
			Message: "Graphs deleted, but their content could not be removed",
			Failed:  cerr.IDs(),
			Queued:  cerr.Queued,
		})
	}

	return c.NoContent(http.StatusNoContent)
}
