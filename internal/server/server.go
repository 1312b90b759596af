package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/graphvis/internal/queue"
	mid "github.com/OFFIS-RIT/graphvis/internal/server/middleware"
	"github.com/OFFIS-RIT/graphvis/internal/server/routes"
	"github.com/OFFIS-RIT/graphvis/internal/storage"
	"github.com/OFFIS-RIT/graphvis/internal/util"
	"github.com/OFFIS-RIT/graphvis/pkg/db"
	"github.com/OFFIS-RIT/graphvis/pkg/graph"
	"github.com/OFFIS-RIT/graphvis/pkg/leaselock"
	"github.com/OFFIS-RIT/graphvis/pkg/logger"
	pgstore "github.com/OFFIS-RIT/graphvis/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	v := validator.New()
	if err := routes.RegisterValidations(v); err != nil {
		logger.Fatal("Failed to register validations", "err", err)
	}
	e.Validator = &CustomValidator{validator: v}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	if err := db.Migrate(databaseURL, util.GetEnvString("MIGRATIONS_PATH", "pkg/db/migrations")); err != nil {
		logger.Fatal("Failed to migrate database", "err", err)
	}

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	neo, err := storage.NewNeo4jDriver(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to graph database", "err", err)
	}
	defer neo.Close(context.Background())

	que, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	app := &mid.App{
		DB:           conn,
		Locks:        leaselock.New(conn),
		JWTSecret:    []byte(util.GetEnv("JWT_SECRET")),
		JWTExpire:    util.GetEnvDuration("JWT_EXPIRE", 24*time.Hour),
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
		UploadLimit:  int64(util.GetEnvNumeric("MAX_UPLOAD_SIZE", 50<<20)),
	}
	if len(app.JWTSecret) == 0 {
		logger.Fatal("JWT_SECRET is not set")
	}

	app.Graphs = graph.NewService(pgstore.NewGraphMetadataStorage(conn), neo, graph.Options{
		DeleteParallel: int(util.GetEnvNumeric("GRAPH_DELETE_PARALLEL", 4)),
		Cleanup:        queue.NewCleanupPublisher(ch),
	})

	if util.GetEnv("AWS_BUCKET") != "" {
		s3, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		app.S3 = s3
	} else {
		logger.Warn("AWS_BUCKET is not set, uploads are not archived")
	}

	if jwksURL := util.GetEnv("AUTH_JWKS_URL"); jwksURL != "" {
		k, err := keyfunc.NewDefault([]string{jwksURL})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Key = &k
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(util.GetEnvString("MAX_BODY_SIZE", "64M")))

	RegisterRoutes(e, rate.Limit(util.GetEnvNumeric("AUTH_RATE_LIMIT", 5)))

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
