package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/graphvis/internal/queue"
	"github.com/OFFIS-RIT/graphvis/internal/storage"
	"github.com/OFFIS-RIT/graphvis/internal/util"
	"github.com/OFFIS-RIT/graphvis/pkg/graph"
	"github.com/OFFIS-RIT/graphvis/pkg/logger"
	"github.com/OFFIS-RIT/graphvis/pkg/logger/console"
	pgstore "github.com/OFFIS-RIT/graphvis/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		JSON:   util.GetEnv("LOG_FORMAT") == "json",
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	// Init graph database
	neo, err := storage.NewNeo4jDriver(ctx)
	if err != nil {
		logger.Fatal("Unable to connect to graph database", "err", err)
	}
	defer neo.Close(context.Background())

	// Failed destructions are retried through the queue, not re-enqueued.
	graphs := graph.NewService(pgstore.NewGraphMetadataStorage(pgConn), neo, graph.Options{
		DeleteParallel: int(util.GetEnvNumeric("GRAPH_DELETE_PARALLEL", 4)),
	})

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Unable to connect to queue", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	// prefetch=1: one message in flight at a time
	if err := ch.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := ch.Consume(
		queue.CleanupQueue,
		queue.CleanupQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.CleanupQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.CleanupQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.CleanupQueue)
				return
			}

			startTime := time.Now()
			logger.Info("Received message", "queue", queue.CleanupQueue)

			if err := queue.ProcessCleanupMessage(ctx, graphs, msg.Body); err != nil {
				logger.Error("Error processing message", "queue", queue.CleanupQueue, "err", err)
				queue.HandleProcessingError(ctx, ch, msg, queue.CleanupQueue, err)
				continue
			}

			if err := msg.Ack(false); err != nil {
				logger.Error("Failed to ack message", "err", err)
			}
			logger.Info("Message processed successfully", "queue", queue.CleanupQueue, "duration", time.Since(startTime))
		}
	}
}
