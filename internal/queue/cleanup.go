package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/graphvis/internal/util"
	"github.com/OFFIS-RIT/graphvis/pkg/logger"
)

// CleanupMsg asks the worker to destroy the namespaces of deleted graphs.
type CleanupMsg struct {
	GraphIDs []string `json:"graph_ids"`
}

// Cleaner destroys graph namespaces.
type Cleaner interface {
	Cleanup(ctx context.Context, ids []string) error
}

// CleanupPublisher hands failed namespace destructions to the worker.
type CleanupPublisher struct {
	ch publisher
}

func NewCleanupPublisher(ch publisher) *CleanupPublisher {
	return &CleanupPublisher{ch: ch}
}

func (p *CleanupPublisher) EnqueueCleanup(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body, err := json.Marshal(CleanupMsg{GraphIDs: ids})
	if err != nil {
		return err
	}

	return util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return PublishFIFO(ctx, p.ch, CleanupQueue, body)
	})
}

// ProcessCleanupMessage destroys the namespaces listed in msg. Namespaces
// that still cannot be destroyed make the message fail so it is retried.
func ProcessCleanupMessage(ctx context.Context, cleaner Cleaner, msg []byte) error {
	var data CleanupMsg
	if err := json.Unmarshal(msg, &data); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(data.GraphIDs) == 0 {
		return fmt.Errorf("%w: no graph ids", ErrMalformed)
	}

	if err := cleaner.Cleanup(ctx, data.GraphIDs); err != nil {
		return err
	}
	logger.Info("[Queue] Destroyed graph namespaces", "ids", data.GraphIDs)
	return nil
}

// ErrMalformed marks messages that can never succeed.
var ErrMalformed = errors.New("malformed message")
