package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
	"github.com/OFFIS-RIT/graphvis/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// cleanupTimeout bounds the work done after the relational delete committed.
const cleanupTimeout = 2 * time.Minute

// CleanupError reports graphs whose metadata was deleted but whose namespace
// could not be destroyed.
type CleanupError struct {
	// Failed maps graph ids to the destruction error.
	Failed map[string]error
	// Queued is true when the ids were handed to the cleanup queue.
	Queued bool
}

// IDs returns the failed graph ids in no particular order.
func (e *CleanupError) IDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	return ids
}

func (e *CleanupError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for id, err := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s: %v", id, err))
	}
	msg := "failed to destroy graph namespaces (" + strings.Join(parts, "; ") + ")"
	if e.Queued {
		msg += ", queued for cleanup"
	}
	return msg
}

// Delete removes graphs ids from both stores. The relational rows go first
// in one transaction: if any id does not exist nothing is deleted. The
// namespaces are destroyed afterwards; failures are returned as a
// *CleanupError and handed to the cleanup queue. Once the rows are deleted
// the remaining steps no longer follow ctx's cancellation.
func (s *Service) Delete(ctx context.Context, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return apperr.BadInput("no graph ids given")
	}

	err := s.meta.DeleteGraphs(ctx, ids, func(affected int) error {
		if affected == len(ids) {
			return nil
		}
		if len(ids) == 1 {
			return apperr.NotFound("graph %s not found", ids[0])
		}
		return apperr.Conflict("only %d of %d graphs exist, nothing deleted", affected, len(ids))
	})
	if err != nil {
		return apperr.WrapStore(err, "delete graphs")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	cerr := s.destroy(ctx, ids)
	if cerr == nil {
		return nil
	}

	if s.cleanup != nil {
		if err := s.cleanup.EnqueueCleanup(ctx, cerr.IDs()); err != nil {
			logger.Error("Failed to enqueue namespace cleanup", "ids", cerr.IDs(), "err", err)
		} else {
			cerr.Queued = true
		}
	}
	return apperr.WrapStore(cerr, "delete graphs")
}

// Cleanup destroys the namespaces of ids. It is used by the cleanup worker
// to retry failed destructions.
func (s *Service) Cleanup(ctx context.Context, ids []string) error {
	if cerr := s.destroy(ctx, dedupe(ids)); cerr != nil {
		return cerr
	}
	return nil
}

func (s *Service) destroy(ctx context.Context, ids []string) *CleanupError {
	var (
		mu     sync.Mutex
		failed = map[string]error{}
		g      errgroup.Group
	)
	g.SetLimit(s.parallel)

	for _, id := range ids {
		g.Go(func() error {
			if err := s.driver.DestroyNamespace(ctx, id); err != nil {
				logger.Warn("Failed to destroy graph namespace", "graph", id, "err", err)
				mu.Lock()
				failed[id] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return nil
	}
	return &CleanupError{Failed: failed}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
