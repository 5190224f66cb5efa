package resultstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flowctx"
)

// Store is an in-memory record of started and finished batches.
type Store struct {
	started sync.Map // Key: real id, Value: struct{}
	results sync.Map // Key: real id, Value: flowctx.DepCtx
}

// New creates a new, empty store.
func New() *Store {
	return &Store{}
}

// MarkStarted records that realID was handed to the executor.
func (s *Store) MarkStarted(ctx context.Context, realID string) error {
	if _, loaded := s.started.LoadOrStore(realID, struct{}{}); loaded {
		return fmt.Errorf("batch %q already started", realID)
	}
	ctxlog.FromContext(ctx).Debug("Batch started.", "real_id", realID)
	return nil
}

// Started reports whether realID was started.
func (s *Store) Started(ctx context.Context, realID string) bool {
	_, ok := s.started.Load(realID)
	return ok
}

// Record stores the result of realID. A batch finishes once.
func (s *Store) Record(ctx context.Context, realID string, dep flowctx.DepCtx) error {
	outputs := make(map[string]string, len(dep.Outputs))
	for k, v := range dep.Outputs {
		outputs[k] = v
	}
	dep.Outputs = outputs
	if _, loaded := s.results.LoadOrStore(realID, dep); loaded {
		return fmt.Errorf("result of batch %q already recorded", realID)
	}
	ctxlog.FromContext(ctx).Debug("Batch finished.", "real_id", realID, "result", dep.Result)
	return nil
}

// Result returns the recorded result of realID.
func (s *Store) Result(ctx context.Context, realID string) (flowctx.DepCtx, bool) {
	v, ok := s.results.Load(realID)
	if !ok {
		return flowctx.DepCtx{}, false
	}
	return v.(flowctx.DepCtx), true
}

// Needs collects the results of realIDs. The boolean is false when any of
// them has no result yet.
func (s *Store) Needs(ctx context.Context, realIDs []string) (map[string]flowctx.DepCtx, bool) {
	out := make(map[string]flowctx.DepCtx, len(realIDs))
	for _, id := range realIDs {
		dep, ok := s.Result(ctx, id)
		if !ok {
			return nil, false
		}
		out[id] = dep
	}
	return out, true
}

// Finished returns the sorted real ids that have a result.
func (s *Store) Finished(ctx context.Context) []string {
	var ids []string
	s.results.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}
