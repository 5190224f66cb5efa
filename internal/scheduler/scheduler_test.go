package scheduler

import (
	"context"
	"testing"

	"github.com/specialistvlad/burstflow/internal/expr"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowctx"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/resultstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diamond: prepare -> {left, right} -> report. report runs regardless of
// failures.
func diamond(t *testing.T) *flowctx.PipelineContext {
	t.Helper()
	batch := func(id string, needs ...string) *flow.Batch {
		return &flow.Batch{
			ID:    id,
			Named: true,
			Attrs: flow.Attrs{Image: expr.MustParseTemplate("ubuntu"), Cmd: expr.MustParseTemplate("true")},
			Needs: needs,
		}
	}
	report := batch("report", "left", "right")
	report.Enable = expr.MustParseTemplate("${{ always() }}")

	f := &flow.Flow{
		ID:   "diamond",
		Kind: flow.KindBatch,
		Batches: []*flow.Batch{
			batch("prepare"),
			batch("left", "prepare"),
			batch("right", "prepare"),
			report,
		},
	}
	p, err := flowctx.NewPipelineContext(context.Background(), f)
	require.NoError(t, err)
	return p
}

func TestReady(t *testing.T) {
	ctx := context.Background()
	p := diamond(t)
	store := resultstore.New()

	ready, err := Ready(ctx, p, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"prepare"}, ready)

	require.NoError(t, store.MarkStarted(ctx, "prepare"))
	ready, err = Ready(ctx, p, store)
	require.NoError(t, err)
	assert.Empty(t, ready)

	require.NoError(t, store.Record(ctx, "prepare", flowctx.DepCtx{Result: flowctx.Success}))
	ready, err = Ready(ctx, p, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right"}, ready)

	require.NoError(t, store.Record(ctx, "left", flowctx.DepCtx{Result: flowctx.Success}))
	ready, err = Ready(ctx, p, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"right"}, ready, "report must wait for right")
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	p := diamond(t)
	store := resultstore.New()

	t.Run("unrecorded needs", func(t *testing.T) {
		_, _, err := Gate(ctx, p, store, "left")
		assert.ErrorIs(t, err, flowerr.ErrNotAvailable)
	})

	require.NoError(t, store.Record(ctx, "prepare", flowctx.DepCtx{Result: flowctx.Failure}))

	t.Run("default policy blocks after failure", func(t *testing.T) {
		_, run, err := Gate(ctx, p, store, "left")
		require.NoError(t, err)
		assert.False(t, run)
	})

	require.NoError(t, store.Record(ctx, "left", flowctx.DepCtx{Result: flowctx.Cancelled}))
	require.NoError(t, store.Record(ctx, "right", flowctx.DepCtx{Result: flowctx.Cancelled}))

	t.Run("explicit policy", func(t *testing.T) {
		bound, run, err := Gate(ctx, p, store, "report")
		require.NoError(t, err)
		assert.True(t, run)
		b, err := bound.Batch()
		require.NoError(t, err)
		assert.Equal(t, []string{"left", "right"}, b.Needs)
	})
}

// TestDrive runs the whole pipeline the way an executor would and checks
// that no batch starts before its needs are recorded.
func TestDrive(t *testing.T) {
	ctx := context.Background()
	p := diamond(t)
	store := resultstore.New()

	var started []string
	for !Done(ctx, p, store) {
		ready, err := Ready(ctx, p, store)
		require.NoError(t, err)
		require.NotEmpty(t, ready, "no progress")

		for _, id := range ready {
			needs, err := p.Needs(id)
			require.NoError(t, err)
			for _, n := range needs {
				_, ok := store.Result(ctx, n)
				require.True(t, ok, "%s started before %s finished", id, n)
			}

			_, run, err := Gate(ctx, p, store, id)
			require.NoError(t, err)
			if !run {
				require.NoError(t, store.Record(ctx, id, flowctx.DepCtx{Result: flowctx.Cancelled}))
				continue
			}
			require.NoError(t, store.MarkStarted(ctx, id))
			started = append(started, id)

			result := flowctx.Success
			if id == "left" {
				result = flowctx.Failure
			}
			require.NoError(t, store.Record(ctx, id, flowctx.DepCtx{Result: result}))
		}
	}

	assert.Equal(t, []string{"prepare", "left", "right", "report"}, started)
	dep, ok := store.Result(ctx, "left")
	require.True(t, ok)
	assert.Equal(t, flowctx.Failure, dep.Result)
}
