package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowctx"
)

// Report summarizes one validated flow file.
type Report struct {
	Path  string    `json:"path" yaml:"path"`
	ID    string    `json:"id" yaml:"id"`
	Kind  flow.Kind `json:"kind" yaml:"kind"`
	Nodes int       `json:"nodes" yaml:"nodes"`
	Error string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Validate loads every flow file under the configured path and builds its
// root context. It returns one report per file and the joined errors of the
// files that failed.
func (a *App) Validate(ctx context.Context) ([]Report, error) {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	files, err := a.flowFiles()
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(files))
	var errs []error
	for _, path := range files {
		r := Report{Path: path}
		if err := a.validateFile(ctx, path, &r); err != nil {
			r.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			logger.Warn("Flow is invalid.", "path", path, "error", err)
		} else {
			logger.Info("✅ Flow is valid.", "path", path, "flow", r.ID, "nodes", r.Nodes)
		}
		reports = append(reports, r)
	}
	return reports, errors.Join(errs...)
}

func (a *App) validateFile(ctx context.Context, path string, r *Report) error {
	f, err := a.Load(ctx, path)
	if err != nil {
		return err
	}
	r.ID, r.Kind = f.ID, f.Kind

	switch f.Kind {
	case flow.KindLive:
		c, err := flowctx.NewJobContext(ctx, f, a.opts...)
		if err != nil {
			return err
		}
		ids := c.JobIDs()
		r.Nodes = len(ids)
		// Jobs do not depend on each other, so each one can be resolved now.
		for _, id := range ids {
			bound, err := c.WithJob(ctx, id)
			if err != nil {
				return err
			}
			if _, err := bound.Job(); err != nil {
				return err
			}
		}
	default:
		c, err := flowctx.NewPipelineContext(ctx, f, a.opts...)
		if err != nil {
			return err
		}
		r.Nodes = len(c.RealIDs())
	}
	return nil
}
