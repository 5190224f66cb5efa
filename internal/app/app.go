package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowctx"
	"github.com/specialistvlad/burstflow/internal/flowhcl"
	"github.com/specialistvlad/burstflow/internal/flowyaml"
	"gopkg.in/yaml.v3"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	loaders map[string]flow.Loader
	opts    []flowctx.Option
}

// NewApp is the constructor for the main application. Results are written to
// outW and logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...flowctx.Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	yamlLoader := flowyaml.NewLoader()
	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loaders: map[string]flow.Loader{
			".hcl":  flowhcl.NewLoader(),
			".yml":  yamlLoader,
			".yaml": yamlLoader,
		},
		opts: opts,
	}
}

// withLogger attaches the app logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Write encodes v to the output writer in the configured format.
func (a *App) Write(v any) error {
	switch a.config.Output {
	case "json":
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(a.outW)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return enc.Close()
	}
}
