package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/fsutil"
)

// Load reads the flow file at path with the loader matching its extension.
func (a *App) Load(ctx context.Context, path string) (*flow.Flow, error) {
	ctx = a.withLogger(ctx)
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := a.loaders[ext]
	if !ok {
		return nil, flowerr.Validation("unsupported flow file extension", path)
	}
	ctxlog.FromContext(ctx).Debug("Loading flow.", "path", path, "format", ext)
	return loader.Load(ctx, a.config.Workspace, path)
}

// flowFiles lists the flow files under the configured path. A project
// directory is searched through its flow.ConfigDir when it has one.
func (a *App) flowFiles() ([]string, error) {
	root := a.config.FlowPath
	if dir := filepath.Join(root, flow.ConfigDir); isDir(dir) {
		root = dir
	}
	files, err := fsutil.FindFilesByExtension(root, a.extensions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}
	if len(files) == 0 {
		return nil, flowerr.Validation("no flow files found", a.config.FlowPath)
	}
	return files, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (a *App) extensions() []string {
	exts := make([]string, 0, len(a.loaders))
	for ext := range a.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// loadSingle loads the configured path, which must name one flow file.
func (a *App) loadSingle(ctx context.Context) (*flow.Flow, error) {
	files, err := a.flowFiles()
	if err != nil {
		return nil, err
	}
	if len(files) != 1 || files[0] != a.config.FlowPath {
		return nil, flowerr.Validation("expected a single flow file", a.config.FlowPath)
	}
	return a.Load(ctx, files[0])
}

// requireKind fails when f is not of the wanted kind.
func requireKind(f *flow.Flow, want flow.Kind) error {
	if f.Kind != want {
		return flowerr.WrapValidation(
			errors.New("operation needs a "+string(want)+" flow"), "wrong flow kind", f.ID)
	}
	return nil
}
