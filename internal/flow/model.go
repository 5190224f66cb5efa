package flow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/burstflow/internal/matrix"
)

// Kind selects between interactive and pipeline flows.
type Kind string

const (
	KindLive  Kind = "live"
	KindBatch Kind = "batch"
)

// Loader is the interface for a format-specific flow loader.
type Loader interface {
	// Load reads the configuration file at path. The workspace is the root
	// that relative local paths (volume locals, image contexts) resolve
	// against.
	Load(ctx context.Context, workspace, path string) (*Flow, error)
}

// Flow is a parsed workflow definition.
type Flow struct {
	ID        string
	Title     string
	Workspace string
	Kind      Kind

	Defaults *Defaults
	Volumes  map[string]*Volume
	Images   map[string]*Image

	// Jobs is populated for live flows.
	Jobs map[string]*Job
	// Batches is populated for batch flows, in declared order.
	Batches []*Batch
}

// Defaults are applied to every node unless overridden.
type Defaults struct {
	Tags     []hcl.Expression
	Env      map[string]hcl.Expression
	Workdir  hcl.Expression
	LifeSpan hcl.Expression
	Preset   hcl.Expression
}

type Volume struct {
	ID       string
	Remote   hcl.Expression
	Mount    hcl.Expression
	ReadOnly hcl.Expression
	Local    hcl.Expression
}

type Image struct {
	ID         string
	Ref        hcl.Expression
	Context    hcl.Expression
	Dockerfile hcl.Expression
	BuildArgs  []hcl.Expression
}

// CmdMode tells how the evaluated cmd is turned into a command line.
type CmdMode int

const (
	// CmdPlain uses the evaluated cmd verbatim.
	CmdPlain CmdMode = iota
	// CmdBash runs the evaluated cmd as a bash script.
	CmdBash
	// CmdPython runs the evaluated cmd as a python3 script.
	CmdPython
)

// Attrs holds the attributes shared by jobs and batches.
type Attrs struct {
	Title      hcl.Expression
	Name       hcl.Expression
	Image      hcl.Expression
	Preset     hcl.Expression
	Entrypoint hcl.Expression
	Cmd        hcl.Expression
	CmdMode    CmdMode
	Workdir    hcl.Expression
	LifeSpan   hcl.Expression
	HTTPPort   hcl.Expression
	HTTPAuth   hcl.Expression

	Env     map[string]hcl.Expression
	Volumes []hcl.Expression
	Tags    []hcl.Expression

	PortForward []hcl.Expression
	Detach      hcl.Expression
	Browse      hcl.Expression
}

// Job is an interactive job definition.
type Job struct {
	ID string
	Attrs
}

// Batch is a pipeline node definition.
type Batch struct {
	// ID is the base id. Loaders fill it with the declared id, or with
	// "batch-<n>" (1-based position) when the batch is unnamed.
	ID string
	// Named is true when ID was declared by the user.
	Named bool
	Attrs

	// Needs lists real ids or base ids of prerequisite batches.
	Needs []string
	// Enable is the acceptance policy. Nil means success().
	Enable hcl.Expression
	Matrix *matrix.Spec
}

// AutoBatchID returns the id given to the unnamed batch at position index
// (0-based).
func AutoBatchID(index int) string {
	return fmt.Sprintf("batch-%d", index+1)
}

// ConfigDir is the directory of a project that holds its flow files.
const ConfigDir = ".neuro"

// InConfigDir reports whether path is a file directly inside a ConfigDir.
func InConfigDir(path string) bool {
	return filepath.Base(filepath.Dir(path)) == ConfigDir
}

// DefaultWorkspace returns the workspace of a flow file: the project
// directory when the file sits in its ConfigDir, the file's directory
// otherwise.
func DefaultWorkspace(path string) string {
	dir := filepath.Dir(path)
	if InConfigDir(path) {
		return filepath.Dir(dir)
	}
	return dir
}

// DefaultID returns the flow id used when a file declares none. A live flow
// in a project's ConfigDir is named after the workspace; any other flow
// after the file name without directory and extension.
func DefaultID(kind Kind, workspace, path string) string {
	if kind == KindLive && InConfigDir(path) && workspace != "" {
		return filepath.Base(workspace)
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Batch returns the batch with the given base id.
func (f *Flow) Batch(id string) (*Batch, bool) {
	for _, b := range f.Batches {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Validate checks the structural rules every loader must uphold.
func (f *Flow) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("flow id cannot be empty")
	}
	switch f.Kind {
	case KindLive:
		if len(f.Batches) > 0 {
			return fmt.Errorf("flow %q: live flows cannot declare batches", f.ID)
		}
	case KindBatch:
		if len(f.Jobs) > 0 {
			return fmt.Errorf("flow %q: batch flows cannot declare jobs", f.ID)
		}
		seen := make(map[string]struct{}, len(f.Batches))
		for _, b := range f.Batches {
			if b.ID == "" {
				return fmt.Errorf("flow %q: batch without id", f.ID)
			}
			if _, dup := seen[b.ID]; dup {
				return fmt.Errorf("flow %q: duplicate batch id %q", f.ID, b.ID)
			}
			seen[b.ID] = struct{}{}
		}
	default:
		return fmt.Errorf("flow %q: unknown kind %q", f.ID, f.Kind)
	}
	for id, v := range f.Volumes {
		if v.ID != id {
			return fmt.Errorf("flow %q: volume key %q does not match id %q", f.ID, id, v.ID)
		}
	}
	for id, img := range f.Images {
		if img.ID != id {
			return fmt.Errorf("flow %q: image key %q does not match id %q", f.ID, id, img.ID)
		}
	}
	return nil
}
