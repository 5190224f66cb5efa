// Package refs builds the resolved views of volumes and images, with the
// fields derived from the declared ones.
package refs

import (
	"path"
	"path/filepath"
)

// Volume is a resolved volume declaration.
type Volume struct {
	ID       string  `json:"id" yaml:"id" cty:"id"`
	Remote   string  `json:"remote" yaml:"remote" cty:"remote"`
	Mount    string  `json:"mount" yaml:"mount" cty:"mount"`
	ReadOnly bool    `json:"read_only" yaml:"read_only" cty:"read_only"`
	Local    *string `json:"local,omitempty" yaml:"local,omitempty" cty:"local"`

	FullLocalPath *string `json:"full_local_path,omitempty" yaml:"full_local_path,omitempty" cty:"full_local_path"`
	RefRO         string  `json:"ref_ro" yaml:"ref_ro" cty:"ref_ro"`
	RefRW         string  `json:"ref_rw" yaml:"ref_rw" cty:"ref_rw"`
	Ref           string  `json:"ref" yaml:"ref" cty:"ref"`
}

// NewVolume derives the refs and the full local path of a volume. Relative
// local paths are joined to workspace.
func NewVolume(workspace, id, remote, mount string, readOnly bool, local *string) Volume {
	v := Volume{
		ID:       id,
		Remote:   remote,
		Mount:    mount,
		ReadOnly: readOnly,
		Local:    local,
		RefRO:    remote + ":" + mount + ":ro",
		RefRW:    remote + ":" + mount + ":rw",
	}
	if local != nil {
		full := inWorkspace(workspace, *local)
		v.FullLocalPath = &full
	}
	v.Ref = v.RefRW
	if readOnly {
		v.Ref = v.RefRO
	}
	return v
}

// Image is a resolved image declaration.
type Image struct {
	ID                 string   `json:"id" yaml:"id" cty:"id"`
	Ref                string   `json:"ref" yaml:"ref" cty:"ref"`
	Context            *string  `json:"context,omitempty" yaml:"context,omitempty" cty:"context"`
	FullContextPath    *string  `json:"full_context_path,omitempty" yaml:"full_context_path,omitempty" cty:"full_context_path"`
	Dockerfile         *string  `json:"dockerfile,omitempty" yaml:"dockerfile,omitempty" cty:"dockerfile"`
	FullDockerfilePath *string  `json:"full_dockerfile_path,omitempty" yaml:"full_dockerfile_path,omitempty" cty:"full_dockerfile_path"`
	BuildArgs          []string `json:"build_args" yaml:"build_args" cty:"build_args"`
}

// NewImage derives the full paths of an image. When dockerfile is nil and a
// context is set, it defaults to "<context>/Dockerfile".
func NewImage(workspace, id, ref string, context, dockerfile *string, buildArgs []string) Image {
	img := Image{
		ID:        id,
		Ref:       ref,
		Context:   context,
		BuildArgs: append([]string{}, buildArgs...),
	}
	if context != nil {
		full := inWorkspace(workspace, *context)
		img.FullContextPath = &full
		if dockerfile == nil {
			df := path.Join(*context, "Dockerfile")
			dockerfile = &df
		}
	}
	if dockerfile != nil {
		img.Dockerfile = dockerfile
		full := inWorkspace(workspace, *dockerfile)
		img.FullDockerfilePath = &full
	}
	return img
}

func inWorkspace(workspace, p string) string {
	if filepath.IsAbs(p) || workspace == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(workspace, p)
}
