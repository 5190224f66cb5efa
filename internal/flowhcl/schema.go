package flowhcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is the top-level structure of a flow file.
type fileRoot struct {
	ID       *string        `hcl:"id,optional"`
	Title    *string        `hcl:"title,optional"`
	Kind     *string        `hcl:"kind,optional"`
	Defaults *defaultsBlock `hcl:"defaults,block"`
	Volumes  []*volumeBlock `hcl:"volume,block"`
	Images   []*imageBlock  `hcl:"image,block"`
	Jobs     []*jobBlock    `hcl:"job,block"`
	Batches  []*batchBlock  `hcl:"batch,block"`
}

type defaultsBlock struct {
	Tags     hcl.Expression `hcl:"tags,optional"`
	Env      hcl.Expression `hcl:"env,optional"`
	Workdir  hcl.Expression `hcl:"workdir,optional"`
	LifeSpan hcl.Expression `hcl:"life_span,optional"`
	Preset   hcl.Expression `hcl:"preset,optional"`
}

type volumeBlock struct {
	ID       string         `hcl:"id,label"`
	Remote   hcl.Expression `hcl:"remote"`
	Mount    hcl.Expression `hcl:"mount"`
	ReadOnly hcl.Expression `hcl:"read_only,optional"`
	Local    hcl.Expression `hcl:"local,optional"`
}

type imageBlock struct {
	ID         string         `hcl:"id,label"`
	Ref        hcl.Expression `hcl:"ref"`
	Context    hcl.Expression `hcl:"context,optional"`
	Dockerfile hcl.Expression `hcl:"dockerfile,optional"`
	BuildArgs  hcl.Expression `hcl:"build_args,optional"`
}

// attrsBlock holds the attributes shared by jobs and batches. It is decoded
// from whatever a job or batch block leaves after its own fields.
type attrsBlock struct {
	Title      hcl.Expression `hcl:"title,optional"`
	Name       hcl.Expression `hcl:"name,optional"`
	Image      hcl.Expression `hcl:"image"`
	Preset     hcl.Expression `hcl:"preset,optional"`
	Entrypoint hcl.Expression `hcl:"entrypoint,optional"`
	Cmd        hcl.Expression `hcl:"cmd,optional"`
	Bash       hcl.Expression `hcl:"bash,optional"`
	Python     hcl.Expression `hcl:"python,optional"`
	Workdir    hcl.Expression `hcl:"workdir,optional"`
	LifeSpan   hcl.Expression `hcl:"life_span,optional"`
	HTTPPort   hcl.Expression `hcl:"http_port,optional"`
	HTTPAuth   hcl.Expression `hcl:"http_auth,optional"`
	Env        hcl.Expression `hcl:"env,optional"`
	Volumes    hcl.Expression `hcl:"volumes,optional"`
	Tags       hcl.Expression `hcl:"tags,optional"`

	PortForward hcl.Expression `hcl:"port_forward,optional"`
	Detach      hcl.Expression `hcl:"detach,optional"`
	Browse      hcl.Expression `hcl:"browse,optional"`
}

type jobBlock struct {
	ID     string   `hcl:"id,label"`
	Remain hcl.Body `hcl:",remain"`
}

type batchBlock struct {
	ID     string         `hcl:"id,label"`
	Needs  []string       `hcl:"needs,optional"`
	Enable hcl.Expression `hcl:"enable,optional"`
	Matrix *matrixBlock   `hcl:"matrix,block"`
	Remain hcl.Body       `hcl:",remain"`
}

// matrixBlock carries free-form variables, so it is read attribute by
// attribute.
type matrixBlock struct {
	Body hcl.Body `hcl:",remain"`
}
