package flowctx

// FlowMeta describes the flow itself.
type FlowMeta struct {
	ID        string `json:"id" yaml:"id" cty:"id"`
	Title     string `json:"title" yaml:"title" cty:"title"`
	Workspace string `json:"workspace" yaml:"workspace" cty:"workspace"`
}

// Attrs are the resolved attributes shared by jobs and batches.
type Attrs struct {
	Title      *string           `json:"title,omitempty" yaml:"title,omitempty"`
	Name       *string           `json:"name,omitempty" yaml:"name,omitempty"`
	Image      *string           `json:"image,omitempty" yaml:"image,omitempty"`
	Preset     *string           `json:"preset,omitempty" yaml:"preset,omitempty"`
	HTTPPort   *int              `json:"http_port,omitempty" yaml:"http_port,omitempty"`
	HTTPAuth   *bool             `json:"http_auth,omitempty" yaml:"http_auth,omitempty"`
	Entrypoint *string           `json:"entrypoint,omitempty" yaml:"entrypoint,omitempty"`
	Cmd        *string           `json:"cmd,omitempty" yaml:"cmd,omitempty"`
	Workdir    *string           `json:"workdir,omitempty" yaml:"workdir,omitempty"`
	Volumes    []string          `json:"volumes" yaml:"volumes"`
	Tags       []string          `json:"tags" yaml:"tags"`
	LifeSpan   *float64          `json:"life_span,omitempty" yaml:"life_span,omitempty"`
	Env        map[string]string `json:"env" yaml:"env"`

	PortForward []string `json:"port_forward" yaml:"port_forward"`
	Detach      bool     `json:"detach" yaml:"detach"`
	Browse      bool     `json:"browse" yaml:"browse"`
}

// Job is the resolved projection of a live job.
type Job struct {
	ID    string `json:"id" yaml:"id"`
	Attrs `yaml:",inline"`
}

// Batch is the resolved projection of one expanded pipeline batch.
type Batch struct {
	RealID string `json:"real_id" yaml:"real_id"`
	// ID is the declared id, nil for unnamed or matrix-multiplied batches.
	ID    *string `json:"id,omitempty" yaml:"id,omitempty"`
	Attrs `yaml:",inline"`

	// Needs are the real ids of the prerequisites, sorted.
	Needs  []string          `json:"needs" yaml:"needs"`
	Matrix map[string]string `json:"matrix" yaml:"matrix"`
	// Enable reports whether the acceptance policy lets the batch run given
	// the results it was bound with.
	Enable bool `json:"enable" yaml:"enable"`
}
