package flowyaml

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// document mirrors the YAML layout of a flow file.
type document struct {
	ID       string                `yaml:"id" validate:"omitempty,identifier"`
	Kind     string                `yaml:"kind" validate:"required,oneof=live batch"`
	Title    string                `yaml:"title"`
	Images   map[string]*imageDoc  `yaml:"images" validate:"dive,keys,identifier,endkeys,required"`
	Volumes  map[string]*volumeDoc `yaml:"volumes" validate:"dive,keys,identifier,endkeys,required"`
	Defaults *defaultsDoc          `yaml:"defaults"`
	Jobs     map[string]*jobDoc    `yaml:"jobs" validate:"dive,keys,identifier,endkeys,required"`
	Batches  []*batchDoc           `yaml:"batches" validate:"dive,required"`
}

type imageDoc struct {
	Ref        *scalar   `yaml:"ref" validate:"required"`
	Context    *scalar   `yaml:"context"`
	Dockerfile *scalar   `yaml:"dockerfile"`
	BuildArgs  []*scalar `yaml:"build_args" validate:"dive,required"`
}

type volumeDoc struct {
	Remote   *scalar `yaml:"remote" validate:"required"`
	Mount    *scalar `yaml:"mount" validate:"required"`
	Local    *scalar `yaml:"local"`
	ReadOnly *scalar `yaml:"read_only"`
}

type defaultsDoc struct {
	Tags     []*scalar          `yaml:"tags" validate:"dive,required"`
	Env      map[string]*scalar `yaml:"env" validate:"dive,required"`
	Workdir  *scalar            `yaml:"workdir"`
	LifeSpan *scalar            `yaml:"life_span"`
	Preset   *scalar            `yaml:"preset"`
}

// attrsDoc holds the keys shared by jobs and batches. Exactly one of cmd,
// bash and python may be set.
type attrsDoc struct {
	Title      *scalar            `yaml:"title"`
	Name       *scalar            `yaml:"name"`
	Image      *scalar            `yaml:"image" validate:"required"`
	Preset     *scalar            `yaml:"preset"`
	Entrypoint *scalar            `yaml:"entrypoint"`
	Cmd        *scalar            `yaml:"cmd" validate:"excluded_with=Bash Python"`
	Bash       *scalar            `yaml:"bash" validate:"excluded_with=Cmd Python"`
	Python     *scalar            `yaml:"python" validate:"excluded_with=Cmd Bash"`
	Workdir    *scalar            `yaml:"workdir"`
	LifeSpan   *scalar            `yaml:"life_span"`
	HTTPPort   *scalar            `yaml:"http_port"`
	HTTPAuth   *scalar            `yaml:"http_auth"`
	Env        map[string]*scalar `yaml:"env" validate:"dive,required"`
	Volumes    []*scalar          `yaml:"volumes" validate:"dive,required"`
	Tags       []*scalar          `yaml:"tags" validate:"dive,required"`

	PortForward []*scalar `yaml:"port_forward" validate:"dive,required"`
	Detach      *scalar   `yaml:"detach"`
	Browse      *scalar   `yaml:"browse"`
}

type jobDoc struct {
	Attrs attrsDoc `yaml:",inline"`
}

type batchDoc struct {
	ID    string   `yaml:"id" validate:"omitempty,identifier"`
	Attrs attrsDoc `yaml:",inline"`

	Needs  []string   `yaml:"needs" validate:"dive,required"`
	Enable *scalar    `yaml:"enable"`
	Matrix *matrixDoc `yaml:"matrix"`
}

// scalar keeps a YAML scalar node so it can be compiled with its position.
type scalar struct {
	node *yaml.Node
}

func (s *scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", n.Line)
	}
	s.node = n
	return nil
}

// matrixDoc keeps the mapping node so variable order survives decoding.
type matrixDoc struct {
	node *yaml.Node
}

func (m *matrixDoc) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: matrix must be a mapping", n.Line)
	}
	m.node = n
	return nil
}
