package flowctx

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/burstflow/internal/expr"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/matrix"
)

func tpl(src string) hcl.Expression { return expr.MustParseTemplate(src) }

func tpls(srcs ...string) []hcl.Expression {
	out := make([]hcl.Expression, len(srcs))
	for i, s := range srcs {
		out[i] = tpl(s)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func fixtureVolumes() map[string]*flow.Volume {
	return map[string]*flow.Volume{
		"volume_a": {
			ID:       "volume_a",
			Remote:   tpl("storage:dir"),
			Mount:    tpl("/var/dir"),
			Local:    tpl("dir"),
			ReadOnly: tpl("True"),
		},
		"volume_b": {
			ID:     "volume_b",
			Remote: tpl("storage:other"),
			Mount:  tpl("/var/other"),
		},
	}
}

func fixtureImages() map[string]*flow.Image {
	return map[string]*flow.Image{
		"image_a": {
			ID:         "image_a",
			Ref:        tpl("image:banana"),
			Context:    tpl("dir"),
			Dockerfile: tpl("dir/Dockerfile"),
			BuildArgs:  tpls("--arg1", "val1", "--arg2=val2"),
		},
	}
}

func fixtureDefaults() *flow.Defaults {
	return &flow.Defaults{
		Tags:     tpls("tag-a", "tag-b"),
		Env:      map[string]hcl.Expression{"global_a": tpl("val-a"), "global_b": tpl("val-b")},
		Workdir:  tpl("/global/dir"),
		LifeSpan: tpl("1d4h"),
		Preset:   tpl("cpu-large"),
	}
}

func fullAttrs(title string) flow.Attrs {
	return flow.Attrs{
		Title:      tpl(title),
		Name:       tpl("job-name"),
		Image:      tpl("${{ images.image_a.ref }}"),
		Preset:     tpl("cpu-small"),
		HTTPPort:   tpl("8080"),
		HTTPAuth:   tpl("False"),
		Entrypoint: tpl("bash"),
		Cmd:        tpl("echo abc"),
		Workdir:    tpl("/local/dir"),
		LifeSpan:   tpl("2h55m"),
		Env:        map[string]hcl.Expression{"local_a": tpl("val-1"), "local_b": tpl("val-2")},
		Volumes:    tpls("${{ volumes.volume_a.ref }}", "storage:dir:/var/dir:ro"),
		Tags:       tpls("tag-1", "tag-2"),

		PortForward: tpls("2211:22"),
		Detach:      tpl("True"),
		Browse:      tpl("True"),
	}
}

// jobsFull is a live flow declaring every job attribute.
func jobsFull() *flow.Flow {
	return &flow.Flow{
		ID:        "jobs-full",
		Title:     "Global title",
		Workspace: "/ws",
		Kind:      flow.KindLive,
		Defaults:  fixtureDefaults(),
		Volumes:   fixtureVolumes(),
		Images:    fixtureImages(),
		Jobs: map[string]*flow.Job{
			"test_a": {
				ID:    "test_a",
				Attrs: fullAttrs("Job title"),
			},
		},
	}
}

func pipelineMinimal() *flow.Flow {
	return &flow.Flow{
		ID:        "pipeline-minimal",
		Workspace: "/ws",
		Kind:      flow.KindBatch,
		Defaults:  fixtureDefaults(),
		Volumes:   fixtureVolumes(),
		Images:    fixtureImages(),
		Batches: []*flow.Batch{
			{ID: "test_a", Named: true, Attrs: fullAttrs("Batch title")},
		},
	}
}

func simpleBatch(id string, named bool, needs ...string) *flow.Batch {
	return &flow.Batch{
		ID:    id,
		Named: named,
		Attrs: flow.Attrs{Image: tpl("ubuntu"), Cmd: tpl("echo def"), CmdMode: flow.CmdBash},
		Needs: needs,
	}
}

func pipelineSeq() *flow.Flow {
	return &flow.Flow{
		ID:       "pipeline-seq",
		Kind:     flow.KindBatch,
		Defaults: &flow.Defaults{Preset: tpl("cpu-small")},
		Batches: []*flow.Batch{
			simpleBatch(flow.AutoBatchID(0), false),
			simpleBatch(flow.AutoBatchID(1), false, "batch-1"),
		},
	}
}

func pipelineNeeds() *flow.Flow {
	return &flow.Flow{
		ID:       "pipeline-needs",
		Kind:     flow.KindBatch,
		Defaults: &flow.Defaults{Preset: tpl("cpu-small")},
		Batches: []*flow.Batch{
			simpleBatch("batch_a", true),
			simpleBatch(flow.AutoBatchID(1), false, "batch_a"),
		},
	}
}

func pipelineMatrix() *flow.Flow {
	return &flow.Flow{
		ID:   "pipeline-matrix",
		Kind: flow.KindBatch,
		Batches: []*flow.Batch{{
			ID:    flow.AutoBatchID(0),
			Attrs: flow.Attrs{Image: tpl("ubuntu"), Cmd: tpl("echo abc")},
			Matrix: &matrix.Spec{
				Vars: []matrix.Var{
					{Name: "one", Values: []string{"o1", "o2"}},
					{Name: "two", Values: []string{"t1", "t2"}},
				},
				Exclude: []map[string]string{{"one": "o1", "two": "t2"}},
				Include: []map[string]string{{"one": "o3", "two": "t3", "extra": "e3"}},
			},
		}},
	}
}
