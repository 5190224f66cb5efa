package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowctx"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const diamondFlow = `
kind: batch
title: Diamond
batches:
  - id: fetch
    image: ubuntu
    cmd: fetch
  - id: left
    image: ubuntu
    needs: [fetch]
    cmd: left
  - id: right
    image: ubuntu
    needs: [fetch]
    cmd: right
  - id: deploy
    image: ubuntu
    needs: [left]
    cmd: deploy
  - id: report
    image: ubuntu
    needs: [left, right]
    enable: ${{ always() }}
    cmd: report ${{ needs.left.result }}
`

const liveFlow = `
kind = "live"

job "web" {
  image     = "nginx"
  http_port = 80
}

job "shell" {
  image = "ubuntu"
  cmd   = "bash"
}
`

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{FlowPath: "f.yml", WorkerCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output)

	_, err = NewConfig(Config{WorkerCount: 1})
	assert.ErrorContains(t, err, "FlowPath is a required")

	_, err = NewConfig(Config{FlowPath: "f.yml", WorkerCount: 1, Output: "xml"})
	assert.ErrorContains(t, err, "invalid output")

	_, err = NewConfig(Config{FlowPath: "f.yml"})
	assert.ErrorContains(t, err, "invalid worker count")
}

func TestNewLogger(t *testing.T) {
	buf := &SafeBuffer{}
	logger := newLogger("warn", "json", buf)
	logger.Info("hidden")
	logger.Warn("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &line))
	assert.Equal(t, "shown", line["msg"])

	buf = &SafeBuffer{}
	newLogger("bogus", "text", buf).Info("fallback to info")
	assert.Contains(t, buf.String(), "fallback to info")
}

func TestApp_Validate(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"diamond.yml": diamondFlow,
		"live.hcl":    liveFlow,
		"broken.yaml": "kind: batch\nbatches:\n  - image: ubuntu\n    needs: [ghost]\n",
		"readme.md":   "not a flow",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	a, _, logs := SetupAppTest(t, Config{FlowPath: dir})
	reports, err := a.Validate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, flowerr.ErrValidation)
	assert.Contains(t, err.Error(), "unknown dependency")

	require.Len(t, reports, 3)
	byName := map[string]Report{}
	for _, r := range reports {
		byName[filepath.Base(r.Path)] = r
	}
	assert.NotEmpty(t, byName["broken.yaml"].Error)
	assert.Equal(t, Report{Path: filepath.Join(dir, "diamond.yml"), ID: "diamond", Kind: flow.KindBatch, Nodes: 5}, byName["diamond.yml"])
	assert.Equal(t, Report{Path: filepath.Join(dir, "live.hcl"), ID: "live", Kind: flow.KindLive, Nodes: 2}, byName["live.hcl"])
	assert.Contains(t, logs.String(), "Flow is valid.")
}

func TestApp_ValidateProject(t *testing.T) {
	project := filepath.Join(t.TempDir(), "jobs-minimal")
	configDir := filepath.Join(project, flow.ConfigDir)
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "live.hcl"), []byte(liveFlow), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "diamond.yml"), []byte(diamondFlow), 0o644))

	a, _, _ := SetupAppTest(t, Config{FlowPath: project})
	reports, err := a.Validate(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "diamond", reports[0].ID)
	assert.Equal(t, "jobs-minimal", reports[1].ID)
	assert.Equal(t, flow.KindLive, reports[1].Kind)
}

func TestApp_Order(t *testing.T) {
	a, _, _ := SetupAppTest(t, Config{FlowPath: WriteFlow(t, "diamond.yml", diamondFlow)})
	order, err := a.Order(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"fetch"}, {"left", "right"}, {"deploy", "report"}}, order)

	live, _, _ := SetupAppTest(t, Config{FlowPath: WriteFlow(t, "live.hcl", liveFlow)})
	_, err = live.Order(context.Background())
	assert.ErrorIs(t, err, flowerr.ErrValidation)
	assert.ErrorContains(t, err, "wrong flow kind")
}

func TestApp_Inspect(t *testing.T) {
	ctx := context.Background()

	t.Run("batch", func(t *testing.T) {
		a, _, _ := SetupAppTest(t, Config{FlowPath: WriteFlow(t, "diamond.yml", diamondFlow)})
		got, err := a.Inspect(ctx, "report")
		require.NoError(t, err)
		b, ok := got.(flowctx.Batch)
		require.True(t, ok)
		assert.Equal(t, "report success", *b.Cmd)
		assert.Equal(t, []string{"left", "right"}, b.Needs)

		_, err = a.Inspect(ctx, "ghost")
		assert.ErrorIs(t, err, flowerr.ErrNotAvailable)
	})

	t.Run("job", func(t *testing.T) {
		a, _, _ := SetupAppTest(t, Config{FlowPath: WriteFlow(t, "live.hcl", liveFlow)})
		got, err := a.Inspect(ctx, "web")
		require.NoError(t, err)
		job, ok := got.(flowctx.Job)
		require.True(t, ok)
		assert.Equal(t, 80, *job.HTTPPort)
		assert.Equal(t, []string{"flow:live", "job:web"}, job.Tags)
	})

	t.Run("directory is rejected", func(t *testing.T) {
		a, _, _ := SetupAppTest(t, Config{FlowPath: t.TempDir()})
		_, err := a.Inspect(ctx, "x")
		assert.ErrorIs(t, err, flowerr.ErrValidation)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		a, _, _ := SetupAppTest(t, Config{FlowPath: WriteFlow(t, "flow.toml", "")})
		_, err := a.Load(ctx, a.config.FlowPath)
		assert.ErrorContains(t, err, "unsupported flow file extension")
	})
}

func plannedResults(p *Plan) map[string]string {
	out := map[string]string{}
	for _, s := range p.Stages {
		for _, b := range s.Batches {
			out[b.RealID] = b.Result.String()
		}
	}
	return out
}

func TestApp_Plan(t *testing.T) {
	ctx := context.Background()
	path := WriteFlow(t, "diamond.yml", diamondFlow)

	t.Run("all succeed", func(t *testing.T) {
		a, _, logs := SetupAppTest(t, Config{FlowPath: path})
		p, err := a.Plan(ctx, PlanOptions{})
		require.NoError(t, err)

		_, err = uuid.Parse(p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Diamond", p.Flow.Title)
		require.Len(t, p.Stages, 3)
		assert.Equal(t, 2, p.Stages[2].Index)

		want := map[string]string{
			"fetch": "success", "left": "success", "right": "success",
			"deploy": "success", "report": "success",
		}
		if diff := cmp.Diff(want, plannedResults(p)); diff != "" {
			t.Errorf("results mismatch (-want +got):\n%s", diff)
		}
		assert.Contains(t, logs.String(), p.ID)
	})

	t.Run("simulated failure", func(t *testing.T) {
		a, _, _ := SetupAppTest(t, Config{FlowPath: path, WorkerCount: 1})
		p, err := a.Plan(ctx, PlanOptions{Fail: []string{"left"}})
		require.NoError(t, err)

		want := map[string]string{
			"fetch": "success", "left": "failure", "right": "success",
			"deploy": "cancelled", "report": "success",
		}
		if diff := cmp.Diff(want, plannedResults(p)); diff != "" {
			t.Errorf("results mismatch (-want +got):\n%s", diff)
		}
		report := p.Stages[2].Batches[1]
		assert.Equal(t, "report", report.RealID)
		assert.Equal(t, "report failure", *report.Cmd)
		assert.False(t, p.Stages[2].Batches[0].Enable)
	})

	t.Run("unknown failure id", func(t *testing.T) {
		a, _, _ := SetupAppTest(t, Config{FlowPath: path})
		_, err := a.Plan(ctx, PlanOptions{Fail: []string{"ghost"}})
		assert.ErrorIs(t, err, flowerr.ErrValidation)
		assert.ErrorContains(t, err, "cannot simulate failure")
	})

	t.Run("live flow", func(t *testing.T) {
		a, _, _ := SetupAppTest(t, Config{FlowPath: WriteFlow(t, "live.hcl", liveFlow)})
		p, err := a.Plan(ctx, PlanOptions{})
		require.NoError(t, err)
		require.Len(t, p.Jobs, 2)
		assert.Equal(t, "shell", p.Jobs[0].ID)
		assert.Equal(t, "web", p.Jobs[1].ID)
		assert.Empty(t, p.Stages)
	})
}

func TestApp_Write(t *testing.T) {
	ctx := context.Background()
	path := WriteFlow(t, "diamond.yml", diamondFlow)

	t.Run("yaml", func(t *testing.T) {
		a, out, _ := SetupAppTest(t, Config{FlowPath: path})
		p, err := a.Plan(ctx, PlanOptions{})
		require.NoError(t, err)
		require.NoError(t, a.Write(p))

		var decoded struct {
			ID     string `yaml:"id"`
			Stages []struct {
				Batches []struct {
					RealID string `yaml:"real_id"`
					Cmd    string `yaml:"cmd"`
					Result string `yaml:"result"`
				} `yaml:"batches"`
			} `yaml:"stages"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(out.String()), &decoded))
		assert.Equal(t, p.ID, decoded.ID)
		assert.Equal(t, "fetch", decoded.Stages[0].Batches[0].RealID)
		assert.Equal(t, "success", decoded.Stages[0].Batches[0].Result)
	})

	t.Run("json", func(t *testing.T) {
		a, out, _ := SetupAppTest(t, Config{FlowPath: path, Output: "json"})
		order, err := a.Order(ctx)
		require.NoError(t, err)
		require.NoError(t, a.Write(order))

		var decoded [][]string
		require.NoError(t, json.Unmarshal([]byte(out.String()), &decoded))
		assert.Equal(t, order, decoded)
	})
}
