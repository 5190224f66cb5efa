package refs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestNewVolume(t *testing.T) {
	t.Run("read only", func(t *testing.T) {
		v := NewVolume("/ws", "volume_a", "storage:dir", "/var/dir", true, ptr("dir"))
		assert.Equal(t, "storage:dir:/var/dir:ro", v.RefRO)
		assert.Equal(t, "storage:dir:/var/dir:rw", v.RefRW)
		assert.Equal(t, v.RefRO, v.Ref)
		require.NotNil(t, v.FullLocalPath)
		assert.Equal(t, "/ws/dir", *v.FullLocalPath)
	})

	t.Run("read write without local", func(t *testing.T) {
		v := NewVolume("/ws", "volume_b", "storage:other", "/var/other", false, nil)
		assert.Equal(t, v.RefRW, v.Ref)
		assert.Nil(t, v.FullLocalPath)
	})

	t.Run("refs depend only on remote and mount", func(t *testing.T) {
		a := NewVolume("/ws", "a", "storage:x", "/m", true, ptr("l1"))
		b := NewVolume("/other", "b", "storage:x", "/m", false, nil)
		assert.Equal(t, a.RefRO, b.RefRO)
		assert.Equal(t, a.RefRW, b.RefRW)
	})

	t.Run("absolute local path", func(t *testing.T) {
		v := NewVolume("/ws", "a", "storage:x", "/m", false, ptr("/abs/dir"))
		assert.Equal(t, "/abs/dir", *v.FullLocalPath)
	})
}

func TestNewImage(t *testing.T) {
	t.Run("dockerfile defaults to context", func(t *testing.T) {
		img := NewImage("/ws", "image_a", "image:banana", ptr("dir"), nil, []string{"--arg1", "val1"})
		require.NotNil(t, img.Dockerfile)
		assert.Equal(t, "dir/Dockerfile", *img.Dockerfile)
		assert.Equal(t, "/ws/dir", *img.FullContextPath)
		assert.Equal(t, "/ws/dir/Dockerfile", *img.FullDockerfilePath)
		assert.Equal(t, []string{"--arg1", "val1"}, img.BuildArgs)
	})

	t.Run("explicit dockerfile", func(t *testing.T) {
		img := NewImage("/ws", "image_a", "image:banana", ptr("dir"), ptr("dir/my.Dockerfile"), nil)
		assert.Equal(t, "/ws/dir/my.Dockerfile", *img.FullDockerfilePath)
		assert.Empty(t, img.BuildArgs)
	})

	t.Run("no context", func(t *testing.T) {
		img := NewImage("/ws", "ubuntu", "ubuntu", nil, nil, nil)
		assert.Nil(t, img.Context)
		assert.Nil(t, img.Dockerfile)
		assert.Nil(t, img.FullDockerfilePath)
	})
}
