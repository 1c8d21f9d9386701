package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ridgeback/tasq/internal/types"
)

func TestBuildDockerRunArgsBasic(t *testing.T) {
	opts := &types.DockerOptions{
		ContainerName: "c1",
		Image:         "busybox",
	}

	args := buildDockerRunArgs(opts)
	assert.Equal(t, []string{"run", "--name", "c1", "busybox"}, args)
}

func TestBuildDockerRunArgsFull(t *testing.T) {
	opts := &types.DockerOptions{
		ContainerName:   "web",
		Image:           "nginx",
		DockerArguments: []string{"-p", "8080:80"},
		DockerCommand:   []string{"nginx", "-g", "daemon off;"},
		Environment:     map[string]string{"FOO": `say "hi"`},
	}

	args := buildDockerRunArgs(opts)

	assert.Equal(t, "run", args[0])
	assert.Equal(t, "--name", args[1])
	assert.Equal(t, "web", args[2])
	assert.Contains(t, args, "-p")
	assert.Contains(t, args, "8080:80")
	assert.Contains(t, args, "-e")
	assert.Contains(t, args, `FOO=say \"hi\"`)
	assert.Contains(t, args, "nginx")
	assert.Contains(t, args, "daemon off;")
}

func TestGroupHandlerFiresOnReadySynchronouslyAndReturnsNoHandle(t *testing.T) {
	var fired bool
	h := &GroupHandler{}

	handle, err := h.Execute(context.Background(), &types.Task{Name: "g", Kind: types.KindGroup}, func() { fired = true })

	assert.NoError(t, err)
	assert.Nil(t, handle)
	assert.True(t, fired)
}
