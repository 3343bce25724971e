package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Docker treats a fixed list of containers, given by name or ID, as a
// LogSource whose members are the containers themselves. No label
// filtering is done.
type Docker struct {
	api        *client.Client
	containers []string
}

// NewDocker connects to the local Docker daemon (or DOCKER_HOST) and
// scopes the source to the given container names/IDs.
func NewDocker(containers []string) (*Docker, error) {
	api, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("source: connect to docker: %w", err)
	}
	return &Docker{api: api, containers: containers}, nil
}

func (d *Docker) Kind() Kind   { return KindDocker }
func (d *Docker) Path() string { return "" }

func (d *Docker) Members() ([]Member, error) {
	ctx := context.Background()
	var members []Member
	for _, id := range d.containers {
		info, err := d.api.ContainerInspect(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("source: inspect container %s: %w", id, err)
		}
		startedAt, _ := time.Parse(time.RFC3339Nano, info.State.StartedAt)
		members = append(members, Member{
			Path:       id,
			PseudoPath: "docker/" + id,
			ModTime:    startedAt,
		})
	}
	return members, nil
}

func (d *Docker) Open(m Member) (io.ReadCloser, error) {
	ctx := context.Background()
	rc, err := d.api.ContainerLogs(ctx, m.Path, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
	})
	if err != nil {
		return nil, fmt.Errorf("source: container logs for %s: %w", m.Path, err)
	}
	defer rc.Close()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, rc); err != nil {
		return nil, fmt.Errorf("source: demux container logs for %s: %w", m.Path, err)
	}
	return io.NopCloser(bufio.NewReader(&out)), nil
}
