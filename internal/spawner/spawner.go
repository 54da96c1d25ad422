// Package spawner creates and starts the containers backing Lobby and
// Minigame servers — spec.md §4.E. Grounded on the official Docker Go SDK
// usage pattern shared across the example corpus (getployz-ployz,
// bobvawter-mdcmux, k3s-io-k3s all create -> attach-network -> start in
// this order).
package spawner

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"

	"github.com/ephemeral-minigames/controller/internal/transport"
	"github.com/ephemeral-minigames/controller/pkg/errors"
	"github.com/ephemeral-minigames/controller/pkg/logger"
)

// networkName is the Docker network every spawned server joins, matching
// the proxy and controller's own network attachment.
const networkName = "ems_network"

// Spawner creates minigame and lobby containers over the Docker API.
type Spawner struct {
	docker *client.Client
}

// New connects to the local Docker daemon. It respects DOCKER_HOST and the
// other standard Docker environment variables via client.FromEnv, falling
// back to the default /var/run/docker.sock.
func New() (*Spawner, error) {
	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(errors.CodeContainerRuntime, "connecting to docker daemon", err)
	}
	return &Spawner{docker: docker}, nil
}

// image returns the container image for kind, or an error if kind is not
// spawnable.
func image(kind transport.Kind) (string, error) {
	switch kind.Tag {
	case transport.KindLobby:
		return "ems-lobby", nil
	case transport.KindMinigame:
		return "ems-minigame", nil
	default:
		return "", fmt.Errorf("spawning a %s server is not supported", kind)
	}
}

// env builds the CONTROLLER_IP / SERVER_NAME / SERVER_KIND(/MINIGAME_KIND)
// environment exactly as spec.md §4.E describes.
func env(name string, kind transport.Kind) ([]string, error) {
	vars := []string{
		"CONTROLLER_IP=controller",
		fmt.Sprintf("SERVER_NAME=%s", name),
	}

	switch kind.Tag {
	case transport.KindLobby:
		vars = append(vars, "SERVER_KIND=Lobby")
	case transport.KindMinigame:
		vars = append(vars, "SERVER_KIND=Minigame", fmt.Sprintf("MINIGAME_KIND=%s", kind.MinigameKind))
	default:
		return nil, fmt.Errorf("spawning a %s server is not supported", kind)
	}

	return vars, nil
}

// Spawn creates, attaches, and starts a container for a server named name
// of the given kind. Spawning Proxy or Limbo is a programmer error: those
// servers are never created by the controller, only connected to — callers
// must never reach this with those kinds.
func (s *Spawner) Spawn(ctx context.Context, name string, kind transport.Kind) error {
	if kind.Tag == transport.KindProxy || kind.Tag == transport.KindLimbo {
		panic(fmt.Sprintf("spawner: attempted to spawn a %s server, which is never controller-managed", kind))
	}

	img, err := image(kind)
	if err != nil {
		return errors.Wrap(errors.CodeContainerRuntime, "selecting image", err)
	}

	envVars, err := env(name, kind)
	if err != nil {
		return errors.Wrap(errors.CodeContainerRuntime, "building environment", err)
	}

	created, err := s.docker.ContainerCreate(ctx, &container.Config{
		Image: img,
		Env:   envVars,
	}, nil, nil, nil, "")
	if err != nil {
		return errors.Wrap(errors.CodeContainerRuntime, "creating container", err)
	}

	for _, warning := range created.Warnings {
		logger.Warn("spawner: container create warning for %s: %s", name, warning)
	}

	id := created.ID
	logger.Info("spawner: created container %s for server %s", id, name)

	if err := s.docker.NetworkConnect(ctx, networkName, id, &network.EndpointSettings{}); err != nil {
		return errors.Wrap(errors.CodeContainerRuntime, "attaching container to network", err)
	}
	logger.Info("spawner: attached %s to network %s", id, networkName)

	if err := s.docker.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return errors.Wrap(errors.CodeContainerRuntime, "starting container", err)
	}
	logger.Info("spawner: started container %s for server %s", id, name)

	return nil
}
