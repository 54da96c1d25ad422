// Package brain implements the controller's single authoritative actor:
// the owner of the proxy link, the unique-name set, and every Cluster —
// spec.md §4.H. Adapted from the teacher's goroutine-per-concern launch
// style (cmd/karoo/main.go) generalized into a genuine single-consumer
// message loop, per SPEC_FULL.md §4.G/§4.H's actor-boundaries note.
package brain

import (
	"context"

	"github.com/ephemeral-minigames/controller/internal/cluster"
	"github.com/ephemeral-minigames/controller/internal/metricsx"
	"github.com/ephemeral-minigames/controller/internal/names"
	"github.com/ephemeral-minigames/controller/internal/registry"
	"github.com/ephemeral-minigames/controller/internal/transport"
	"github.com/ephemeral-minigames/controller/pkg/logger"
)

// proxyName is the reserved unique name the proxy connection occupies
// (spec.md §3).
const proxyName = "proxy"

// ContainerSpawner is the slice of spawner.Spawner the Brain needs. Kept as
// an interface so tests can substitute a fake instead of talking to a real
// Docker daemon.
type ContainerSpawner interface {
	Spawn(ctx context.Context, name string, kind transport.Kind) error
}

// Handle is the external, thread-safe handle to a running Brain actor. It
// also satisfies cluster.SpawnRequester, so Clusters can ask their owning
// Brain for a new container without importing the brain package.
type Handle struct {
	ch chan Msg
}

// NewConn reports a freshly authenticated connection.
func (h *Handle) NewConn(conn ConnectionInfo, write *transport.Writer) {
	h.ch <- MsgNewConn{Conn: conn, Write: write}
}

// Unlink reports a session's termination.
func (h *Handle) Unlink(conn ConnectionInfo) {
	h.ch <- MsgUnlink{Conn: conn}
}

// Dispatch asks for a server of kind, optionally transporting player there.
func (h *Handle) Dispatch(kind transport.Kind, player *string) {
	h.ch <- MsgDispatch{Kind: kind, Player: player}
}

// ClusterForward relays msg to the Cluster for minigameKind.
func (h *Handle) ClusterForward(minigameKind string, msg cluster.Msg) {
	h.ch <- MsgClusterForward{MinigameKind: minigameKind, Msg: msg}
}

// RequestSpawn implements cluster.SpawnRequester.
func (h *Handle) RequestSpawn(minigameKind string) {
	h.ch <- MsgSpawn{Kind: transport.Minigame(minigameKind)}
}

// Start launches the Brain goroutine and returns a handle to it.
func Start(reg *registry.Registry, nameSet *names.Set, containers ContainerSpawner, metrics *metricsx.Collectors) *Handle {
	ch := make(chan Msg, 256)
	h := &Handle{ch: ch}
	go run(h, reg, nameSet, containers, metrics)
	return h
}

// brainState holds everything the single run goroutine owns. Every field
// is touched only from that goroutine — no lock, per spec.md §5.
type brainState struct {
	handle     *Handle
	registry   *registry.Registry
	names      *names.Set
	containers ContainerSpawner
	metrics    *metricsx.Collectors

	proxyWrite *transport.Writer
	lobbyWrite *transport.Writer
	limboWrite *transport.Writer
	clusters   map[string]*cluster.Handle
}

func run(h *Handle, reg *registry.Registry, nameSet *names.Set, containers ContainerSpawner, metrics *metricsx.Collectors) {
	s := &brainState{
		handle:     h,
		registry:   reg,
		names:      nameSet,
		containers: containers,
		metrics:    metrics,
		clusters:   make(map[string]*cluster.Handle),
	}

	logger.Info("brain: awaiting proxy connection")

	var buffered []Msg
	for msg := range h.ch {
		newConn, ok := msg.(MsgNewConn)
		if ok && newConn.Conn.Kind.Tag == transport.KindProxy {
			s.handleProxyNewConn(newConn)
			break
		}
		buffered = append(buffered, msg)
	}

	logger.Info("brain: proxy connected, replaying %d buffered message(s)", len(buffered))
	for _, msg := range buffered {
		s.dispatchMsg(msg)
	}
	buffered = nil

	logger.Info("brain: entering steady state")
	for msg := range h.ch {
		s.dispatchMsg(msg)
	}

	logger.Info("brain: exiting")
}

func (s *brainState) dispatchMsg(msg Msg) {
	switch m := msg.(type) {
	case MsgNewConn:
		s.handleNewConn(m)
	case MsgUnlink:
		s.handleUnlink(m)
	case MsgDispatch:
		s.handleDispatch(m)
	case MsgClusterForward:
		s.handleClusterForward(m)
	case MsgSpawn:
		s.handleSpawn(m)
	case MsgTransport:
		s.handleTransport(m)
	}
}

func (s *brainState) handleProxyNewConn(m MsgNewConn) {
	s.proxyWrite = m.Write
	s.names.Record(proxyName)
	s.registry.SetStatus(proxyName, registry.Online)
	logger.Info("brain: proxy %s authenticated", m.Conn.Host)
}

func (s *brainState) handleNewConn(m MsgNewConn) {
	if m.Conn.Kind.Tag == transport.KindProxy {
		logger.Warn("brain: rejecting second proxy connection from %s", m.Conn.Host)
		if err := m.Write.Shutdown(); err != nil {
			logger.Warn("brain: error shutting down rejected proxy writer: %v", err)
		}
		return
	}

	if !s.names.Record(m.Conn.Name) {
		logger.Warn("brain: duplicate server name %q", m.Conn.Name)
	}
	s.registry.SetStatus(m.Conn.Name, registry.Online)

	switch m.Conn.Kind.Tag {
	case transport.KindLobby:
		s.lobbyWrite = m.Write
	case transport.KindLimbo:
		s.limboWrite = m.Write
	case transport.KindMinigame:
		kind := m.Conn.Kind.MinigameKind
		c := s.clusterFor(kind)
		c.PushServer(cluster.Server{
			Name:   cluster.ServerName(m.Conn.Name),
			Active: true,
			Write:  m.Write,
		})
	}

	if s.proxyWrite != nil {
		err := s.proxyWrite.WriteNext(transport.LinkServer{
			Name:     m.Conn.Name,
			Address:  m.Conn.Host,
			Port:     m.Conn.Port,
			Priority: m.Conn.Kind.Priority(),
		})
		if err != nil {
			logger.Warn("brain: couldn't send LinkServer to proxy: %v", err)
		}
	}
}

func (s *brainState) handleUnlink(m MsgUnlink) {
	if m.Conn.Kind.Tag == transport.KindProxy {
		logger.Fatal("brain: proxy connection lost, the single-proxy invariant is violated")
		return
	}

	s.registry.SetStatus(m.Conn.Name, registry.Offline)
	s.names.Unrecord(m.Conn.Name)

	if s.proxyWrite != nil {
		if err := s.proxyWrite.WriteNext(transport.UnlinkServer{Name: m.Conn.Name}); err != nil {
			logger.Warn("brain: couldn't send UnlinkServer to proxy: %v", err)
		}
	}

	if m.Conn.Kind.Tag == transport.KindMinigame {
		kind := m.Conn.Kind.MinigameKind
		c, ok := s.clusters[kind]
		if !ok {
			logger.Warn("brain: unable to forward PopServer; no cluster for kind %q", kind)
			return
		}
		c.PopServer(cluster.ServerName(m.Conn.Name))
	}
}

func (s *brainState) handleDispatch(m MsgDispatch) {
	switch m.Kind.Tag {
	case transport.KindLimbo, transport.KindProxy:
		logger.Warn("brain: request to spawn %s denied", m.Kind)
		return
	case transport.KindLobby:
		logger.Warn("brain: dispatch to lobby is not implemented")
		return
	case transport.KindMinigame:
		kind := m.Kind.MinigameKind
		c := s.clusterFor(kind)
		reply := c.QueueServer()
		player := m.Player
		handle := s.handle

		go func() {
			serverName := <-reply
			if player != nil {
				handle.ch <- MsgTransport{Player: *player, Server: string(serverName)}
			}
		}()
	}
}

func (s *brainState) handleClusterForward(m MsgClusterForward) {
	c, ok := s.clusters[m.MinigameKind]
	if !ok {
		logger.Warn("brain: unable to forward to cluster %q, it does not exist", m.MinigameKind)
		return
	}
	switch inner := m.Msg.(type) {
	case cluster.MsgUpdateActive:
		c.UpdateActive(inner.Name, inner.Active)
	case cluster.MsgServerPong:
		c.ServerPong(inner.Timer, inner.Name)
	default:
		logger.Warn("brain: unsupported cluster forward message %T", m.Msg)
	}
}

func (s *brainState) handleSpawn(m MsgSpawn) {
	name := s.names.NextFreeName(m.Kind.String())
	s.registry.SetStatus(name, registry.Starting)

	if s.metrics != nil {
		s.metrics.SpawnsTotal.WithLabelValues(m.Kind.String()).Inc()
	}

	if err := s.containers.Spawn(context.Background(), name, m.Kind); err != nil {
		logger.Error("brain: failed to spawn %s (%s): %v", name, m.Kind, err)
		if s.metrics != nil {
			s.metrics.SpawnFailures.WithLabelValues(m.Kind.String()).Inc()
		}
	}
}

func (s *brainState) handleTransport(m MsgTransport) {
	if s.proxyWrite == nil {
		logger.Warn("brain: proxy not connected, dropping transport of %s to %s", m.Player, m.Server)
		return
	}
	if err := s.proxyWrite.WriteNext(transport.TransportPlayer{Player: m.Player, To: m.Server}); err != nil {
		logger.Warn("brain: unable to send transport packet to proxy: %v", err)
	}
}

func (s *brainState) clusterFor(kind string) *cluster.Handle {
	if c, ok := s.clusters[kind]; ok {
		return c
	}
	c := cluster.Start(kind, s.handle)
	s.clusters[kind] = c
	return c
}
