// Package cluster implements the per-minigame-kind dispatch state machine:
// spec.md §4.G, the hardest part of the controller. A Cluster is a single
// goroutine consuming a channel of Msg values; its state (servers list,
// pending queue requests, epoch counter) is touched only from that
// goroutine, so none of it needs a lock — the actor boundary itself is the
// synchronization, per spec.md §5's "not shared memory" ownership rule.
package cluster

import (
	"time"

	"github.com/ephemeral-minigames/controller/internal/transport"
	"github.com/ephemeral-minigames/controller/pkg/logger"
)

// pingTimeout is the fixed window a Cluster waits for a Pong before giving
// up and spawning a new server (spec.md §4.G, §5).
const pingTimeout = 1 * time.Second

// ServerName identifies a minigame server within a Cluster.
type ServerName string

// PingWriter is the slice of transport.Writer a Cluster needs: just enough
// to send a Ping. Kept as an interface (rather than *transport.Writer
// directly) so tests can substitute a fake instead of wiring a real
// net.Conn.
type PingWriter interface {
	WriteNext(packet transport.Packet) error
}

// Server is a minigame server a Cluster knows about.
type Server struct {
	Name   ServerName
	Active bool
	Write  PingWriter
}

// SpawnRequester is how a Cluster asks its owner (the Brain) to start a
// fresh minigame server. It is satisfied by brain.Handle without either
// package importing the other, avoiding an import cycle between brain and
// cluster.
type SpawnRequester interface {
	RequestSpawn(minigameKind string)
}

// state is the S variable from spec.md §4.G: Idle, RecvPong(reply), or
// Starting(reply).
type stateKind int

const (
	stateIdle stateKind = iota
	stateRecvPong
	stateStarting
)

type clusterState struct {
	kind  stateKind
	reply chan<- ServerName
}

// Msg is the union of messages a Cluster actor accepts.
type Msg interface{ isClusterMsg() }

type MsgPushServer struct{ Server Server }
type MsgPopServer struct{ Name ServerName }
type MsgUpdateActive struct {
	Name   ServerName
	Active bool
}
type MsgQueueServer struct{ Reply chan<- ServerName }
type MsgServerPong struct {
	Timer int32
	Name  ServerName
}
type msgTimerCompleted struct{ timer int32 }

func (MsgPushServer) isClusterMsg()     {}
func (MsgPopServer) isClusterMsg()      {}
func (MsgUpdateActive) isClusterMsg()   {}
func (MsgQueueServer) isClusterMsg()    {}
func (MsgServerPong) isClusterMsg()     {}
func (msgTimerCompleted) isClusterMsg() {}

// Handle is the external, thread-safe handle to a running Cluster actor.
type Handle struct {
	kind string
	ch   chan Msg
}

// Start launches the Cluster goroutine for the given minigame kind and
// returns a handle to it. Clusters live forever once started (spec.md §9 —
// no GC).
func Start(kind string, toBrain SpawnRequester) *Handle {
	ch := make(chan Msg, 64)
	h := &Handle{kind: kind, ch: ch}
	go run(kind, toBrain, ch)
	return h
}

func (h *Handle) PushServer(s Server)      { h.ch <- MsgPushServer{Server: s} }
func (h *Handle) PopServer(name ServerName) { h.ch <- MsgPopServer{Name: name} }
func (h *Handle) UpdateActive(name ServerName, active bool) {
	h.ch <- MsgUpdateActive{Name: name, Active: active}
}
func (h *Handle) ServerPong(timer int32, name ServerName) {
	h.ch <- MsgServerPong{Timer: timer, Name: name}
}

// QueueServer submits a request to queue a player into this cluster's kind
// and returns a channel that will receive exactly one ServerName once the
// request resolves.
func (h *Handle) QueueServer() <-chan ServerName {
	reply := make(chan ServerName, 1)
	h.ch <- MsgQueueServer{Reply: reply}
	return reply
}

func run(kind string, toBrain SpawnRequester, ch chan Msg) {
	logger.Info("cluster %s: started", kind)

	var servers []Server
	state := clusterState{kind: stateIdle}
	var queueReqs []chan<- ServerName
	var timerNow int32

	for msg := range ch {
		switch m := msg.(type) {

		case MsgPushServer:
			servers = append(servers, m.Server)
			logger.Info("cluster %s: added server %s (now %d servers)", kind, m.Server.Name, len(servers))

			if state.kind == stateStarting {
				reply := state.reply
				state = clusterState{kind: stateIdle}
				reply <- ServerName(m.Server.Name)

				if len(queueReqs) > 0 {
					next := queueReqs[0]
					queueReqs = queueReqs[1:]
					ch <- MsgQueueServer{Reply: next}
				}
			}

		case MsgPopServer:
			idx := indexOfServer(servers, m.Name)
			if idx < 0 {
				logger.Warn("cluster %s: unable to find server %s to remove", kind, m.Name)
				continue
			}
			servers = append(servers[:idx], servers[idx+1:]...)
			logger.Info("cluster %s: removed server %s (now %d servers)", kind, m.Name, len(servers))

		case MsgUpdateActive:
			idx := indexOfServer(servers, m.Name)
			if idx < 0 {
				logger.Warn("cluster %s: unable to find server %s for UpdateActive", kind, m.Name)
				continue
			}
			servers[idx].Active = m.Active
			logger.Info("cluster %s: server %s active=%v", kind, m.Name, m.Active)

		case MsgQueueServer:
			if state.kind != stateIdle {
				queueReqs = append(queueReqs, m.Reply)
				continue
			}

			state = clusterState{kind: stateRecvPong, reply: m.Reply}

			for _, s := range servers {
				if !s.Active {
					continue
				}
				if err := s.Write.WriteNext(transport.Ping{Timer: timerNow}); err != nil {
					logger.Warn("cluster %s: couldn't send ping to %s: %v", kind, s.Name, err)
				}
			}

			timer := timerNow
			go func() {
				time.Sleep(pingTimeout)
				ch <- msgTimerCompleted{timer: timer}
			}()

		case MsgServerPong:
			if m.Timer != timerNow {
				logger.Trace("cluster %s: late ServerPong (timer=%d, now=%d)", kind, m.Timer, timerNow)
				continue
			}
			if state.kind != stateRecvPong {
				logger.Trace("cluster %s: late ServerPong, state drift", kind)
				continue
			}

			reply := state.reply
			state = clusterState{kind: stateIdle}
			timerNow++
			reply <- ServerName(m.Name)

			if len(queueReqs) > 0 {
				next := queueReqs[0]
				queueReqs = queueReqs[1:]
				ch <- MsgQueueServer{Reply: next}
			}

		case msgTimerCompleted:
			if m.timer != timerNow {
				logger.Trace("cluster %s: late TimerCompleted (timer=%d, now=%d)", kind, m.timer, timerNow)
				continue
			}
			if state.kind != stateRecvPong {
				logger.Warn("cluster %s: TimerCompleted received in unexpected state", kind)
				continue
			}

			state = clusterState{kind: stateStarting, reply: state.reply}
			timerNow++

			toBrain.RequestSpawn(kind)
		}
	}

	logger.Info("cluster %s: exiting", kind)
}

func indexOfServer(servers []Server, name ServerName) int {
	for i, s := range servers {
		if s.Name == name {
			return i
		}
	}
	return -1
}
