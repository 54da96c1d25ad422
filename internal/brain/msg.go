package brain

import (
	"github.com/ephemeral-minigames/controller/internal/cluster"
	"github.com/ephemeral-minigames/controller/internal/transport"
)

// Msg is the union of messages the Brain actor accepts — spec.md §4.H.
type Msg interface{ isBrainMsg() }

// MsgNewConn reports a freshly authenticated connection, transferring
// ownership of its write-half to the Brain.
type MsgNewConn struct {
	Conn  ConnectionInfo
	Write *transport.Writer
}

// MsgUnlink reports a session's termination.
type MsgUnlink struct {
	Conn ConnectionInfo
}

// MsgDispatch asks the Brain to ensure (and optionally queue a player
// into) a server of the given kind.
type MsgDispatch struct {
	Kind   transport.Kind
	Player *string
}

// MsgClusterForward relays a cluster.Msg to the Cluster owning minigameKind.
type MsgClusterForward struct {
	MinigameKind string
	Msg          cluster.Msg
}

// MsgSpawn asks the Brain to allocate a name and start a container of the
// given kind.
type MsgSpawn struct {
	Kind transport.Kind
}

// MsgTransport asks the Brain to instruct the proxy to move a player.
type MsgTransport struct {
	Player string
	Server string
}

func (MsgNewConn) isBrainMsg()        {}
func (MsgUnlink) isBrainMsg()         {}
func (MsgDispatch) isBrainMsg()       {}
func (MsgClusterForward) isBrainMsg() {}
func (MsgSpawn) isBrainMsg()          {}
func (MsgTransport) isBrainMsg()      {}
