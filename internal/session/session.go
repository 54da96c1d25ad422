// Package session implements the per-connection actor that turns one
// accepted, authenticated stream into a stream of brain.Msg values —
// spec.md §4.F. Adapted from the teacher's per-connection Client struct
// (proxy.go) and handle_client in client.rs: one goroutine per accepted
// connection, one send to the Brain on termination.
package session

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/ephemeral-minigames/controller/internal/brain"
	"github.com/ephemeral-minigames/controller/internal/cluster"
	"github.com/ephemeral-minigames/controller/internal/transport"
	"github.com/ephemeral-minigames/controller/pkg/logger"
)

// Brain is the slice of brain.Handle a session needs.
type Brain interface {
	NewConn(conn brain.ConnectionInfo, write *transport.Writer)
	Unlink(conn brain.ConnectionInfo)
	Dispatch(kind transport.Kind, player *string)
	ClusterForward(minigameKind string, msg cluster.Msg)
}

// ErrInitialAuth is returned when the first packet on a connection is not
// Authentication.
var ErrInitialAuth = errors.New("session: first packet was not Authentication")

// ErrSpuriousPacket is returned when a packet arrives that the current
// connection kind does not expect (including a second Authentication).
type ErrSpuriousPacket struct {
	Packet transport.Packet
}

func (e *ErrSpuriousPacket) Error() string {
	return fmt.Sprintf("session: spurious packet %#v", e.Packet)
}

// Handle reads one connection end-to-end: authenticate, translate packets
// into Brain messages, and, once NewConn has been sent, send exactly one
// Unlink on any termination. A connection that fails before NewConn (a read
// error, a non-Authentication first packet, or an unparsable port) returns
// without any Brain call.
// bufSize is passed through to the underlying transport.Reader/Writer (0
// for the bufio default).
func Handle(conn net.Conn, toBrain Brain, bufSize int) error {
	peerHost, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		peerHost = conn.RemoteAddr().String()
	}

	reader := transport.NewReader(conn, bufSize)
	writer := transport.NewConnWriter(conn, bufSize)

	packet, err := reader.ReadNext()
	if err != nil {
		return err
	}

	auth, ok := packet.(transport.Authentication)
	if !ok {
		return fmt.Errorf("%w: got %#v", ErrInitialAuth, packet)
	}

	info, err := connectionInfoFromAuth(peerHost, auth)
	if err != nil {
		return err
	}

	logger.Trace("%s: registering connection as %+v", peerHost, info)
	toBrain.NewConn(info, writer)

	logger.Info("%s: ready, listening for messages", peerHost)

	loopErr := readLoop(reader, info, toBrain)

	logger.Warn("%s: connection loop ended: %v", peerHost, loopErr)
	toBrain.Unlink(info)

	return loopErr
}

func connectionInfoFromAuth(peerHost string, auth transport.Authentication) (brain.ConnectionInfo, error) {
	portStr := auth.IP
	if idx := strings.LastIndex(auth.IP, ":"); idx >= 0 {
		portStr = auth.IP[idx+1:]
	}
	port, err := strconv.ParseUint(strings.TrimSpace(portStr), 10, 16)
	if err != nil {
		return brain.ConnectionInfo{}, fmt.Errorf("session: couldn't parse self-reported port from %q: %w", auth.IP, err)
	}

	return brain.ConnectionInfo{
		Name: auth.Name,
		Kind: auth.Kind,
		Host: peerHost,
		Port: uint16(port),
	}, nil
}

func readLoop(reader *transport.Reader, info brain.ConnectionInfo, toBrain Brain) error {
	for {
		packet, err := reader.ReadNext()
		if err != nil {
			return err
		}

		switch p := packet.(type) {
		case transport.Request:
			toBrain.Dispatch(p.Kind, p.Player)

		case transport.UpdateActive:
			if info.Kind.Tag != transport.KindMinigame {
				return &ErrSpuriousPacket{Packet: packet}
			}
			toBrain.ClusterForward(info.Kind.MinigameKind, cluster.MsgUpdateActive{
				Name:   cluster.ServerName(info.Name),
				Active: p.Active,
			})

		case transport.Pong:
			if info.Kind.Tag != transport.KindMinigame {
				return &ErrSpuriousPacket{Packet: packet}
			}
			toBrain.ClusterForward(info.Kind.MinigameKind, cluster.MsgServerPong{
				Timer: p.Timer,
				Name:  cluster.ServerName(info.Name),
			})

		default:
			return &ErrSpuriousPacket{Packet: packet}
		}
	}
}
