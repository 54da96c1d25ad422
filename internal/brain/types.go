package brain

import "github.com/ephemeral-minigames/controller/internal/transport"

// ConnectionInfo identifies one connected server: the name it authenticated
// with, its Kind, and the address the proxy should dial to reach it. Host
// comes from the accepted socket's peer address; Port is self-reported in
// the Authentication frame (spec.md §3).
type ConnectionInfo struct {
	Name string
	Kind transport.Kind
	Host string
	Port uint16
}
