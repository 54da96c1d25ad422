package transport

import "fmt"

// Packet is the marker interface implemented by the eight wire variants
// named in spec.md §4.A.
type Packet interface {
	packetTag() string
}

// Authentication is the mandatory first packet on every connection. It
// identifies the connecting server and the port it listens on; the host
// half of the resulting address comes from the accepted socket instead
// (spec.md §3).
type Authentication struct {
	Name string `msgpack:"name"`
	Kind Kind   `msgpack:"kind"`
	IP   string `msgpack:"ip"`
}

// Request asks the controller to ensure (and optionally queue a player
// into) a server of the given kind.
type Request struct {
	Kind   Kind    `msgpack:"kind"`
	Player *string `msgpack:"player"`
}

// LinkServer tells the proxy a backend now exists and is reachable.
type LinkServer struct {
	Name     string `msgpack:"name"`
	Address  string `msgpack:"address"`
	Port     uint16 `msgpack:"port"`
	Priority uint16 `msgpack:"priority"`
}

// UnlinkServer tells the proxy a backend is gone.
type UnlinkServer struct {
	Name string `msgpack:"name"`
}

// TransportPlayer tells the proxy to move a player to another backend.
type TransportPlayer struct {
	Player string `msgpack:"player"`
	To     string `msgpack:"to"`
}

// Ping asks a minigame server whether it will accept players for the given
// queue epoch.
type Ping struct {
	Timer int32 `msgpack:"timer"`
}

// Pong is the minigame server's affirmative reply to a Ping.
type Pong struct {
	Timer int32 `msgpack:"timer"`
}

// UpdateActive lets a minigame server opt in or out of receiving Pings.
type UpdateActive struct {
	Active bool `msgpack:"active"`
}

func (Authentication) packetTag() string   { return "Authentication" }
func (Request) packetTag() string          { return "Request" }
func (LinkServer) packetTag() string       { return "LinkServer" }
func (UnlinkServer) packetTag() string     { return "UnlinkServer" }
func (TransportPlayer) packetTag() string  { return "TransportPlayer" }
func (Ping) packetTag() string             { return "Ping" }
func (Pong) packetTag() string             { return "Pong" }
func (UpdateActive) packetTag() string     { return "UpdateActive" }

// ErrUnknownVariant is returned by DecodePacket when a frame names a packet tag
// this controller does not recognize — spec.md §4.A requires this be a hard
// decode error, never a silent skip.
type ErrUnknownVariant struct {
	Tag string
}

func (e *ErrUnknownVariant) Error() string {
	return fmt.Sprintf("transport: unknown packet variant %q", e.Tag)
}
