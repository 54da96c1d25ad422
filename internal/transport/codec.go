package transport

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodePacket serializes p as a self-describing record: a single-entry map
// whose key is the packet's variant name and whose value is p's fields
// encoded as a map (field name -> value), matching the original
// implementation's externally tagged, struct-map MessagePack encoding.
func EncodePacket(p Packet) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeMapLen(1); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(p.packetTag()); err != nil {
		return nil, err
	}
	if err := enc.Encode(p); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodePacket parses bytes written by EncodePacket back into the concrete
// Packet variant. An unrecognized tag is a hard error
// (*ErrUnknownVariant), never a silent skip.
func DecodePacket(data []byte) (Packet, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))

	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, &ErrUnknownVariant{Tag: "<malformed envelope>"}
	}

	tag, err := dec.DecodeString()
	if err != nil {
		return nil, err
	}

	switch tag {
	case "Authentication":
		var p Authentication
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case "Request":
		var p Request
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case "LinkServer":
		var p LinkServer
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case "UnlinkServer":
		var p UnlinkServer
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case "TransportPlayer":
		var p TransportPlayer
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case "Ping":
		var p Ping
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case "Pong":
		var p Pong
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case "UpdateActive":
		var p UpdateActive
		if err := dec.Decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, &ErrUnknownVariant{Tag: tag}
	}
}
