package transport

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// KindTag distinguishes the four server kinds a connection can present.
type KindTag uint8

const (
	KindLimbo KindTag = iota
	KindProxy
	KindLobby
	KindMinigame
)

// Kind is the tagged-variant type from spec.md §3: Limbo, Proxy, Lobby, or
// Minigame{kind}. MinigameKind is only meaningful when Tag == KindMinigame.
type Kind struct {
	Tag          KindTag
	MinigameKind string
}

func Limbo() Kind                  { return Kind{Tag: KindLimbo} }
func Proxy() Kind                  { return Kind{Tag: KindProxy} }
func Lobby() Kind                  { return Kind{Tag: KindLobby} }
func Minigame(kind string) Kind    { return Kind{Tag: KindMinigame, MinigameKind: kind} }

// Priority returns the routing priority the proxy uses to pick which linked
// server wins: Lobby=2, Limbo=1, Minigame=0. Proxy has no priority — calling
// this on a Proxy kind is a programmer error.
func (k Kind) Priority() uint16 {
	switch k.Tag {
	case KindLobby:
		return 2
	case KindLimbo:
		return 1
	case KindMinigame:
		return 0
	default:
		panic("transport: Kind.Priority called on Proxy")
	}
}

// String renders the kind the way it appears in allocated server basenames
// ("minigame-bedwars", not just "minigame"), mirroring the Rust Display impl.
func (k Kind) String() string {
	switch k.Tag {
	case KindLimbo:
		return "limbo"
	case KindProxy:
		return "proxy"
	case KindLobby:
		return "lobby"
	case KindMinigame:
		return fmt.Sprintf("minigame-%s", k.MinigameKind)
	default:
		return "unknown"
	}
}

func (k Kind) tagName() string {
	switch k.Tag {
	case KindLimbo:
		return "Limbo"
	case KindProxy:
		return "Proxy"
	case KindLobby:
		return "Lobby"
	case KindMinigame:
		return "Minigame"
	default:
		return "Unknown"
	}
}

// EncodeMsgpack writes Kind as an internally tagged record: a two-entry map
// {"tag": <variant name>, "payload": <nil, or {"kind": ...} for Minigame>}.
// This mirrors the original implementation's
// #[serde(tag = "tag", content = "payload")] representation exactly, which
// compatibility with existing servers requires (spec.md §6).
func (k Kind) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := enc.EncodeString("tag"); err != nil {
		return err
	}
	if err := enc.EncodeString(k.tagName()); err != nil {
		return err
	}
	if err := enc.EncodeString("payload"); err != nil {
		return err
	}
	if k.Tag != KindMinigame {
		return enc.EncodeNil()
	}
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	if err := enc.EncodeString("kind"); err != nil {
		return err
	}
	return enc.EncodeString(k.MinigameKind)
}

// DecodeMsgpack reads the tag/payload envelope written by EncodeMsgpack.
func (k *Kind) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}

		switch key {
		case "tag":
			tag, err := dec.DecodeString()
			if err != nil {
				return err
			}
			switch tag {
			case "Limbo":
				k.Tag = KindLimbo
			case "Proxy":
				k.Tag = KindProxy
			case "Lobby":
				k.Tag = KindLobby
			case "Minigame":
				k.Tag = KindMinigame
			default:
				return fmt.Errorf("transport: unknown Kind tag %q", tag)
			}
		case "payload":
			if k.Tag != KindMinigame {
				if err := dec.DecodeNil(); err != nil {
					return err
				}
				continue
			}
			pn, err := dec.DecodeMapLen()
			if err != nil {
				return err
			}
			for j := 0; j < pn; j++ {
				pkey, err := dec.DecodeString()
				if err != nil {
					return err
				}
				if pkey == "kind" {
					if k.MinigameKind, err = dec.DecodeString(); err != nil {
						return err
					}
					continue
				}
				if err := dec.Skip(); err != nil {
					return err
				}
			}
		default:
			if err := dec.Skip(); err != nil {
				return err
			}
		}
	}

	return nil
}
