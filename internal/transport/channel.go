// Package transport implements the controller's wire protocol: the eight
// Packet variants (codec.go, packet.go, kind.go) framed as
// u32be-length-prefixed MessagePack records (this file).
package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const maxFrameBytes = 16 << 20 // sanity bound against a corrupt length prefix

// TransportError wraps a read/write failure on the underlying stream,
// kept distinct from CodecError per spec.md §4.B / §7.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// CodecError wraps an encode/decode failure, kept distinct from
// TransportError per spec.md §4.B / §7.
type CodecError struct{ Err error }

func (e *CodecError) Error() string { return fmt.Sprintf("codec: %v", e.Err) }
func (e *CodecError) Unwrap() error { return e.Err }

// Reader yields one Packet at a time from a framed byte stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps conn's read side with a buffer of bufSize bytes (0 means
// the bufio default).
func NewReader(conn io.Reader, bufSize int) *Reader {
	if bufSize <= 0 {
		return &Reader{r: bufio.NewReader(conn)}
	}
	return &Reader{r: bufio.NewReaderSize(conn, bufSize)}
}

// ReadNext reads the 4-byte big-endian length prefix, then exactly that
// many bytes, and decodes one Packet.
func (r *Reader) ReadNext() (Packet, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.r, lenBuf[:]); err != nil {
		return nil, &TransportError{Err: err}
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameBytes {
		return nil, &TransportError{Err: fmt.Errorf("frame length %d exceeds maximum %d", n, maxFrameBytes)}
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, &TransportError{Err: err}
	}

	packet, err := DecodePacket(payload)
	if err != nil {
		return nil, &CodecError{Err: err}
	}
	return packet, nil
}

// Writer serializes and flushes one Packet at a time onto a framed byte
// stream.
type Writer struct {
	w      *bufio.Writer
	closer io.Closer
	addr   string
}

// NewWriter wraps conn's write side with a buffer of bufSize bytes (0 means
// the bufio default). addr is retained only for diagnostics. If conn also
// implements io.Closer, Shutdown closes it.
func NewWriter(conn io.Writer, bufSize int, addr string) *Writer {
	closer, _ := conn.(io.Closer)

	if bufSize <= 0 {
		return &Writer{w: bufio.NewWriter(conn), closer: closer, addr: addr}
	}
	return &Writer{w: bufio.NewWriterSize(conn, bufSize), closer: closer, addr: addr}
}

// NewConnWriter is a convenience for wrapping a net.Conn, deriving the
// diagnostic address from the connection's remote address.
func NewConnWriter(conn net.Conn, bufSize int) *Writer {
	addr := ""
	if conn.RemoteAddr() != nil {
		addr = conn.RemoteAddr().String()
	}
	return NewWriter(conn, bufSize, addr)
}

// Addr returns the peer address this writer was created for (diagnostics
// only).
func (w *Writer) Addr() string { return w.addr }

// WriteNext encodes and frames packet, then flushes before returning.
// Flushing here is required: downstream logic (the Brain) depends on the
// proxy having observed a Link/Unlink before any subsequent Transport that
// references the same server.
func (w *Writer) WriteNext(packet Packet) error {
	bytes, err := EncodePacket(packet)
	if err != nil {
		return &CodecError{Err: err}
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(bytes)))

	if _, err := w.w.Write(lenBuf[:]); err != nil {
		return &TransportError{Err: err}
	}
	if _, err := w.w.Write(bytes); err != nil {
		return &TransportError{Err: err}
	}
	if err := w.w.Flush(); err != nil {
		return &TransportError{Err: err}
	}

	return nil
}

// Shutdown closes the underlying connection (both directions), if it
// implements io.Closer; otherwise it does nothing.
func (w *Writer) Shutdown() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
