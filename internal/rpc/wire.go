package rpc

import (
	"io"

	"github.com/nicolagi/scatterfs/internal/fault"
)

// Each request and each reply travels as one frame: a 32-bit
// little-endian payload length followed by the payload. The payload
// encoding is built from the primitives below; strings carry a 16-bit
// length, byte arrays a 32-bit length with a distinguished value for
// nil, so a missing argument survives the round trip.

const (
	// An over-generous bound; a frame larger than this is a protocol
	// violation, not a big file (file data moves in write/read chunks
	// well below it).
	maxFrameSize = 64 * 1024 * 1024

	nilBytesLen = ^uint32(0)
)

func writeFrame(w io.Writer, payload []byte) error {
	head := make([]byte, 4)
	pint32(uint32(len(payload)), head)
	if _, err := w.Write(head); err != nil {
		return fault.E(fault.RemoteInvocation, "could not write frame header: %v", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fault.E(fault.RemoteInvocation, "could not write frame payload: %v", err)
	}
	return nil
}

func readFrame(r io.Reader) ([]byte, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fault.E(fault.RemoteInvocation, "could not read frame header: %v", err)
	}
	n, _ := gint32(head)
	if n > maxFrameSize {
		return nil, fault.E(fault.RemoteInvocation, "frame of %d bytes exceeds the maximum of %d", n, maxFrameSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fault.E(fault.RemoteInvocation, "could not read frame payload: %v", err)
	}
	return payload, nil
}

// Encoder appends primitive values to a growing buffer.
type Encoder struct {
	buf []byte
}

func (e *Encoder) grow(n int) []byte {
	off := len(e.buf)
	e.buf = append(e.buf, make([]byte, n)...)
	return e.buf[off:]
}

func (e *Encoder) Uint8(v uint8)   { pint8(v, e.grow(1)) }
func (e *Encoder) Uint32(v uint32) { pint32(v, e.grow(4)) }
func (e *Encoder) Uint64(v uint64) { pint64(v, e.grow(8)) }
func (e *Encoder) Int32(v int32)   { e.Uint32(uint32(v)) }
func (e *Encoder) Int64(v int64)   { e.Uint64(uint64(v)) }

func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint8(1)
	} else {
		e.Uint8(0)
	}
}

func (e *Encoder) String(s string) {
	pint16(uint16(len(s)), e.grow(2))
	copy(e.grow(len(s)), s)
}

// Bytes encodes a byte array, distinguishing nil from empty.
func (e *Encoder) Bytes(b []byte) {
	if b == nil {
		e.Uint32(nilBytesLen)
		return
	}
	e.Uint32(uint32(len(b)))
	copy(e.grow(len(b)), b)
}

func (e *Encoder) Payload() []byte { return e.buf }

// Decoder consumes a payload. The first short read latches an error;
// subsequent reads return zero values, and the caller checks Err once
// at the end instead of after every field.
type Decoder struct {
	buf []byte
	err error
}

func NewDecoder(payload []byte) *Decoder {
	return &Decoder{buf: payload}
}

func (d *Decoder) fail() {
	if d.err == nil {
		d.err = fault.E(fault.RemoteInvocation, "truncated message")
	}
}

func (d *Decoder) Uint8() uint8 {
	if d.err != nil || len(d.buf) < 1 {
		d.fail()
		return 0
	}
	var v uint8
	v, d.buf = gint8(d.buf)
	return v
}

func (d *Decoder) Uint32() uint32 {
	if d.err != nil || len(d.buf) < 4 {
		d.fail()
		return 0
	}
	var v uint32
	v, d.buf = gint32(d.buf)
	return v
}

func (d *Decoder) Uint64() uint64 {
	if d.err != nil || len(d.buf) < 8 {
		d.fail()
		return 0
	}
	var v uint64
	v, d.buf = gint64(d.buf)
	return v
}

func (d *Decoder) Int32() int32 { return int32(d.Uint32()) }
func (d *Decoder) Int64() int64 { return int64(d.Uint64()) }

func (d *Decoder) Bool() bool { return d.Uint8() != 0 }

func (d *Decoder) String() string {
	if d.err != nil || len(d.buf) < 2 {
		d.fail()
		return ""
	}
	var n uint16
	n, d.buf = gint16(d.buf)
	if len(d.buf) < int(n) {
		d.fail()
		return ""
	}
	s := string(d.buf[:n])
	d.buf = d.buf[n:]
	return s
}

func (d *Decoder) Bytes() []byte {
	n := d.Uint32()
	if d.err != nil {
		return nil
	}
	if n == nilBytesLen {
		return nil
	}
	if uint32(len(d.buf)) < n {
		d.fail()
		return nil
	}
	b := make([]byte, n)
	copy(b, d.buf[:n])
	d.buf = d.buf[n:]
	return b
}

func (d *Decoder) Err() error { return d.err }
