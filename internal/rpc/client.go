package rpc

import (
	"net"

	"github.com/nicolagi/scatterfs/internal/fault"
)

// Client is the core of a stub: an interface name and the address of
// the skeleton serving it. Clients are values; two clients are the
// same remote object exactly when interface and address match, no
// matter which transport they were created with.
type Client struct {
	iface     string
	address   string
	transport *Transport
}

func NewClient(iface, address string, t *Transport) Client {
	return Client{iface: iface, address: address, transport: t}
}

func (c Client) Iface() string         { return c.iface }
func (c Client) Address() string       { return c.address }
func (c Client) Transport() *Transport { return c.transport }

func (c Client) Equal(d Client) bool {
	return c.iface == d.iface && c.address == d.address
}

// Call performs one remote invocation: it encodes the request, ships
// it, and decodes the reply. encodeArgs may be nil for no-argument
// methods; decodeReply may be nil when only the error matters. An
// error reply is rebuilt with its original kind; transport trouble
// surfaces as a RemoteInvocation error.
func (c Client) Call(method string, encodeArgs func(*Encoder), decodeReply func(*Decoder) error) error {
	var enc Encoder
	enc.String(c.iface)
	enc.String(method)
	if encodeArgs != nil {
		encodeArgs(&enc)
	}
	reply, err := c.roundTrip(enc.Payload())
	if err != nil {
		return err
	}
	dec := NewDecoder(reply)
	if dec.Uint8() != 0 {
		kind := fault.FromByte(dec.Uint8())
		msg := dec.String()
		if err := dec.Err(); err != nil {
			return err
		}
		return &fault.Error{Kind: kind, Msg: msg}
	}
	if decodeReply != nil {
		if err := decodeReply(dec); err != nil {
			return err
		}
	}
	return dec.Err()
}

func (c Client) roundTrip(req []byte) ([]byte, error) {
	if skel := c.transport.lookup(c.address); skel != nil {
		return skel.invoke(req), nil
	}
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return nil, fault.E(fault.RemoteInvocation, "could not connect to %s: %v", c.address, err)
	}
	defer func() { _ = conn.Close() }()
	if err := writeFrame(conn, req); err != nil {
		return nil, err
	}
	return readFrame(conn)
}
