package remote

import (
	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
	"github.com/nicolagi/scatterfs/internal/rpc"
)

// Paths travel as their canonical string form; an empty string is the
// wire's way of saying the argument was missing.

func encodePath(enc *rpc.Encoder, p fspath.Path) {
	enc.String(p.String())
}

func decodePath(dec *rpc.Decoder) (fspath.Path, error) {
	s := dec.String()
	if err := dec.Err(); err != nil {
		return "", err
	}
	if s == "" {
		return "", fault.E(fault.NullArgument, "missing path argument")
	}
	return fspath.New(s)
}

// Path lists use a 32-bit count with the all-ones value meaning nil,
// so a nil manifest is distinguishable from an empty one.

const nilListLen = ^uint32(0)

func encodePaths(enc *rpc.Encoder, paths []fspath.Path) {
	if paths == nil {
		enc.Uint32(nilListLen)
		return
	}
	enc.Uint32(uint32(len(paths)))
	for _, p := range paths {
		encodePath(enc, p)
	}
}

func decodePaths(dec *rpc.Decoder) ([]fspath.Path, error) {
	n := dec.Uint32()
	if err := dec.Err(); err != nil {
		return nil, err
	}
	if n == nilListLen {
		return nil, nil
	}
	paths := make([]fspath.Path, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := decodePath(dec)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Stubs travel as their target address; the interface is implied by
// the argument or result position. An empty address is a missing stub.

func encodeStubAddr(enc *rpc.Encoder, addr string) {
	enc.String(addr)
}

func decodeStubAddr(dec *rpc.Decoder, what string) (string, error) {
	addr := dec.String()
	if err := dec.Err(); err != nil {
		return "", err
	}
	if addr == "" {
		return "", fault.E(fault.NullArgument, "missing %s stub", what)
	}
	return addr, nil
}
