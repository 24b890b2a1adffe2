package rpc

import (
	"sync"
	"sync/atomic"
)

// Transport is the optional in-process fast path. A skeleton started
// with a transport registers its bound address in it; a client built
// over the same transport dispatches invocations for that address
// through memory instead of a socket. Both payloads are still encoded
// and decoded, so the semantics (including stub serialization) are
// exactly those of the socket path.
//
// There is deliberately no package-level default: whoever wires a
// process decides which skeletons and clients share one.
type Transport struct {
	mu    sync.Mutex
	local map[string]*Skeleton
}

func NewTransport() *Transport {
	return &Transport{local: make(map[string]*Skeleton)}
}

func (t *Transport) register(addr string, s *Skeleton) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.local[addr] = s
	t.mu.Unlock()
}

func (t *Transport) unregister(addr string, s *Skeleton) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.local[addr] == s {
		delete(t.local, addr)
	}
	t.mu.Unlock()
}

// Serves reports whether a running skeleton is registered for addr,
// i.e. whether a client over this transport would take the in-process
// path for it.
func (t *Transport) Serves(addr string) bool {
	return t.lookup(addr) != nil
}

func (t *Transport) lookup(addr string) *Skeleton {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	s := t.local[addr]
	t.mu.Unlock()
	return s
}

// Skeletons constructed without an address draw their port from a
// process-wide monotonic counter; the first port handed out is 7000.
var portCounter uint32 = 6999

func nextPort() int {
	return int(atomic.AddUint32(&portCounter, 1))
}
