package rpc

import (
	"fmt"
	"net"
	"sync"

	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/netutil"
	log "github.com/sirupsen/logrus"
)

// Handler dispatches one decoded invocation against the local
// implementation object. The method's results go into enc; an error
// return travels back to the caller with its fault kind. Handlers are
// entered concurrently, one goroutine per accepted connection, so the
// implementation object owns its synchronization.
type Handler interface {
	Dispatch(method string, dec *Decoder, enc *Encoder) error
}

// Skeleton makes a local implementation reachable over the network: it
// owns a listening socket, accepts connections, decodes invocations,
// runs them through the handler, and writes results or errors back.
type Skeleton struct {
	iface     string
	handler   Handler
	transport *Transport

	// Hooks. ListenError returns whether to keep accepting; the
	// default (nil) stops the server. ServiceError is advisory.
	// Stopped fires exactly once per run, with the terminating cause
	// or nil for a clean stop.
	ListenError  func(error) bool
	ServiceError func(error)
	Stopped      func(error)

	mu       sync.Mutex
	host     string
	port     int
	addr     string
	listener net.Listener
	running  bool
	stopping bool

	wg sync.WaitGroup // accept loop plus in-flight connections
}

// NewSkeleton binds an interface name to the handler that serves it.
// The handler is the compile-time counterpart of the interface: each
// of its methods can signal a remote-invocation failure because each
// returns error.
func NewSkeleton(iface string, h Handler, opts ...SkeletonOption) (*Skeleton, error) {
	if iface == "" {
		return nil, fault.E(fault.NullArgument, "empty interface name")
	}
	if h == nil {
		return nil, fault.E(fault.NullArgument, "nil handler for %q", iface)
	}
	s := &Skeleton{iface: iface, handler: h}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

type SkeletonOption func(*Skeleton)

// WithTransport makes the skeleton reachable in-process through t once
// started.
func WithTransport(t *Transport) SkeletonOption {
	return func(s *Skeleton) { s.transport = t }
}

// WithAddress fixes the listen address at construction. Equivalent to
// SetAddress before Start.
func WithAddress(host string, port int) SkeletonOption {
	return func(s *Skeleton) { s.host, s.port = host, port }
}

// SetAddress configures where to listen. Only valid before Start. A
// zero port means a port from the process-wide counter.
func (s *Skeleton) SetAddress(host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fault.E(fault.IllegalState, "%s: cannot set address while running", s.iface)
	}
	s.host, s.port = host, port
	return nil
}

func (s *Skeleton) Iface() string { return s.iface }

// Addr returns the bound address, or the configured one if the
// skeleton has not started yet. Empty if neither is known.
func (s *Skeleton) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != "" {
		return s.addr
	}
	if s.port != 0 {
		return net.JoinHostPort(s.host, fmt.Sprint(s.port))
	}
	return ""
}

func (s *Skeleton) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start binds the listening socket and spawns the accept loop,
// returning immediately.
func (s *Skeleton) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fault.E(fault.IllegalState, "%s: already running", s.iface)
	}
	port := s.port
	if port == 0 {
		port = nextPort()
	}
	listener, err := netutil.Listen("tcp", net.JoinHostPort(s.host, fmt.Sprint(port)))
	if err != nil {
		return fault.E(fault.IO, "%s: could not listen: %v", s.iface, err)
	}
	s.listener = listener
	s.addr = advertised(s.host, listener.Addr())
	s.running = true
	s.stopping = false
	s.transport.register(s.addr, s)
	s.wg.Add(1)
	go s.acceptLoop(listener)
	return nil
}

// advertised derives the address stubs should dial. When the skeleton
// was bound to all interfaces the listener's own address is not
// dialable, so fall back to loopback; callers that need an externally
// routable name override the host when building the stub.
func advertised(host string, bound net.Addr) string {
	_, port, err := net.SplitHostPort(bound.String())
	if err != nil {
		return bound.String()
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func (s *Skeleton) acceptLoop(listener net.Listener) {
	defer s.wg.Done()
	var cause error
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closing() {
				break
			}
			if s.ListenError != nil && s.ListenError(err) {
				continue
			}
			cause = err
			break
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
	s.finish(cause)
}

func (s *Skeleton) closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *Skeleton) finish(cause error) {
	s.mu.Lock()
	_ = s.listener.Close()
	s.transport.unregister(s.addr, s)
	s.running = false
	s.addr = ""
	s.listener = nil
	stopped := s.Stopped
	s.mu.Unlock()
	if cause != nil {
		log.WithFields(log.Fields{
			"iface": s.iface,
			"cause": cause,
		}).Error("Skeleton stopped")
	}
	if stopped != nil {
		stopped(cause)
	}
}

// Stop closes the listener and waits for in-flight invocations to
// drain. The skeleton can be started again afterwards.
func (s *Skeleton) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	listener := s.listener
	s.mu.Unlock()
	_ = listener.Close()
	s.wg.Wait()
}

func (s *Skeleton) serveConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	req, err := readFrame(conn)
	if err != nil {
		if s.ServiceError != nil {
			s.ServiceError(err)
		}
		return
	}
	reply := s.invoke(req)
	if err := writeFrame(conn, reply); err != nil {
		if s.ServiceError != nil {
			s.ServiceError(err)
		}
	}
}

// invoke runs one encoded request to completion and returns the
// encoded reply. It is the single entry point for both the socket and
// the in-process paths.
func (s *Skeleton) invoke(req []byte) []byte {
	dec := NewDecoder(req)
	iface := dec.String()
	method := dec.String()
	if err := dec.Err(); err != nil {
		return errorReply(err)
	}
	if iface != s.iface {
		return errorReply(fault.E(fault.RemoteInvocation, "interface mismatch: got %q, serving %q", iface, s.iface))
	}
	var enc Encoder
	enc.Uint8(0)
	err := s.dispatch(method, dec, &enc)
	if err == nil {
		err = dec.Err()
	}
	if err != nil {
		if s.ServiceError != nil {
			s.ServiceError(err)
		}
		return errorReply(err)
	}
	return enc.Payload()
}

func (s *Skeleton) dispatch(method string, dec *Decoder, enc *Encoder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault.E(fault.RemoteInvocation, "%s.%s panicked: %v", s.iface, method, r)
		}
	}()
	return s.handler.Dispatch(method, dec, enc)
}

func errorReply(err error) []byte {
	kind := fault.KindOf(err)
	if kind == fault.Unknown {
		kind = fault.RemoteInvocation
	}
	var enc Encoder
	enc.Uint8(1)
	enc.Uint8(uint8(kind))
	enc.String(err.Error())
	return enc.Payload()
}
