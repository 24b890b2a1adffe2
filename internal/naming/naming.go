// Package naming implements the naming server: the authoritative
// holder of the directory tree and of the mapping from files to the
// storage servers holding their bytes. It serves two interfaces on
// well-known ports, the service interface for filesystem clients and
// the registration interface for storage servers; both are bound to
// the same instance, so registration state and service reads share one
// tree.
package naming

import (
	"sync"

	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
	"github.com/nicolagi/scatterfs/internal/remote"
	"github.com/nicolagi/scatterfs/internal/rpc"
	log "github.com/sirupsen/logrus"
)

// Well-known ports for the naming server's two interfaces. Clients and
// storage servers connect to these without discovery.
const (
	ServicePort      = 6000
	RegistrationPort = 6001
)

type pair struct {
	storage remote.StorageStub
	command remote.CommandStub
}

// Server owns the directory tree and the set of registered storage
// servers. One monitor guards both, so every operation's tree mutation
// is atomic; a concurrent create and delete on the same parent can
// only interleave at whole-operation boundaries.
type Server struct {
	mu      sync.Mutex
	tree    *tree
	servers []pair
	next    int // round-robin cursor over servers

	service      *rpc.Skeleton
	registration *rpc.Skeleton
}

var (
	_ remote.Service      = (*Server)(nil)
	_ remote.Registration = (*Server)(nil)
)

type Option func(*options)

type options struct {
	host             string
	servicePort      int
	registrationPort int
	transport        *rpc.Transport
}

// WithHost sets the host the skeletons bind and advertise. Empty binds
// all interfaces.
func WithHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithPorts overrides the well-known ports, for tests that run several
// naming servers in one process.
func WithPorts(service, registration int) Option {
	return func(o *options) { o.servicePort, o.registrationPort = service, registration }
}

// WithTransport makes the server reachable in-process through t.
func WithTransport(t *rpc.Transport) Option {
	return func(o *options) { o.transport = t }
}

// NewServer builds a naming server with an empty tree and both
// skeletons configured but not started.
func NewServer(opts ...Option) (*Server, error) {
	o := options{servicePort: ServicePort, registrationPort: RegistrationPort}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{tree: newTree()}
	var err error
	s.service, err = remote.NewServiceSkeleton(s,
		rpc.WithAddress(o.host, o.servicePort), rpc.WithTransport(o.transport))
	if err != nil {
		return nil, err
	}
	s.registration, err = remote.NewRegistrationSkeleton(s, o.transport,
		rpc.WithAddress(o.host, o.registrationPort), rpc.WithTransport(o.transport))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start starts both skeletons. If the second one cannot start, the
// first is stopped again so Start is all or nothing.
func (s *Server) Start() error {
	if err := s.service.Start(); err != nil {
		return err
	}
	if err := s.registration.Start(); err != nil {
		s.service.Stop()
		return err
	}
	log.WithFields(log.Fields{
		"service":      s.service.Addr(),
		"registration": s.registration.Addr(),
	}).Info("Naming server started")
	return nil
}

// Stop stops both skeletons; in-flight operations drain first. The
// tree lives only in this Server value: a later Start of the same
// value serves the same namespace, and a new Server starts empty.
func (s *Server) Stop() {
	s.registration.Stop()
	s.service.Stop()
}

// ServiceAddr returns the bound address of the service interface.
func (s *Server) ServiceAddr() string { return s.service.Addr() }

// RegistrationAddr returns the bound address of the registration
// interface.
func (s *Server) RegistrationAddr() string { return s.registration.Addr() }

func (s *Server) IsDirectory(p fspath.Path) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.tree.lookup(p)
	if n == nil {
		return false, fault.E(fault.NotFound, "%s: no such path", p)
	}
	return n.isDir(), nil
}

func (s *Server) List(dir fspath.Path) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.tree.lookup(dir)
	if n == nil {
		return nil, fault.E(fault.NotFound, "%s: no such path", dir)
	}
	if !n.isDir() {
		return nil, fault.E(fault.NotFound, "%s: not a directory", dir)
	}
	return s.tree.names(n), nil
}

// CreateFile adds a file node at p, placing its bytes on one of the
// registered storage servers, chosen round-robin in registration
// order.
func (s *Server) CreateFile(p fspath.Path) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.IsRoot() {
		return false, nil
	}
	parent, err := s.tree.lookupParent(p)
	if err != nil {
		return false, err
	}
	last, err := p.Last()
	if err != nil {
		return false, err
	}
	if _, ok := parent.children[last]; ok {
		return false, nil
	}
	if len(s.servers) == 0 {
		return false, fault.E(fault.IllegalState, "no storage servers registered")
	}
	chosen := s.servers[s.next%len(s.servers)]
	s.next++
	if _, err := chosen.command.Create(p); err != nil {
		return false, err
	}
	s.tree.add(parent, newFile(last, chosen.storage, chosen.command))
	log.WithFields(log.Fields{
		"path":    p,
		"storage": chosen.storage.Addr(),
	}).Info("Created file")
	return true, nil
}

func (s *Server) CreateDirectory(p fspath.Path) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.IsRoot() {
		return false, nil
	}
	parent, err := s.tree.lookupParent(p)
	if err != nil {
		return false, err
	}
	last, err := p.Last()
	if err != nil {
		return false, err
	}
	return s.tree.add(parent, newDir(last)), nil
}

// Delete removes the subtree at p. Every storage server holding a
// descendant file is told to delete p; the tree entry goes away only
// if all of them succeed, and a storage-side failure surfaces as a
// false return.
func (s *Server) Delete(p fspath.Path) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.IsRoot() {
		return false, nil
	}
	n := s.tree.lookup(p)
	if n == nil {
		return false, fault.E(fault.NotFound, "%s: no such path", p)
	}
	commands := make(map[string]remote.CommandStub)
	commandsUnder(n, commands)
	ok := true
	for addr, command := range commands {
		deleted, err := command.Delete(p)
		if err != nil {
			log.WithFields(log.Fields{
				"path":    p,
				"command": addr,
				"cause":   err,
			}).Error("Storage server failed to delete")
			ok = false
		} else if !deleted {
			ok = false
		}
	}
	if !ok {
		return false, nil
	}
	return s.tree.remove(p), nil
}

func (s *Server) GetStorage(p fspath.Path) (remote.StorageStub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.tree.lookup(p)
	if n == nil {
		return remote.StorageStub{}, fault.E(fault.NotFound, "%s: no such path", p)
	}
	if n.isDir() {
		return remote.StorageStub{}, fault.E(fault.NotFound, "%s: is a directory", p)
	}
	return n.storage, nil
}

// Register adds a storage server and ingests its manifest. The
// returned list holds the manifest paths the naming server already
// knew; the registering server must delete those locally. Duplicate
// registration of either stub is an error.
func (s *Server) Register(storage remote.StorageStub, command remote.CommandStub, files []fspath.Path) ([]fspath.Path, error) {
	if files == nil {
		return nil, fault.E(fault.NullArgument, "missing file manifest")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, registered := range s.servers {
		if registered.storage.Equal(storage) || registered.command.Equal(command) {
			return nil, fault.E(fault.IllegalState, "%s: already registered", storage.Addr())
		}
	}
	s.servers = append(s.servers, pair{storage: storage, command: command})
	evict := []fspath.Path{}
	for _, p := range files {
		if p.IsRoot() {
			// The root is a directory by definition; it cannot be a
			// file anywhere and is not a duplicate either.
			continue
		}
		if conflict := s.tree.ingest(p, storage, command); conflict {
			evict = append(evict, p)
		}
	}
	log.WithFields(log.Fields{
		"storage": storage.Addr(),
		"command": command.Addr(),
		"files":   len(files),
		"evicted": len(evict),
	}).Info("Registered storage server")
	return evict, nil
}
