// Package storage implements the storage server: the holder of file
// bytes under a local root. It serves the data interface to clients
// and the command interface to the naming server, and at startup runs
// the registration protocol: announce the local manifest, honour the
// returned eviction list, prune directories left empty.
package storage

import (
	"sync"

	"github.com/nicolagi/scatterfs/internal/backend"
	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
	"github.com/nicolagi/scatterfs/internal/remote"
	"github.com/nicolagi/scatterfs/internal/rpc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Server serves one backend over two skeletons. All data and control
// operations serialize on one monitor: reads are serialized against
// writes, creates and deletes on the same server. A correctness-over-
// throughput choice.
type Server struct {
	mu sync.Mutex
	b  backend.Backend

	data      *rpc.Skeleton
	command   *rpc.Skeleton
	transport *rpc.Transport
}

var (
	_ remote.Storage = (*Server)(nil)
	_ remote.Command = (*Server)(nil)
)

type Option func(*options)

type options struct {
	host        string
	dataPort    int
	commandPort int
	transport   *rpc.Transport
}

// WithHost sets the host both skeletons bind. The hostname passed to
// Start, not this, is what gets advertised to the naming server.
func WithHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithPorts fixes the two skeleton ports. Zero means a port from the
// process-wide counter.
func WithPorts(data, command int) Option {
	return func(o *options) { o.dataPort, o.commandPort = data, command }
}

// WithTransport makes the server reachable in-process through t.
func WithTransport(t *rpc.Transport) Option {
	return func(o *options) { o.transport = t }
}

func NewServer(b backend.Backend, opts ...Option) (*Server, error) {
	if b == nil {
		return nil, fault.E(fault.NullArgument, "nil backend")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{b: b}
	var err error
	s.data, err = remote.NewStorageSkeleton(s,
		rpc.WithAddress(o.host, o.dataPort), rpc.WithTransport(o.transport))
	if err != nil {
		return nil, err
	}
	s.command, err = remote.NewCommandSkeleton(s,
		rpc.WithAddress(o.host, o.commandPort), rpc.WithTransport(o.transport))
	if err != nil {
		return nil, err
	}
	s.transport = o.transport
	return s, nil
}

// Start brings the server up and registers it with the naming server:
// start both skeletons advertising hostname, enumerate the local
// tree, register the manifest, delete whatever the naming server
// evicted, and prune directories the evictions emptied. After Start
// returns the local tree holds exactly the paths the naming tree also
// holds for this server.
func (s *Server) Start(hostname string, reg remote.RegistrationStub) error {
	if err := s.data.Start(); err != nil {
		return err
	}
	if err := s.command.Start(); err != nil {
		s.data.Stop()
		return err
	}
	storageStub, err := remote.StorageStubWithHost(s.data, hostname, s.transport)
	if err != nil {
		s.Stop()
		return err
	}
	commandStub, err := remote.CommandStubWithHost(s.command, hostname, s.transport)
	if err != nil {
		s.Stop()
		return err
	}
	files, err := s.b.List()
	if err != nil {
		s.Stop()
		return err
	}
	if files == nil {
		files = []fspath.Path{}
	}
	evict, err := reg.Register(storageStub, commandStub, files)
	if err != nil {
		s.Stop()
		return err
	}
	var group errgroup.Group
	for _, p := range evict {
		p := p
		group.Go(func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, err := s.b.Delete(p); err != nil {
				return err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.Stop()
		return err
	}
	s.mu.Lock()
	err = s.b.PruneEmptyDirs()
	s.mu.Unlock()
	if err != nil {
		s.Stop()
		return err
	}
	log.WithFields(log.Fields{
		"storage": storageStub.Addr(),
		"command": commandStub.Addr(),
		"files":   len(files),
		"evicted": len(evict),
	}).Info("Storage server started")
	return nil
}

// Stop stops both skeletons; in-flight operations drain first.
func (s *Server) Stop() {
	s.command.Stop()
	s.data.Stop()
}

// DataAddr returns the bound address of the data interface.
func (s *Server) DataAddr() string { return s.data.Addr() }

// CommandAddr returns the bound address of the command interface.
func (s *Server) CommandAddr() string { return s.command.Addr() }

func (s *Server) Size(p fspath.Path) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Size(p)
}

func (s *Server) Read(p fspath.Path, offset int64, length int32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.ReadAt(p, offset, length)
}

func (s *Server) Write(p fspath.Path, offset int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.WriteAt(p, offset, data)
}

func (s *Server) Create(p fspath.Path) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Create(p)
}

func (s *Server) Delete(p fspath.Path) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Delete(p)
}
