package remote

import (
	"net"
	"time"

	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
	"github.com/nicolagi/scatterfs/internal/netutil"
	"github.com/nicolagi/scatterfs/internal/rpc"
)

const probeTimeout = 2 * time.Second

// Stub factories come in three shapes, mirroring the three bootstrap
// situations: a raw address (all a client knows about the naming
// server), a skeleton in the same process (the storage server building
// stubs over its own skeletons), and a skeleton plus an override
// hostname (when the skeleton's self-determined address is not
// externally routable).

func clientFromSkeleton(iface string, skel *rpc.Skeleton, t *rpc.Transport) (rpc.Client, error) {
	var zero rpc.Client
	if skel == nil {
		return zero, fault.E(fault.NullArgument, "nil skeleton")
	}
	if skel.Iface() != iface {
		return zero, fault.E(fault.InvalidArgument, "skeleton serves %q, stub wants %q", skel.Iface(), iface)
	}
	addr := skel.Addr()
	if addr == "" {
		return zero, fault.E(fault.IllegalState, "%s: skeleton has no address and is not running", iface)
	}
	c := rpc.NewClient(iface, addr, t)
	if t.Serves(addr) {
		return c, nil
	}
	if err := netutil.WaitForListener(addr, probeTimeout); err != nil {
		return zero, fault.E(fault.RemoteInvocation, "%s: skeleton at %s not reachable: %v", iface, addr, err)
	}
	return c, nil
}

func clientWithHost(iface string, skel *rpc.Skeleton, hostname string, t *rpc.Transport) (rpc.Client, error) {
	var zero rpc.Client
	if skel == nil {
		return zero, fault.E(fault.NullArgument, "nil skeleton")
	}
	if hostname == "" {
		return zero, fault.E(fault.NullArgument, "empty hostname")
	}
	addr := skel.Addr()
	if addr == "" {
		return zero, fault.E(fault.IllegalState, "%s: skeleton has no address and is not running", iface)
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return zero, fault.E(fault.IllegalState, "%s: malformed skeleton address %q: %v", iface, addr, err)
	}
	return rpc.NewClient(iface, net.JoinHostPort(hostname, port), t), nil
}

// StorageStub forwards Storage calls to a remote skeleton. Stubs are
// values: comparable, serializable, and reusable by whoever receives
// one in a reply.
type StorageStub struct {
	client rpc.Client
}

var _ Storage = StorageStub{}

func NewStorageStub(address string, t *rpc.Transport) StorageStub {
	return StorageStub{client: rpc.NewClient(IfaceStorage, address, t)}
}

func StorageStubFromSkeleton(skel *rpc.Skeleton, t *rpc.Transport) (StorageStub, error) {
	c, err := clientFromSkeleton(IfaceStorage, skel, t)
	if err != nil {
		return StorageStub{}, err
	}
	return StorageStub{client: c}, nil
}

func StorageStubWithHost(skel *rpc.Skeleton, hostname string, t *rpc.Transport) (StorageStub, error) {
	c, err := clientWithHost(IfaceStorage, skel, hostname, t)
	if err != nil {
		return StorageStub{}, err
	}
	return StorageStub{client: c}, nil
}

func (s StorageStub) Addr() string             { return s.client.Address() }
func (s StorageStub) Equal(o StorageStub) bool { return s.client.Equal(o.client) }
func (s StorageStub) IsZero() bool             { return s.client.Address() == "" }

func (s StorageStub) Size(p fspath.Path) (n int64, err error) {
	err = s.client.Call(methodSize, func(enc *rpc.Encoder) {
		encodePath(enc, p)
	}, func(dec *rpc.Decoder) error {
		n = dec.Int64()
		return nil
	})
	return n, err
}

func (s StorageStub) Read(p fspath.Path, offset int64, length int32) (data []byte, err error) {
	err = s.client.Call(methodRead, func(enc *rpc.Encoder) {
		encodePath(enc, p)
		enc.Int64(offset)
		enc.Int32(length)
	}, func(dec *rpc.Decoder) error {
		data = dec.Bytes()
		return nil
	})
	return data, err
}

func (s StorageStub) Write(p fspath.Path, offset int64, data []byte) error {
	return s.client.Call(methodWrite, func(enc *rpc.Encoder) {
		encodePath(enc, p)
		enc.Int64(offset)
		enc.Bytes(data)
	}, nil)
}

// CommandStub forwards Command calls to a remote skeleton.
type CommandStub struct {
	client rpc.Client
}

var _ Command = CommandStub{}

func NewCommandStub(address string, t *rpc.Transport) CommandStub {
	return CommandStub{client: rpc.NewClient(IfaceCommand, address, t)}
}

func CommandStubFromSkeleton(skel *rpc.Skeleton, t *rpc.Transport) (CommandStub, error) {
	c, err := clientFromSkeleton(IfaceCommand, skel, t)
	if err != nil {
		return CommandStub{}, err
	}
	return CommandStub{client: c}, nil
}

func CommandStubWithHost(skel *rpc.Skeleton, hostname string, t *rpc.Transport) (CommandStub, error) {
	c, err := clientWithHost(IfaceCommand, skel, hostname, t)
	if err != nil {
		return CommandStub{}, err
	}
	return CommandStub{client: c}, nil
}

func (s CommandStub) Addr() string             { return s.client.Address() }
func (s CommandStub) Equal(o CommandStub) bool { return s.client.Equal(o.client) }

func (s CommandStub) Create(p fspath.Path) (created bool, err error) {
	err = s.client.Call(methodCreate, func(enc *rpc.Encoder) {
		encodePath(enc, p)
	}, func(dec *rpc.Decoder) error {
		created = dec.Bool()
		return nil
	})
	return created, err
}

func (s CommandStub) Delete(p fspath.Path) (deleted bool, err error) {
	err = s.client.Call(methodDelete, func(enc *rpc.Encoder) {
		encodePath(enc, p)
	}, func(dec *rpc.Decoder) error {
		deleted = dec.Bool()
		return nil
	})
	return deleted, err
}

// ServiceStub forwards Service calls to the naming server.
type ServiceStub struct {
	client rpc.Client
}

var _ Service = ServiceStub{}

func NewServiceStub(address string, t *rpc.Transport) ServiceStub {
	return ServiceStub{client: rpc.NewClient(IfaceService, address, t)}
}

func ServiceStubFromSkeleton(skel *rpc.Skeleton, t *rpc.Transport) (ServiceStub, error) {
	c, err := clientFromSkeleton(IfaceService, skel, t)
	if err != nil {
		return ServiceStub{}, err
	}
	return ServiceStub{client: c}, nil
}

func (s ServiceStub) Addr() string             { return s.client.Address() }
func (s ServiceStub) Equal(o ServiceStub) bool { return s.client.Equal(o.client) }

func (s ServiceStub) IsDirectory(p fspath.Path) (isDir bool, err error) {
	err = s.client.Call(methodIsDirectory, func(enc *rpc.Encoder) {
		encodePath(enc, p)
	}, func(dec *rpc.Decoder) error {
		isDir = dec.Bool()
		return nil
	})
	return isDir, err
}

func (s ServiceStub) List(dir fspath.Path) (names []string, err error) {
	err = s.client.Call(methodList, func(enc *rpc.Encoder) {
		encodePath(enc, dir)
	}, func(dec *rpc.Decoder) error {
		n := dec.Uint32()
		for i := uint32(0); i < n && dec.Err() == nil; i++ {
			names = append(names, dec.String())
		}
		return dec.Err()
	})
	return names, err
}

func (s ServiceStub) CreateFile(p fspath.Path) (created bool, err error) {
	err = s.client.Call(methodCreateFile, func(enc *rpc.Encoder) {
		encodePath(enc, p)
	}, func(dec *rpc.Decoder) error {
		created = dec.Bool()
		return nil
	})
	return created, err
}

func (s ServiceStub) CreateDirectory(p fspath.Path) (created bool, err error) {
	err = s.client.Call(methodCreateDirectory, func(enc *rpc.Encoder) {
		encodePath(enc, p)
	}, func(dec *rpc.Decoder) error {
		created = dec.Bool()
		return nil
	})
	return created, err
}

func (s ServiceStub) Delete(p fspath.Path) (deleted bool, err error) {
	err = s.client.Call(methodDelete, func(enc *rpc.Encoder) {
		encodePath(enc, p)
	}, func(dec *rpc.Decoder) error {
		deleted = dec.Bool()
		return nil
	})
	return deleted, err
}

func (s ServiceStub) GetStorage(p fspath.Path) (storage StorageStub, err error) {
	err = s.client.Call(methodGetStorage, func(enc *rpc.Encoder) {
		encodePath(enc, p)
	}, func(dec *rpc.Decoder) error {
		addr, err := decodeStubAddr(dec, "storage")
		if err != nil {
			return err
		}
		storage = NewStorageStub(addr, s.client.Transport())
		return nil
	})
	return storage, err
}

// RegistrationStub forwards the registration call to the naming
// server.
type RegistrationStub struct {
	client rpc.Client
}

var _ Registration = RegistrationStub{}

func NewRegistrationStub(address string, t *rpc.Transport) RegistrationStub {
	return RegistrationStub{client: rpc.NewClient(IfaceRegistration, address, t)}
}

func RegistrationStubFromSkeleton(skel *rpc.Skeleton, t *rpc.Transport) (RegistrationStub, error) {
	c, err := clientFromSkeleton(IfaceRegistration, skel, t)
	if err != nil {
		return RegistrationStub{}, err
	}
	return RegistrationStub{client: c}, nil
}

func (s RegistrationStub) Addr() string                  { return s.client.Address() }
func (s RegistrationStub) Equal(o RegistrationStub) bool { return s.client.Equal(o.client) }

func (s RegistrationStub) Register(storage StorageStub, command CommandStub, files []fspath.Path) (evict []fspath.Path, err error) {
	err = s.client.Call(methodRegister, func(enc *rpc.Encoder) {
		encodeStubAddr(enc, storage.Addr())
		encodeStubAddr(enc, command.Addr())
		encodePaths(enc, files)
	}, func(dec *rpc.Decoder) error {
		var err error
		evict, err = decodePaths(dec)
		return err
	})
	return evict, err
}
