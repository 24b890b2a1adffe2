package remote

import (
	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
	"github.com/nicolagi/scatterfs/internal/rpc"
)

// Skeleton constructors pair an implementation with the dispatcher for
// its interface. The dispatchers are the other half of the forwarders
// in stubs.go and must agree with them field for field.

func NewStorageSkeleton(impl Storage, opts ...rpc.SkeletonOption) (*rpc.Skeleton, error) {
	if impl == nil {
		return nil, fault.E(fault.NullArgument, "nil storage implementation")
	}
	return rpc.NewSkeleton(IfaceStorage, storageHandler{impl}, opts...)
}

func NewCommandSkeleton(impl Command, opts ...rpc.SkeletonOption) (*rpc.Skeleton, error) {
	if impl == nil {
		return nil, fault.E(fault.NullArgument, "nil command implementation")
	}
	return rpc.NewSkeleton(IfaceCommand, commandHandler{impl}, opts...)
}

func NewServiceSkeleton(impl Service, opts ...rpc.SkeletonOption) (*rpc.Skeleton, error) {
	if impl == nil {
		return nil, fault.E(fault.NullArgument, "nil service implementation")
	}
	return rpc.NewSkeleton(IfaceService, serviceHandler{impl}, opts...)
}

// NewRegistrationSkeleton needs the transport besides the
// implementation: the stubs it decodes out of a registration request
// are handed to the implementation for later outbound calls, and they
// take the in-process path when the registering server shares the
// process.
func NewRegistrationSkeleton(impl Registration, t *rpc.Transport, opts ...rpc.SkeletonOption) (*rpc.Skeleton, error) {
	if impl == nil {
		return nil, fault.E(fault.NullArgument, "nil registration implementation")
	}
	return rpc.NewSkeleton(IfaceRegistration, registrationHandler{impl, t}, opts...)
}

type storageHandler struct {
	impl Storage
}

func (h storageHandler) Dispatch(method string, dec *rpc.Decoder, enc *rpc.Encoder) error {
	switch method {
	case methodSize:
		p, err := decodePath(dec)
		if err != nil {
			return err
		}
		n, err := h.impl.Size(p)
		if err != nil {
			return err
		}
		enc.Int64(n)
		return nil
	case methodRead:
		p, err := decodePath(dec)
		if err != nil {
			return err
		}
		offset := dec.Int64()
		length := dec.Int32()
		if err := dec.Err(); err != nil {
			return err
		}
		data, err := h.impl.Read(p, offset, length)
		if err != nil {
			return err
		}
		enc.Bytes(data)
		return nil
	case methodWrite:
		p, err := decodePath(dec)
		if err != nil {
			return err
		}
		offset := dec.Int64()
		data := dec.Bytes()
		if err := dec.Err(); err != nil {
			return err
		}
		if data == nil {
			return fault.E(fault.NullArgument, "missing data argument")
		}
		return h.impl.Write(p, offset, data)
	}
	return unknownMethod(IfaceStorage, method)
}

type commandHandler struct {
	impl Command
}

func (h commandHandler) Dispatch(method string, dec *rpc.Decoder, enc *rpc.Encoder) error {
	p, err := decodePath(dec)
	if err != nil {
		return err
	}
	switch method {
	case methodCreate:
		created, err := h.impl.Create(p)
		if err != nil {
			return err
		}
		enc.Bool(created)
		return nil
	case methodDelete:
		deleted, err := h.impl.Delete(p)
		if err != nil {
			return err
		}
		enc.Bool(deleted)
		return nil
	}
	return unknownMethod(IfaceCommand, method)
}

type serviceHandler struct {
	impl Service
}

func (h serviceHandler) Dispatch(method string, dec *rpc.Decoder, enc *rpc.Encoder) error {
	p, err := decodePath(dec)
	if err != nil {
		return err
	}
	switch method {
	case methodIsDirectory:
		isDir, err := h.impl.IsDirectory(p)
		if err != nil {
			return err
		}
		enc.Bool(isDir)
		return nil
	case methodList:
		names, err := h.impl.List(p)
		if err != nil {
			return err
		}
		enc.Uint32(uint32(len(names)))
		for _, name := range names {
			enc.String(name)
		}
		return nil
	case methodCreateFile:
		created, err := h.impl.CreateFile(p)
		if err != nil {
			return err
		}
		enc.Bool(created)
		return nil
	case methodCreateDirectory:
		created, err := h.impl.CreateDirectory(p)
		if err != nil {
			return err
		}
		enc.Bool(created)
		return nil
	case methodDelete:
		deleted, err := h.impl.Delete(p)
		if err != nil {
			return err
		}
		enc.Bool(deleted)
		return nil
	case methodGetStorage:
		stub, err := h.impl.GetStorage(p)
		if err != nil {
			return err
		}
		encodeStubAddr(enc, stub.Addr())
		return nil
	}
	return unknownMethod(IfaceService, method)
}

type registrationHandler struct {
	impl Registration
	t    *rpc.Transport
}

func (h registrationHandler) Dispatch(method string, dec *rpc.Decoder, enc *rpc.Encoder) error {
	if method != methodRegister {
		return unknownMethod(IfaceRegistration, method)
	}
	storageAddr, err := decodeStubAddr(dec, "storage")
	if err != nil {
		return err
	}
	commandAddr, err := decodeStubAddr(dec, "command")
	if err != nil {
		return err
	}
	files, err := decodePaths(dec)
	if err != nil {
		return err
	}
	if files == nil {
		return fault.E(fault.NullArgument, "missing file manifest")
	}
	evict, err := h.impl.Register(NewStorageStub(storageAddr, h.t), NewCommandStub(commandAddr, h.t), files)
	if err != nil {
		return err
	}
	if evict == nil {
		// The caller distinguishes nil from empty; an absent eviction
		// list means nothing to evict.
		evict = []fspath.Path{}
	}
	encodePaths(enc, evict)
	return nil
}

func unknownMethod(iface, method string) error {
	return fault.E(fault.RemoteInvocation, "%s: unknown method %q", iface, method)
}
