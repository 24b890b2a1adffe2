// Package remote defines the interfaces spoken between clients, the
// naming server and storage servers, together with their concrete
// stubs and skeleton dispatchers. The source system synthesized stubs
// reflectively; here the interface shapes are known at compile time,
// so each interface gets a hand-written forwarder whose methods
// marshal to the wire, and a dispatcher that unmarshals on the other
// side. Every method returns error, which is what makes each of them
// able to signal a remote-invocation failure.
package remote

import (
	"github.com/nicolagi/scatterfs/internal/fspath"
)

// Interface names, as they appear in request payloads.
const (
	IfaceStorage      = "Storage"
	IfaceCommand      = "Command"
	IfaceService      = "Service"
	IfaceRegistration = "Registration"
)

// Method names, as they appear in request payloads.
const (
	methodSize            = "size"
	methodRead            = "read"
	methodWrite           = "write"
	methodCreate          = "create"
	methodDelete          = "delete"
	methodIsDirectory     = "isDirectory"
	methodList            = "list"
	methodCreateFile      = "createFile"
	methodCreateDirectory = "createDirectory"
	methodGetStorage      = "getStorage"
	methodRegister        = "register"
)

// Storage is the data plane of a storage server: byte operations on
// the files it holds.
type Storage interface {
	// Size returns the byte length of the file at p.
	Size(p fspath.Path) (int64, error)
	// Read returns length bytes of the file at p starting at offset.
	Read(p fspath.Path, offset int64, length int32) ([]byte, error)
	// Write writes data to the file at p starting at offset, extending
	// the file if necessary.
	Write(p fspath.Path, offset int64, data []byte) error
}

// Command is the control plane of a storage server, driven by the
// naming server only.
type Command interface {
	// Create makes an empty file at p, with parent directories as
	// needed. False if p is the root or already exists.
	Create(p fspath.Path) (bool, error)
	// Delete removes the file or directory tree at p. False for the
	// root or a path that does not exist.
	Delete(p fspath.Path) (bool, error)
}

// Service is what filesystem clients call on the naming server.
type Service interface {
	IsDirectory(p fspath.Path) (bool, error)
	List(dir fspath.Path) ([]string, error)
	CreateFile(p fspath.Path) (bool, error)
	CreateDirectory(p fspath.Path) (bool, error)
	Delete(p fspath.Path) (bool, error)
	// GetStorage resolves a file to the storage server holding its
	// bytes.
	GetStorage(p fspath.Path) (StorageStub, error)
}

// Registration is the one-shot protocol a storage server runs against
// the naming server at startup. The returned paths are the eviction
// list: duplicates the storage server must delete locally.
type Registration interface {
	Register(storage StorageStub, command CommandStub, files []fspath.Path) ([]fspath.Path, error)
}
