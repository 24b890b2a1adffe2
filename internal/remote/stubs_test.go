package remote

import (
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
	"github.com/nicolagi/scatterfs/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubEquality(t *testing.T) {
	t.Run("same interface and address", func(t *testing.T) {
		a := NewStorageStub("127.0.0.1:7001", nil)
		b := NewStorageStub("127.0.0.1:7001", rpc.NewTransport())
		assert.True(t, a.Equal(b))
	})
	t.Run("different address", func(t *testing.T) {
		a := NewStorageStub("127.0.0.1:7001", nil)
		b := NewStorageStub("127.0.0.1:7002", nil)
		assert.False(t, a.Equal(b))
	})
	t.Run("survives a serialization round trip", func(t *testing.T) {
		a := NewStorageStub("127.0.0.1:7001", nil)
		var enc rpc.Encoder
		encodeStubAddr(&enc, a.Addr())
		dec := rpc.NewDecoder(append([]byte(nil), enc.Payload()...))
		addr, err := decodeStubAddr(dec, "storage")
		require.Nil(t, err)
		b := NewStorageStub(addr, nil)
		assert.True(t, a.Equal(b))
	})
}

func TestStubFromSkeleton(t *testing.T) {
	defer leaktest.Check(t)()
	tr := rpc.NewTransport()
	impl := &fakeStorage{}
	skel, err := NewStorageSkeleton(impl, rpc.WithTransport(tr), rpc.WithAddress("127.0.0.1", 0))
	require.Nil(t, err)
	t.Run("not started and no address", func(t *testing.T) {
		unbound, err := NewStorageSkeleton(impl)
		require.Nil(t, err)
		_, err = StorageStubFromSkeleton(unbound, nil)
		assert.True(t, fault.Is(err, fault.IllegalState))
	})
	require.Nil(t, skel.Start())
	defer skel.Stop()
	t.Run("running skeleton", func(t *testing.T) {
		stub, err := StorageStubFromSkeleton(skel, tr)
		require.Nil(t, err)
		assert.Equal(t, skel.Addr(), stub.Addr())
	})
	t.Run("wrong interface", func(t *testing.T) {
		_, err := CommandStubFromSkeleton(skel, tr)
		assert.True(t, fault.Is(err, fault.InvalidArgument))
	})
	t.Run("hostname override keeps the port", func(t *testing.T) {
		stub, err := StorageStubWithHost(skel, "storage.example.net", tr)
		require.Nil(t, err)
		assert.NotEqual(t, skel.Addr(), stub.Addr())
		assert.Contains(t, stub.Addr(), "storage.example.net:")
	})
}

func TestStorageForwarding(t *testing.T) {
	defer leaktest.Check(t)()
	impl := &fakeStorage{data: map[fspath.Path][]byte{
		"/x": []byte("0123456789"),
	}}
	skel, err := NewStorageSkeleton(impl, rpc.WithAddress("127.0.0.1", 0))
	require.Nil(t, err)
	require.Nil(t, skel.Start())
	defer skel.Stop()
	stub, err := StorageStubFromSkeleton(skel, nil)
	require.Nil(t, err)

	t.Run("size", func(t *testing.T) {
		n, err := stub.Size("/x")
		require.Nil(t, err)
		assert.Equal(t, int64(10), n)
	})
	t.Run("read applies the file offset", func(t *testing.T) {
		data, err := stub.Read("/x", 5, 5)
		require.Nil(t, err)
		assert.Equal(t, []byte("56789"), data)
	})
	t.Run("read out of bounds", func(t *testing.T) {
		_, err := stub.Read("/x", 5, 6)
		assert.True(t, fault.Is(err, fault.OutOfBounds))
	})
	t.Run("write then read back", func(t *testing.T) {
		require.Nil(t, stub.Write("/x", 3, []byte{1, 2, 3}))
		data, err := stub.Read("/x", 3, 3)
		require.Nil(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)
	})
	t.Run("nil data is a null argument", func(t *testing.T) {
		err := stub.Write("/x", 0, nil)
		assert.True(t, fault.Is(err, fault.NullArgument))
	})
	t.Run("missing file keeps its kind", func(t *testing.T) {
		_, err := stub.Size("/missing")
		assert.True(t, fault.Is(err, fault.NotFound))
	})
}

func TestRegistrationForwarding(t *testing.T) {
	defer leaktest.Check(t)()
	impl := &fakeRegistration{evict: []fspath.Path{"/dup"}}
	skel, err := NewRegistrationSkeleton(impl, nil, rpc.WithAddress("127.0.0.1", 0))
	require.Nil(t, err)
	require.Nil(t, skel.Start())
	defer skel.Stop()
	stub, err := RegistrationStubFromSkeleton(skel, nil)
	require.Nil(t, err)

	storage := NewStorageStub("127.0.0.1:7101", nil)
	command := NewCommandStub("127.0.0.1:7102", nil)
	t.Run("round trips stubs and paths", func(t *testing.T) {
		evict, err := stub.Register(storage, command, []fspath.Path{"/dup", "/fresh"})
		require.Nil(t, err)
		assert.Equal(t, []fspath.Path{"/dup"}, evict)
		assert.True(t, impl.storage.Equal(storage))
		assert.True(t, impl.command.Equal(command))
		assert.Equal(t, []fspath.Path{"/dup", "/fresh"}, impl.files)
	})
	t.Run("nil manifest is a null argument", func(t *testing.T) {
		_, err := stub.Register(storage, command, nil)
		assert.True(t, fault.Is(err, fault.NullArgument))
	})
	t.Run("empty manifest is not nil", func(t *testing.T) {
		evict, err := stub.Register(storage, command, []fspath.Path{})
		require.Nil(t, err)
		assert.Len(t, evict, 1)
	})
}

// fakeStorage implements Storage over a map, just enough for
// forwarding tests.
type fakeStorage struct {
	data map[fspath.Path][]byte
}

func (f *fakeStorage) Size(p fspath.Path) (int64, error) {
	data, ok := f.data[p]
	if !ok {
		return 0, fault.E(fault.NotFound, "%s: no such file", p)
	}
	return int64(len(data)), nil
}

func (f *fakeStorage) Read(p fspath.Path, offset int64, length int32) ([]byte, error) {
	data, ok := f.data[p]
	if !ok {
		return nil, fault.E(fault.NotFound, "%s: no such file", p)
	}
	if offset < 0 || length < 0 || offset+int64(length) > int64(len(data)) {
		return nil, fault.E(fault.OutOfBounds, "%s: bad range", p)
	}
	return data[offset : offset+int64(length)], nil
}

func (f *fakeStorage) Write(p fspath.Path, offset int64, data []byte) error {
	current, ok := f.data[p]
	if !ok {
		return fault.E(fault.NotFound, "%s: no such file", p)
	}
	if offset < 0 {
		return fault.E(fault.OutOfBounds, "%s: negative offset", p)
	}
	end := offset + int64(len(data))
	if end < int64(len(current)) {
		end = int64(len(current))
	}
	grown := make([]byte, end)
	copy(grown, current)
	copy(grown[offset:], data)
	f.data[p] = grown
	return nil
}

type fakeRegistration struct {
	evict   []fspath.Path
	storage StorageStub
	command CommandStub
	files   []fspath.Path
}

func (f *fakeRegistration) Register(storage StorageStub, command CommandStub, files []fspath.Path) ([]fspath.Path, error) {
	f.storage = storage
	f.command = command
	f.files = files
	return f.evict, nil
}
