package backend

import (
	"github.com/nicolagi/scatterfs/internal/fspath"
	"github.com/stretchr/testify/mock"
)

type BackendMock struct {
	mock.Mock
}

var _ Backend = (*BackendMock)(nil)

func (b *BackendMock) List() ([]fspath.Path, error) {
	arguments := b.Called()
	paths, ok := arguments.Get(0).([]fspath.Path)
	if !ok {
		paths = nil
	}
	return paths, arguments.Error(1)
}

func (b *BackendMock) Size(p fspath.Path) (int64, error) {
	arguments := b.Called(p)
	return int64(arguments.Int(0)), arguments.Error(1)
}

func (b *BackendMock) ReadAt(p fspath.Path, offset int64, length int32) ([]byte, error) {
	arguments := b.Called(p, offset, length)
	data, ok := arguments.Get(0).([]byte)
	if !ok {
		data = nil
	}
	return data, arguments.Error(1)
}

func (b *BackendMock) WriteAt(p fspath.Path, offset int64, data []byte) error {
	return b.Called(p, offset, data).Error(0)
}

func (b *BackendMock) Create(p fspath.Path) (bool, error) {
	arguments := b.Called(p)
	return arguments.Bool(0), arguments.Error(1)
}

func (b *BackendMock) Delete(p fspath.Path) (bool, error) {
	arguments := b.Called(p)
	return arguments.Bool(0), arguments.Error(1)
}

func (b *BackendMock) PruneEmptyDirs() error {
	return b.Called().Error(0)
}
