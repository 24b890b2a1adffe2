package fault

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		assert.Equal(t, NotFound, KindOf(E(NotFound, "/a/b")))
	})
	t.Run("through wrapping", func(t *testing.T) {
		err := errors.Wrap(E(OutOfBounds, "range"), "reading")
		assert.Equal(t, OutOfBounds, KindOf(err))
		assert.True(t, Is(err, OutOfBounds))
	})
	t.Run("kindless error", func(t *testing.T) {
		assert.Equal(t, Unknown, KindOf(errors.New("whatever")))
	})
}

func TestFromByte(t *testing.T) {
	for k := NotFound; k <= IO; k++ {
		assert.Equal(t, k, FromByte(uint8(k)))
	}
	assert.Equal(t, RemoteInvocation, FromByte(0))
	assert.Equal(t, RemoteInvocation, FromByte(200))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "not found: /a", E(NotFound, "/a").Error())
	assert.Equal(t, "i/o", (&Error{Kind: IO}).Error())
}
