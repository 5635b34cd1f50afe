package exec

import (
	"testing"

	"github.com/rxtech-lab/argo-exec/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestDirectoryBindBothDirections(t *testing.T) {
	dir := NewIDDirectory()

	assert.NoError(t, dir.Bind(1, 5001))

	remote, ok := dir.RemoteFor(1)
	assert.True(t, ok)
	assert.Equal(t, int64(5001), remote)

	local, ok := dir.LocalFor(5001)
	assert.True(t, ok)
	assert.Equal(t, int64(1), local)
}

func TestDirectoryBindIdempotent(t *testing.T) {
	dir := NewIDDirectory()

	assert.NoError(t, dir.Bind(1, 5001))
	assert.NoError(t, dir.Bind(1, 5001))
	assert.Equal(t, 1, dir.Len())
}

func TestDirectoryBindConflict(t *testing.T) {
	dir := NewIDDirectory()

	assert.NoError(t, dir.Bind(1, 5001))

	err := dir.Bind(1, 5002)
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDirectoryConflict))

	err = dir.Bind(2, 5001)
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDirectoryConflict))

	// The failed binds must not have touched either direction.
	remote, ok := dir.RemoteFor(1)
	assert.True(t, ok)
	assert.Equal(t, int64(5001), remote)

	_, ok = dir.RemoteFor(2)
	assert.False(t, ok)
}
