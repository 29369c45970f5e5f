package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v, err := s.Get(ctx, "sid", "missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.Set(ctx, "sid", "k", "v"))
	v, _ = s.Get(ctx, "sid", "k")
	assert.Equal(t, "v", v)
	v, _ = s.Get(ctx, "other", "k")
	assert.Empty(t, v)

	require.NoError(t, s.AddFlash(ctx, "sid", "one"))
	require.NoError(t, s.AddFlash(ctx, "sid", "two"))
	flashes, err := s.PopFlashes(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, flashes)
	flashes, _ = s.PopFlashes(ctx, "sid")
	assert.Empty(t, flashes)

	require.NoError(t, s.Delete(ctx, "sid", "k"))
	v, _ = s.Get(ctx, "sid", "k")
	assert.Empty(t, v)

	require.NoError(t, s.Set(ctx, "sid", "k", "v"))
	require.NoError(t, s.Destroy(ctx, "sid"))
	v, _ = s.Get(ctx, "sid", "k")
	assert.Empty(t, v)
}
