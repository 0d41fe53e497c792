package conductor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nfrund/sequencer/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountedSet_ClaimCommitRelease(t *testing.T) {
	s := NewMountedSet()

	require.True(t, s.Claim("seq-a"))
	assert.False(t, s.Claim("seq-a"), "pending claim blocks a second claimer")
	assert.False(t, s.Has("seq-a"))

	s.Release("seq-a")
	require.True(t, s.Claim("seq-a"), "released ids can be claimed again")

	s.Commit("seq-a")
	assert.True(t, s.Has("seq-a"))
	assert.False(t, s.Claim("seq-a"))
	assert.Equal(t, []string{"seq-a"}, s.IDs())
	assert.Equal(t, 1, s.Len())
}

func TestMountedSet_ConcurrentClaims(t *testing.T) {
	s := NewMountedSet()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Claim("shared") {
				wins.Add(1)
				s.Commit("shared")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestLocal_MountAndPlay(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(nil)
	seq := &sequence.Sequence{PluginID: "P1", ID: "S1"}

	require.NoError(t, c.Mount(ctx, seq, nil, "P1"))
	assert.Equal(t, []string{"P1"}, c.MountedPluginIDs())

	out, err := c.Play(ctx, "P1", "S1", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "S1", out.(map[string]any)["sequenceId"])

	_, err = c.Play(ctx, "P1", "missing", nil)
	assert.Error(t, err)

	_, err = c.Play(ctx, "P2", "S1", nil)
	assert.Error(t, err)

	assert.Same(t, c.MountedSequences(), c.MountedSequences())
}

func TestGlobal(t *testing.T) {
	t.Cleanup(func() { SetGlobal(nil) })

	assert.Nil(t, Global())
	c := NewLocal(nil)
	SetGlobal(c)
	assert.Same(t, c, Global())
	SetGlobal(nil)
	assert.Nil(t, Global())
}

func TestMountOnce(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(nil)
	seq := &sequence.Sequence{PluginID: "P", ID: "seq-once", Name: "Once"}

	mounted, err := MountOnce(ctx, c, seq, nil, "P")
	require.NoError(t, err)
	assert.True(t, mounted)

	mounted, err = MountOnce(ctx, c, seq, nil, "P")
	require.NoError(t, err)
	assert.False(t, mounted)

	failing := &failingConductor{Local: NewLocal(nil)}
	_, err = MountOnce(ctx, failing, seq, nil, "P")
	assert.Error(t, err)
	assert.True(t, failing.MountedSequences().Claim("seq-once"), "failed mounts release their claim")
}

type failingConductor struct {
	*Local
}

func (f *failingConductor) Mount(context.Context, *sequence.Sequence, sequence.Handlers, string) error {
	return assert.AnError
}
