package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOfferedRegistrySeedAndContains(t *testing.T) {
	r := NewOfferedRegistry([]string{"w1", "w2"})

	require.True(t, r.Contains("w1"))
	require.False(t, r.Contains("w3"))
	require.Equal(t, 2, r.Len())
}

func TestOfferedRegistryMergeReturnsDelta(t *testing.T) {
	r := NewOfferedRegistry([]string{"w1"})

	added := r.Merge([]string{"w1", "w2", "w2", "w3"})
	require.ElementsMatch(t, []string{"w2", "w3"}, added)
	require.Equal(t, 3, r.Len())

	// A second merge of the same ids adds nothing.
	require.Empty(t, r.Merge([]string{"w1", "w2", "w3"}))
}

func TestOfferedRegistrySnapshotIsDetached(t *testing.T) {
	r := NewOfferedRegistry([]string{"w1"})

	snap := r.Snapshot()
	r.Merge([]string{"w2"})

	_, ok := snap["w2"]
	require.False(t, ok, "snapshot must not see later merges")
}

func TestOfferedRegistryClear(t *testing.T) {
	r := NewOfferedRegistry([]string{"w1", "w2"})
	r.Clear()

	require.Equal(t, 0, r.Len())
	require.False(t, r.Contains("w1"))
}

func TestOfferedRegistryConcurrentMerge(t *testing.T) {
	r := NewOfferedRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Merge([]string{"a", "b", "c"})
		}()
	}
	wg.Wait()

	require.Equal(t, 3, r.Len())
}
