package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrick-commits/dark-site-metering/common"
)

func TestRegistry_CurrentBeforeFirstCycle(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.False(t, r.IsInterfaceNil())

	snap := r.Current()
	require.NotNil(t, snap)
	assert.True(t, snap.IsEmpty())
	assert.Empty(t, snap.Records)
}

func TestRegistry_PublishSwapsAtomically(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	first := &common.Snapshot{ID: "snap-1"}
	r.Publish(first)
	assert.Same(t, first, r.Current())

	second := &common.Snapshot{ID: "snap-2"}
	r.Publish(second)
	assert.Same(t, second, r.Current())

	// nil publishes are ignored
	r.Publish(nil)
	assert.Same(t, second, r.Current())
}

func TestRegistry_ConcurrentReadersAndWriter(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				// a reader must always see a coherent snapshot pointer
				if r.Current() == nil {
					t.Error("nil snapshot observed")
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 1000; j++ {
			r.Publish(&common.Snapshot{ID: "snap"})
		}
	}()

	wg.Wait()
}
