package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	for want := int64(1); want <= 4; want++ {
		assert.Equal(t, want, clock.Next())
	}
	assert.Equal(t, int64(4), clock.Current())
}

func TestDeterministicClock_ResetReplaysSeqs(t *testing.T) {
	clock := NewDeterministicClock()
	first := []int64{clock.Next(), clock.Next(), clock.Next()}

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	second := []int64{clock.Next(), clock.Next(), clock.Next()}

	assert.Equal(t, first, second)
}

func TestDeterministicClock_ConcurrentNextIsDense(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, calls = 50, 40

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := clock.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*calls)
	for i := int64(1); i <= workers*calls; i++ {
		assert.True(t, seen[i], "missing seq %d", i)
	}
}
