package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, DefaultEpoch.Add(time.Second), clock.Now())
}

func TestDeterministicClock_Monotonic(t *testing.T) {
	clock := NewDeterministicClock()

	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, time.Second, second.Sub(first))
	assert.Equal(t, int64(2), clock.Ticks())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	want := clock.Now()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, want, clock.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()
	const numGoroutines = 50
	const callsPerGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]time.Time, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]time.Time, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[time.Time]bool)
	for _, row := range results {
		for _, ts := range row {
			require.False(t, seen[ts], "duplicate instant %v", ts)
			seen[ts] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}
